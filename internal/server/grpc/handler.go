package grpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
	"github.com/dmitrijs2005/recipelab/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error onto a gRPC status. The message is the
// error text so that clients can recover the sentinel.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrCredentialInUse):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrInvalidTransition), errors.Is(err, common.ErrSelfAction):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, common.ErrInternal.Error())
	}
	return status.Error(code, err.Error())
}

// caller returns the authenticated owner id. The interceptor guarantees one
// for every non-public method.
func caller(ctx context.Context) (string, error) {
	id, ok := OwnerIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	}
	return id, nil
}

func sessionResponse(sess *services.Session) *rpc.SessionResponse {
	return &rpc.SessionResponse{
		OwnerID:        sess.Account.ID,
		IsAnonymous:    sess.Account.IsAnonymous,
		DisplayName:    sess.Account.DisplayName,
		Email:          sess.Account.Email,
		AccessToken:    sess.AccessToken,
		RefreshToken:   sess.RefreshToken,
		OwnershipProof: sess.OwnershipProof,
	}
}

func (s *GRPCServer) session(ctx context.Context, sess *services.Session, err error) (*rpc.SessionResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return sessionResponse(sess), nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) SignInAnonymously(ctx context.Context, req *rpc.SignInAnonymouslyRequest) (*rpc.SessionResponse, error) {
	sess, err := s.accounts.SignInAnonymously(ctx)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) LinkEmail(ctx context.Context, req *rpc.LinkEmailRequest) (*rpc.SessionResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.accounts.LinkEmail(ctx, ownerID, req.Email)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) SignInWithEmail(ctx context.Context, req *rpc.SignInWithEmailRequest) (*rpc.SessionResponse, error) {
	sess, err := s.accounts.SignInWithEmail(ctx, req.Email)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.SessionResponse, error) {
	sess, err := s.accounts.RefreshToken(ctx, req.RefreshToken)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) SignOut(ctx context.Context, req *rpc.SignOutRequest) (*rpc.Empty, error) {
	if err := s.accounts.SignOut(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, req *rpc.WhoAmIRequest) (*rpc.SessionResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.accounts.WhoAmI(ctx, ownerID)
	return s.session(ctx, sess, err)
}

func (s *GRPCServer) PutRecipe(ctx context.Context, req *rpc.PutRecipeRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.recipes.Put(ctx, ownerID, req.Recipe); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) GetRecipe(ctx context.Context, req *rpc.GetRecipeRequest) (*rpc.RecipeResponse, error) {
	r, err := s.recipes.Get(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.RecipeResponse{Recipe: r}, nil
}

func (s *GRPCServer) DeleteRecipes(ctx context.Context, req *rpc.DeleteRecipesRequest) (*rpc.CountResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.recipes.Delete(ctx, ownerID, req.IDs)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.CountResponse{Count: n}, nil
}

func (s *GRPCServer) SetFavorite(ctx context.Context, req *rpc.SetFavoriteRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.social.SetFavorite(ctx, ownerID, req.RecipeID, req.On); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) CreateSuggestion(ctx context.Context, req *rpc.CreateSuggestionRequest) (*rpc.SuggestionResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sg, err := s.social.CreateSuggestion(ctx, ownerID, req.RecipeID, req.Message)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SuggestionResponse{Suggestion: sg}, nil
}

func (s *GRPCServer) ListSuggestions(ctx context.Context, req *rpc.ListSuggestionsRequest) (*rpc.SuggestionsResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	list, err := s.social.ListSuggestions(ctx, req.RecipeID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SuggestionsResponse{Suggestions: list}, nil
}

func (s *GRPCServer) ResolveSuggestion(ctx context.Context, req *rpc.ResolveSuggestionRequest) (*rpc.SuggestionResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sg, err := s.social.ResolveSuggestion(ctx, ownerID, req.ID, req.Status)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SuggestionResponse{Suggestion: sg}, nil
}

func (s *GRPCServer) ListNotifications(ctx context.Context, req *rpc.ListNotificationsRequest) (*rpc.NotificationsResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.social.ListNotifications(ctx, ownerID, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.NotificationsResponse{Notifications: list}, nil
}

func (s *GRPCServer) MarkNotificationRead(ctx context.Context, req *rpc.MarkNotificationReadRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.social.MarkNotificationRead(ctx, ownerID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) MarkAllNotificationsRead(ctx context.Context, req *rpc.MarkAllNotificationsReadRequest) (*rpc.CountResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.social.MarkAllNotificationsRead(ctx, ownerID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.CountResponse{Count: n}, nil
}

func (s *GRPCServer) profile(ctx context.Context, p *models.Profile, err error) (*rpc.ProfileResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.avatars.Resolve(ctx, p)
	return &rpc.ProfileResponse{Profile: p}, nil
}

func (s *GRPCServer) GetProfile(ctx context.Context, req *rpc.GetProfileRequest) (*rpc.ProfileResponse, error) {
	ownerID := req.OwnerID
	if ownerID == "" {
		var err error
		if ownerID, err = caller(ctx); err != nil {
			return nil, err
		}
	}
	p, err := s.social.GetProfile(ctx, ownerID)
	return s.profile(ctx, p, err)
}

func (s *GRPCServer) EnsureProfile(ctx context.Context, req *rpc.EnsureProfileRequest) (*rpc.ProfileResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.social.EnsureProfile(ctx, ownerID, req.DisplayName)
	return s.profile(ctx, p, err)
}

func (s *GRPCServer) UpdateDisplayName(ctx context.Context, req *rpc.UpdateDisplayNameRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.social.UpdateDisplayName(ctx, ownerID, req.DisplayName); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

// UpdateAvatar only accepts uploaded pictures stored under the caller's prefix.
func (s *GRPCServer) UpdateAvatar(ctx context.Context, req *rpc.UpdateAvatarRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.Avatar.Type == models.AvatarUploaded && !s.avatars.OwnsKey(ownerID, req.Avatar.URL) {
		return nil, s.toStatus(ctx, fmt.Errorf("%w: avatar object belongs to another owner", common.ErrForbidden))
	}
	if err := s.social.UpdateAvatar(ctx, ownerID, req.Avatar); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) AvatarUploadURL(ctx context.Context, req *rpc.AvatarUploadURLRequest) (*rpc.AvatarUploadURLResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	key, url, err := s.avatars.UploadURL(ctx, ownerID, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.AvatarUploadURLResponse{Key: key, URL: url}, nil
}

func (s *GRPCServer) Follow(ctx context.Context, req *rpc.FollowRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.social.Follow(ctx, ownerID, req.OwnerID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) Unfollow(ctx context.Context, req *rpc.FollowRequest) (*rpc.Empty, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.social.Unfollow(ctx, ownerID, req.OwnerID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) IsFollowing(ctx context.Context, req *rpc.FollowRequest) (*rpc.BoolResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := s.social.IsFollowing(ctx, ownerID, req.OwnerID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.BoolResponse{Value: ok}, nil
}

func (s *GRPCServer) ListFollowing(ctx context.Context, req *rpc.ListFollowingRequest) (*rpc.IDsResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.social.ListFollowing(ctx, ownerID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.IDsResponse{IDs: ids}, nil
}

func (s *GRPCServer) MoveOwnership(ctx context.Context, req *rpc.MoveOwnershipRequest) (*rpc.CountResponse, error) {
	ownerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.ownership.MoveOwnership(ctx, ownerID, remote.Collection(req.Collection), remote.MoveRequest{
		OldOwnerID:     req.OldOwnerID,
		NewOwnerID:     req.NewOwnerID,
		NewDisplayName: req.NewDisplayName,
		Proof:          req.Proof,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.CountResponse{Count: n}, nil
}
