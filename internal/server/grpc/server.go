// Package grpc exposes the Recipe Lab services over gRPC. Messages travel
// as JSON through the codec registered by package rpc, so the service
// descriptor is declared by hand in service.go.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/dmitrijs2005/recipelab/internal/server/services"
	"google.golang.org/grpc"
)

type accountService interface {
	SignInAnonymously(ctx context.Context) (*services.Session, error)
	LinkEmail(ctx context.Context, ownerID, email string) (*services.Session, error)
	SignInWithEmail(ctx context.Context, email string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	WhoAmI(ctx context.Context, ownerID string) (*services.Session, error)
}

type recipeService interface {
	Put(ctx context.Context, ownerID string, r *models.Recipe) error
	Get(ctx context.Context, id string) (*models.Recipe, error)
	Delete(ctx context.Context, ownerID string, ids []string) (int, error)
}

type socialService interface {
	SetFavorite(ctx context.Context, actorID, recipeID string, on bool) error
	CreateSuggestion(ctx context.Context, actorID, recipeID, message string) (*models.Suggestion, error)
	ListSuggestions(ctx context.Context, recipeID string) ([]*models.Suggestion, error)
	ResolveSuggestion(ctx context.Context, actorID, id string, to models.SuggestionStatus) (*models.Suggestion, error)
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error)
	GetProfile(ctx context.Context, ownerID string) (*models.Profile, error)
	EnsureProfile(ctx context.Context, ownerID, displayName string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, ownerID, name string) error
	UpdateAvatar(ctx context.Context, ownerID string, a models.Avatar) error
	Follow(ctx context.Context, actorID, targetID string) error
	Unfollow(ctx context.Context, actorID, targetID string) error
	IsFollowing(ctx context.Context, actorID, targetID string) (bool, error)
	ListFollowing(ctx context.Context, actorID string) ([]string, error)
}

type ownershipService interface {
	MoveOwnership(ctx context.Context, callerID string, c remote.Collection, req remote.MoveRequest) (int, error)
}

type avatarService interface {
	UploadURL(ctx context.Context, ownerID, contentType string) (string, string, error)
	OwnsKey(ownerID, key string) bool
	Resolve(ctx context.Context, p *models.Profile)
}

// Services bundles the business logic the server dispatches to.
type Services struct {
	Accounts  *services.AccountService
	Recipes   *services.RecipeService
	Social    *services.SocialService
	Ownership *services.OwnershipService
	Avatars   *services.AvatarService
}

type GRPCServer struct {
	address   string
	accounts  accountService
	recipes   recipeService
	social    socialService
	ownership ownershipService
	avatars   avatarService
	metrics   *metrics.Collector
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, svc Services, mc *metrics.Collector, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		accounts:  svc.Accounts,
		recipes:   svc.Recipes,
		social:    svc.Social,
		ownership: svc.Ownership,
		avatars:   svc.Avatars,
		metrics:   mc,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a gRPC server with the interceptor chain and the Recipe
// Lab service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
