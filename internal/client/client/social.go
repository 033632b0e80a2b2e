package client

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
)

func (c *GRPCClient) CreateSuggestion(ctx context.Context, recipeID, message string) (*models.Suggestion, error) {
	resp := &rpc.SuggestionResponse{}
	if err := c.invoke(ctx, rpc.MethodCreateSuggestion, &rpc.CreateSuggestionRequest{RecipeID: recipeID, Message: message}, resp); err != nil {
		return nil, err
	}
	return resp.Suggestion, nil
}

func (c *GRPCClient) ListSuggestions(ctx context.Context, recipeID string) ([]*models.Suggestion, error) {
	resp := &rpc.SuggestionsResponse{}
	if err := c.invoke(ctx, rpc.MethodListSuggestions, &rpc.ListSuggestionsRequest{RecipeID: recipeID}, resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

func (c *GRPCClient) ResolveSuggestion(ctx context.Context, id string, to models.SuggestionStatus) (*models.Suggestion, error) {
	resp := &rpc.SuggestionResponse{}
	if err := c.invoke(ctx, rpc.MethodResolveSuggestion, &rpc.ResolveSuggestionRequest{ID: id, Status: to}, resp); err != nil {
		return nil, err
	}
	return resp.Suggestion, nil
}

func (c *GRPCClient) ListNotifications(ctx context.Context) ([]*models.Notification, error) {
	resp := &rpc.NotificationsResponse{}
	if err := c.invoke(ctx, rpc.MethodListNotifications, &rpc.ListNotificationsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (c *GRPCClient) MarkNotificationRead(ctx context.Context, id string) error {
	return c.invoke(ctx, rpc.MethodMarkNotificationRead, &rpc.MarkNotificationReadRequest{ID: id}, &rpc.Empty{})
}

func (c *GRPCClient) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	resp := &rpc.CountResponse{}
	if err := c.invoke(ctx, rpc.MethodMarkAllNotificationsRead, &rpc.MarkAllNotificationsReadRequest{}, resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *GRPCClient) GetProfile(ctx context.Context, ownerID string) (*models.Profile, error) {
	resp := &rpc.ProfileResponse{}
	if err := c.invoke(ctx, rpc.MethodGetProfile, &rpc.GetProfileRequest{OwnerID: ownerID}, resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

func (c *GRPCClient) EnsureProfile(ctx context.Context, displayName string) (*models.Profile, error) {
	resp := &rpc.ProfileResponse{}
	if err := c.invoke(ctx, rpc.MethodEnsureProfile, &rpc.EnsureProfileRequest{DisplayName: displayName}, resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

func (c *GRPCClient) UpdateDisplayName(ctx context.Context, displayName string) error {
	return c.invoke(ctx, rpc.MethodUpdateDisplayName, &rpc.UpdateDisplayNameRequest{DisplayName: displayName}, &rpc.Empty{})
}

func (c *GRPCClient) UpdateAvatar(ctx context.Context, a models.Avatar) error {
	return c.invoke(ctx, rpc.MethodUpdateAvatar, &rpc.UpdateAvatarRequest{Avatar: a}, &rpc.Empty{})
}

func (c *GRPCClient) AvatarUploadURL(ctx context.Context, contentType string) (string, string, error) {
	resp := &rpc.AvatarUploadURLResponse{}
	if err := c.invoke(ctx, rpc.MethodAvatarUploadURL, &rpc.AvatarUploadURLRequest{ContentType: contentType}, resp); err != nil {
		return "", "", err
	}
	return resp.Key, resp.URL, nil
}

func (c *GRPCClient) Follow(ctx context.Context, ownerID string) error {
	return c.invoke(ctx, rpc.MethodFollow, &rpc.FollowRequest{OwnerID: ownerID}, &rpc.Empty{})
}

func (c *GRPCClient) Unfollow(ctx context.Context, ownerID string) error {
	return c.invoke(ctx, rpc.MethodUnfollow, &rpc.FollowRequest{OwnerID: ownerID}, &rpc.Empty{})
}

func (c *GRPCClient) IsFollowing(ctx context.Context, ownerID string) (bool, error) {
	resp := &rpc.BoolResponse{}
	if err := c.invoke(ctx, rpc.MethodIsFollowing, &rpc.FollowRequest{OwnerID: ownerID}, resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

func (c *GRPCClient) ListFollowing(ctx context.Context) ([]string, error) {
	resp := &rpc.IDsResponse{}
	if err := c.invoke(ctx, rpc.MethodListFollowing, &rpc.ListFollowingRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}
