package rpc

import "github.com/dmitrijs2005/recipelab/internal/models"

type Empty struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type SignInAnonymouslyRequest struct{}

type LinkEmailRequest struct {
	Email string `json:"email"`
}

type SignInWithEmailRequest struct {
	Email string `json:"email"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type WhoAmIRequest struct{}

// SessionResponse describes a principal and, after sign-in, its tokens.
type SessionResponse struct {
	OwnerID        string `json:"ownerId"`
	IsAnonymous    bool   `json:"isAnonymous"`
	DisplayName    string `json:"displayName"`
	Email          string `json:"email,omitempty"`
	AccessToken    string `json:"accessToken,omitempty"`
	RefreshToken   string `json:"refreshToken,omitempty"`
	OwnershipProof string `json:"ownershipProof,omitempty"`
}

type PutRecipeRequest struct {
	Recipe *models.Recipe `json:"recipe"`
}

type GetRecipeRequest struct {
	ID string `json:"id"`
}

type RecipeResponse struct {
	Recipe *models.Recipe `json:"recipe"`
}

type DeleteRecipesRequest struct {
	IDs []string `json:"ids"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type SetFavoriteRequest struct {
	RecipeID string `json:"recipeId"`
	On       bool   `json:"on"`
}

type CreateSuggestionRequest struct {
	RecipeID string `json:"recipeId"`
	Message  string `json:"message"`
}

type ListSuggestionsRequest struct {
	RecipeID string `json:"recipeId"`
}

type ResolveSuggestionRequest struct {
	ID     string                  `json:"id"`
	Status models.SuggestionStatus `json:"status"`
}

type SuggestionResponse struct {
	Suggestion *models.Suggestion `json:"suggestion"`
}

type SuggestionsResponse struct {
	Suggestions []*models.Suggestion `json:"suggestions"`
}

type ListNotificationsRequest struct {
	Limit int `json:"limit"`
}

type NotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	ID string `json:"id"`
}

type MarkAllNotificationsReadRequest struct{}

type GetProfileRequest struct {
	OwnerID string `json:"ownerId"`
}

type EnsureProfileRequest struct {
	DisplayName string `json:"displayName"`
}

type ProfileResponse struct {
	Profile *models.Profile `json:"profile"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"displayName"`
}

type UpdateAvatarRequest struct {
	Avatar models.Avatar `json:"avatar"`
}

type AvatarUploadURLRequest struct {
	ContentType string `json:"contentType"`
}

type AvatarUploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type FollowRequest struct {
	OwnerID string `json:"ownerId"`
}

type BoolResponse struct {
	Value bool `json:"value"`
}

type ListFollowingRequest struct{}

type IDsResponse struct {
	IDs []string `json:"ids"`
}

type MoveOwnershipRequest struct {
	Collection     string `json:"collection"`
	OldOwnerID     string `json:"oldOwnerId"`
	NewOwnerID     string `json:"newOwnerId"`
	NewDisplayName string `json:"newDisplayName"`
	Proof          string `json:"proof"`
}
