package remote

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

// Collection names a remote sub-collection rewritten during migration.
type Collection string

const (
	CollectionRecipes       Collection = "recipes"
	CollectionFavorites     Collection = "favorites"
	CollectionNotifications Collection = "notifications"
	CollectionProfile       Collection = "profile"
	CollectionFollows       Collection = "follows"
	CollectionSuggestions   Collection = "suggestions"
)

// Collections lists every remote collection that carries an owner id.
var Collections = []Collection{
	CollectionRecipes,
	CollectionFavorites,
	CollectionNotifications,
	CollectionProfile,
	CollectionFollows,
	CollectionSuggestions,
}

// MoveRequest asks the remote store to move one collection from OldOwnerID
// to NewOwnerID. Proof is a token issued to OldOwnerID.
type MoveRequest struct {
	OldOwnerID     string
	NewOwnerID     string
	NewDisplayName string
	Proof          string
}

// Identity is a signed-in principal as reported by the identity provider.
type Identity struct {
	OwnerID     string
	IsAnonymous bool
	DisplayName string
	Email       string
}

// Session carries the credentials issued on sign-in.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	// OwnershipProof lets a later session claim records of this identity.
	OwnershipProof string
}

// Recipes mirrors published recipes.
type Recipes interface {
	PutRecipe(ctx context.Context, r *models.Recipe) error
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	DeleteRecipes(ctx context.Context, ids []string) (int, error)
}

// Favorites mirrors favorite marks of the signed-in owner.
type Favorites interface {
	SetFavorite(ctx context.Context, recipeID string, on bool) error
}

// Ownership rewrites owner references in one collection and returns how
// many records moved.
type Ownership interface {
	MoveOwnership(ctx context.Context, c Collection, req MoveRequest) (int, error)
}

// IdentityProvider issues and upgrades identities.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (*Session, error)
	// LinkEmail upgrades the current anonymous identity in place. It fails
	// with common.ErrCredentialInUse if the email belongs to another account.
	LinkEmail(ctx context.Context, email string) (*Session, error)
	SignInWithEmail(ctx context.Context, email string) (*Session, error)
	SignOut(ctx context.Context) error
	// Resume restores a session from persisted tokens.
	Resume(ctx context.Context, accessToken, refreshToken string) (*Session, error)
}

// Social covers the collections that hang off recipes and owners.
type Social interface {
	CreateSuggestion(ctx context.Context, recipeID, message string) (*models.Suggestion, error)
	ListSuggestions(ctx context.Context, recipeID string) ([]*models.Suggestion, error)
	ResolveSuggestion(ctx context.Context, id string, to models.SuggestionStatus) (*models.Suggestion, error)

	ListNotifications(ctx context.Context) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int, error)

	GetProfile(ctx context.Context, ownerID string) (*models.Profile, error)
	EnsureProfile(ctx context.Context, displayName string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, displayName string) error
	UpdateAvatar(ctx context.Context, a models.Avatar) error
	AvatarUploadURL(ctx context.Context, contentType string) (key, url string, err error)

	Follow(ctx context.Context, ownerID string) error
	Unfollow(ctx context.Context, ownerID string) error
	IsFollowing(ctx context.Context, ownerID string) (bool, error)
	ListFollowing(ctx context.Context) ([]string, error)
}
