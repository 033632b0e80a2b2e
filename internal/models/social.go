package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
)

// Favorite marks a recipe for an owner. (OwnerID, RecipeID) is unique.
type Favorite struct {
	OwnerID       string    `json:"ownerId"`
	RecipeID      string    `json:"recipeId"`
	RecipeOwnerID string    `json:"recipeOwnerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SuggestionStatus is the review state of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s SuggestionStatus) Terminal() bool {
	return s == SuggestionApproved || s == SuggestionRejected
}

// Suggestion is a proposed change sent to a recipe's owner.
type Suggestion struct {
	ID            string           `json:"id"`
	RecipeID      string           `json:"recipeId"`
	RecipeOwnerID string           `json:"recipeOwnerId"`
	RecipeTitle   string           `json:"recipeTitle"`
	SuggestedBy   Owner            `json:"suggestedBy"`
	Message       string           `json:"message"`
	Status        SuggestionStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Resolve moves s from pending to the terminal status to. Resolving to the
// status s already has is a no-op and reports changed=false; any other move
// out of a terminal status is ErrInvalidTransition.
func (s *Suggestion) Resolve(to SuggestionStatus) (changed bool, err error) {
	if !to.Terminal() {
		return false, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s.Status, to)
	}
	switch s.Status {
	case SuggestionPending:
		s.Status = to
		return true, nil
	case to:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s.Status, to)
	}
}

// NotificationType tells what happened to the recipient's recipe.
type NotificationType string

const (
	NotificationFavorite   NotificationType = "favorite"
	NotificationSuggestion NotificationType = "suggestion"
)

// Notification informs a recipe owner about someone else's action.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	Type        NotificationType `json:"type"`
	RecipeID    string           `json:"recipeId"`
	RecipeTitle string           `json:"recipeTitle"`
	RecipeEmoji string           `json:"recipeEmoji"`
	Actor       Owner            `json:"actor"`
	Message     string           `json:"message,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ShouldNotify reports whether an action by actorID on a recipe owned by
// recipientID produces a notification. Self-actions never do.
func ShouldNotify(actorID, recipientID string) bool {
	return actorID != "" && recipientID != "" && actorID != recipientID
}

// AvatarType selects how a profile picture is rendered.
type AvatarType string

const (
	AvatarGenerated AvatarType = "generated"
	AvatarEmoji     AvatarType = "emoji"
	AvatarUploaded  AvatarType = "uploaded"
)

// Avatar describes a profile picture.
type Avatar struct {
	Type    AvatarType `json:"photoType" validate:"oneof=generated emoji uploaded"`
	Emoji   string     `json:"photoEmoji,omitempty"`
	BgColor string     `json:"photoBgColor,omitempty"`
	URL     string     `json:"photoURL,omitempty"`
}

// Profile is the public face of an owner. Counters are maintained by
// increments and decrements, not recomputed, so they may drift.
type Profile struct {
	OwnerID        string    `json:"ownerId"`
	DisplayName    string    `json:"displayName"`
	Avatar         Avatar    `json:"avatar"`
	RecipeCount    int64     `json:"recipeCount"`
	FollowerCount  int64     `json:"followerCount"`
	FollowingCount int64     `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Follow is a directed edge between owners. (FollowerID, FollowingID) is unique.
type Follow struct {
	FollowerID          string    `json:"followerId"`
	FollowingID         string    `json:"followingId"`
	FollowerDisplayName string    `json:"followerDisplayName"`
	CreatedAt           time.Time `json:"createdAt"`
}
