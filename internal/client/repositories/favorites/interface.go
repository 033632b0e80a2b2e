// Package favorites stores per-owner favorite marks on this device.
package favorites

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	// Toggle flips the mark for (ownerID, recipeID) and reports whether it
	// is now set.
	Toggle(ctx context.Context, ownerID, recipeID string, now time.Time) (bool, error)
	IsFavorite(ctx context.Context, ownerID, recipeID string) (bool, error)
	// ListByOwner returns the owner's favorites, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Favorite, error)
	// DeleteByRecipes drops marks of any owner on the given recipes.
	DeleteByRecipes(ctx context.Context, recipeIDs []string) (int, error)
	// Rekey moves every mark of oldOwnerID to newOwnerID keeping createdAt.
	// Marks newOwnerID already has are kept as they are.
	Rekey(ctx context.Context, oldOwnerID, newOwnerID string) (int, error)
}
