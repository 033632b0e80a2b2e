// Package favorites stores the remote mirror of favorite marks.
package favorites

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	// Put stores f and reports whether it was new.
	Put(ctx context.Context, f *models.Favorite) (bool, error)

	// Delete removes the mark and reports whether one existed.
	Delete(ctx context.Context, ownerID, recipeID string) (bool, error)

	// RekeyBatch moves at most limit favorites of oldOwnerID under
	// newOwnerID, keeping their creation time. A mark the new owner
	// already holds absorbs the old one.
	RekeyBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error)

	// ReassignRecipeOwnerBatch points at most limit marks on recipes of
	// oldOwnerID at newOwnerID.
	ReassignRecipeOwnerBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error)
}
