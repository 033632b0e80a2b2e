// Package recipes stores published recipes of the remote store.
package recipes

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	// Put inserts or replaces r and reports whether it was newly inserted.
	Put(ctx context.Context, r *models.Recipe) (bool, error)

	// Get returns common.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*models.Recipe, error)

	// DeleteOwned removes the recipes among ids owned by ownerID and
	// returns how many went away. Ids owned by others are left alone.
	DeleteOwned(ctx context.Context, ownerID string, ids []string) (int, error)

	// AddCollaborator credits o on recipe id with set semantics and reports
	// whether o was added.
	AddCollaborator(ctx context.Context, id string, o models.Owner) (bool, error)

	AdjustFavoriteCount(ctx context.Context, id string, delta int) error

	// MoveOwnerBatch hands at most limit recipes of oldOwnerID to newOwner.
	MoveOwnerBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error)

	// MoveCollaboratorBatch replaces oldOwnerID with newOwner in the
	// collaborators of at most limit recipes. Where newOwner is already
	// credited the old entry is dropped.
	MoveCollaboratorBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error)
}
