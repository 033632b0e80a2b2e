// Package follows stores directed follow edges between owners.
package follows

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	// Create stores f and reports whether the edge was new.
	Create(ctx context.Context, f *models.Follow) (bool, error)

	// Delete removes the edge and reports whether it existed.
	Delete(ctx context.Context, followerID, followingID string) (bool, error)

	Exists(ctx context.Context, followerID, followingID string) (bool, error)

	// ListFollowing returns the ids followerID follows, newest first.
	ListFollowing(ctx context.Context, followerID string) ([]string, error)

	// RekeyFollowerBatch moves at most limit edges leaving oldID so they
	// leave newID instead.
	RekeyFollowerBatch(ctx context.Context, oldID, newID string, limit int) (int, error)

	// RekeyFollowingBatch moves at most limit edges reaching oldID so they
	// reach newID instead.
	RekeyFollowingBatch(ctx context.Context, oldID, newID string, limit int) (int, error)
}
