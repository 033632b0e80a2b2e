// Package recipes is the device-side recipe store. It is the authoritative
// copy of every recipe the user has saved on this device.
package recipes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	// Create inserts a new recipe. The id must be unused.
	Create(ctx context.Context, r *models.Recipe) error
	// Put inserts or replaces a recipe by id.
	Put(ctx context.Context, r *models.Recipe) error
	// Get returns common.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.Recipe, error)
	ListByRoot(ctx context.Context, rootID string) ([]*models.Recipe, error)
	// ListRoots returns root recipes, newest first.
	ListRoots(ctx context.Context) ([]*models.Recipe, error)
	ListAll(ctx context.Context) ([]*models.Recipe, error)
	// CountByRoot returns the number of recipes per root id.
	CountByRoot(ctx context.Context) (map[string]int, error)
	// DeleteMany removes the given ids and returns how many existed.
	DeleteMany(ctx context.Context, ids []string) (int, error)
	// ReassignOwner moves every recipe created by oldOwnerID to newOwner,
	// bumping updatedAt to now, and returns how many moved.
	ReassignOwner(ctx context.Context, oldOwnerID string, newOwner models.Owner, now time.Time) (int, error)
}
