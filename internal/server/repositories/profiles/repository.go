// Package profiles stores public owner profiles and their counters.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

// Counters is a set of increments applied to a profile in one statement.
type Counters struct {
	Recipes   int64
	Followers int64
	Following int64
}

type Repository interface {
	// Get returns common.ErrNotFound when ownerID has no profile.
	Get(ctx context.Context, ownerID string) (*models.Profile, error)

	// Create stores p unless a profile already exists and reports whether it did.
	Create(ctx context.Context, p *models.Profile) (bool, error)

	UpdateDisplayName(ctx context.Context, ownerID, name string) error
	UpdateAvatar(ctx context.Context, ownerID string, a models.Avatar) error

	// AddCounters applies c to the profile of ownerID. A missing profile is
	// not an error.
	AddCounters(ctx context.Context, ownerID string, c Counters) error

	Delete(ctx context.Context, ownerID string) error
}
