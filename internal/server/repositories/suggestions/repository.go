// Package suggestions stores change proposals sent to recipe owners.
package suggestions

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Suggestion) error

	// Get returns common.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*models.Suggestion, error)

	// ListByRecipe returns the suggestions of recipeID, newest first.
	ListByRecipe(ctx context.Context, recipeID string) ([]*models.Suggestion, error)

	UpdateStatus(ctx context.Context, id string, status models.SuggestionStatus) error

	// ReassignRecipeOwnerBatch points at most limit suggestions addressed
	// to oldOwnerID at newOwnerID.
	ReassignRecipeOwnerBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error)

	// ReassignSuggesterBatch credits at most limit suggestions written by
	// oldOwnerID to newOwner.
	ReassignSuggesterBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error)
}
