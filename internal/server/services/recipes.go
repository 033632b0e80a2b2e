package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/repomanager"
)

// RecipeService serves the published copies of recipes.
type RecipeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Collector
	logger      logging.Logger
}

func NewRecipeService(db *sql.DB, m repomanager.RepositoryManager, mc *metrics.Collector, l logging.Logger) *RecipeService {
	return &RecipeService{db: db, repomanager: m, metrics: mc, logger: l.With("module", "recipes")}
}

// Put publishes r on behalf of ownerID. Only the creator may publish or
// overwrite a recipe. The first publish bumps the owner's recipe count.
func (s *RecipeService) Put(ctx context.Context, ownerID string, r *models.Recipe) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("%w: recipe id is required", common.ErrValidation)
	}
	if err := models.ValidateContent(&r.Content); err != nil {
		return err
	}
	if r.CreatedBy.ID != ownerID {
		return common.ErrForbidden
	}
	shared := r.Shareable()

	var inserted bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recipes(tx)
		existing, err := repo.Get(ctx, r.ID)
		switch {
		case err == nil && existing.CreatedBy.ID != ownerID:
			return common.ErrForbidden
		case err != nil && !errors.Is(err, common.ErrNotFound):
			return err
		}

		if inserted, err = repo.Put(ctx, shared); err != nil {
			return err
		}
		if inserted {
			return s.repomanager.Profiles(tx).AddCounters(ctx, ownerID, profiles.Counters{Recipes: 1})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if inserted {
		s.metrics.RecipesPublished.Inc()
	}
	return nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*models.Recipe, error) {
	return s.repomanager.Recipes(s.db).Get(ctx, id)
}

// Delete removes the recipes among ids owned by ownerID and returns how many
// were removed. Ids owned by others are skipped silently.
func (s *RecipeService) Delete(ctx context.Context, ownerID string, ids []string) (int, error) {
	var n int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if n, err = s.repomanager.Recipes(tx).DeleteOwned(ctx, ownerID, ids); err != nil || n == 0 {
			return err
		}
		return s.repomanager.Profiles(tx).AddCounters(ctx, ownerID, profiles.Counters{Recipes: -int64(n)})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
