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
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"github.com/dmitrijs2005/recipelab/internal/server/config"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/repomanager"
)

// OwnershipService hands the records of one owner id to another, one
// collection per call. Every collection is drained in groups of batchSize
// rows that commit on their own, so an interrupted move can simply be
// repeated.
type OwnershipService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Collector
	logger      logging.Logger
	jwtSecret   []byte
	batchSize   int
	policy      config.ProfilePolicy
}

func NewOwnershipService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, mc *metrics.Collector, l logging.Logger) *OwnershipService {
	return &OwnershipService{
		db:          db,
		repomanager: m,
		metrics:     mc,
		logger:      l.With("module", "ownership"),
		jwtSecret:   []byte(cfg.SecretKey),
		batchSize:   cfg.MigrationBatchSize,
		policy:      cfg.ProfilePolicy,
	}
}

// MoveOwnership moves collection c from req.OldOwnerID to req.NewOwnerID on
// behalf of callerID and returns how many records moved. The caller must be
// the new owner and must present a proof issued to the old one.
func (s *OwnershipService) MoveOwnership(ctx context.Context, callerID string, c remote.Collection, req remote.MoveRequest) (int, error) {
	if req.NewOwnerID != callerID {
		return 0, fmt.Errorf("%w: caller is not the new owner", common.ErrForbidden)
	}
	if req.OldOwnerID == "" {
		return 0, fmt.Errorf("%w: old owner id is required", common.ErrValidation)
	}
	if req.OldOwnerID == req.NewOwnerID {
		return 0, nil
	}
	proven, err := auth.OwnerIDFromProof(req.Proof, s.jwtSecret)
	if err != nil || proven != req.OldOwnerID {
		return 0, fmt.Errorf("%w: ownership proof does not match", common.ErrForbidden)
	}

	name := req.NewDisplayName
	if name == "" {
		name = models.DisplayNameFor(req.NewOwnerID)
	}
	newOwner := models.Owner{ID: req.NewOwnerID, DisplayName: name}

	var n int
	switch c {
	case remote.CollectionRecipes:
		n, err = s.drainAll(ctx, c,
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Recipes(tx).MoveOwnerBatch(ctx, req.OldOwnerID, newOwner, limit)
			},
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Recipes(tx).MoveCollaboratorBatch(ctx, req.OldOwnerID, newOwner, limit)
			})
	case remote.CollectionFavorites:
		n, err = s.drainAll(ctx, c,
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Favorites(tx).RekeyBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
			},
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Favorites(tx).ReassignRecipeOwnerBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
			})
	case remote.CollectionSuggestions:
		n, err = s.drainAll(ctx, c,
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Suggestions(tx).ReassignRecipeOwnerBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
			},
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Suggestions(tx).ReassignSuggesterBatch(ctx, req.OldOwnerID, newOwner, limit)
			})
	case remote.CollectionNotifications:
		n, err = s.drain(ctx, c, func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
			return s.repomanager.Notifications(tx).ReassignBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
		})
	case remote.CollectionFollows:
		n, err = s.drainAll(ctx, c,
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Follows(tx).RekeyFollowerBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
			},
			func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
				return s.repomanager.Follows(tx).RekeyFollowingBatch(ctx, req.OldOwnerID, req.NewOwnerID, limit)
			})
	case remote.CollectionProfile:
		n, err = s.moveProfile(ctx, req.OldOwnerID, newOwner)
	default:
		return 0, fmt.Errorf("%w: unknown collection %q", common.ErrValidation, c)
	}

	if n > 0 {
		s.metrics.RecordsMoved.WithLabelValues(string(c)).Add(float64(n))
	}
	if err != nil {
		s.metrics.MoveFailures.WithLabelValues(string(c)).Inc()
		s.logger.Warn(ctx, "ownership move interrupted", "collection", c, "old", req.OldOwnerID, "new", req.NewOwnerID, "moved", n, "error", err)
		return n, err
	}
	s.logger.Info(ctx, "ownership moved", "collection", c, "old", req.OldOwnerID, "new", req.NewOwnerID, "moved", n)
	return n, nil
}

func (s *OwnershipService) drain(ctx context.Context, c remote.Collection, step dbx.BatchStep) (int, error) {
	batches := s.metrics.BatchesCommitted.WithLabelValues(string(c))
	return dbx.DrainInBatches(ctx, s.db, s.batchSize, func(ctx context.Context, tx dbx.DBTX, limit int) (int, error) {
		n, err := step(ctx, tx, limit)
		if err == nil && n > 0 {
			batches.Inc()
		}
		return n, err
	})
}

// drainAll runs each step to completion in turn and sums the rows they moved.
// A later step does not start once an earlier one failed.
func (s *OwnershipService) drainAll(ctx context.Context, c remote.Collection, steps ...dbx.BatchStep) (int, error) {
	total := 0
	for _, step := range steps {
		n, err := s.drain(ctx, c, step)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// moveProfile copies the old profile under the new id, or resolves a clash
// with an existing new profile by the configured policy, then drops the old one.
func (s *OwnershipService) moveProfile(ctx context.Context, oldID string, newOwner models.Owner) (int, error) {
	moved, merged := 0, false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)
		old, err := repo.Get(ctx, oldID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = repo.Get(ctx, newOwner.ID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			cp := *old
			cp.OwnerID, cp.DisplayName = newOwner.ID, newOwner.DisplayName
			if _, err := repo.Create(ctx, &cp); err != nil {
				return err
			}
		case err != nil:
			return err
		case s.policy == config.ProfileMerge:
			if err := repo.AddCounters(ctx, newOwner.ID, profiles.Counters{
				Recipes:   old.RecipeCount,
				Followers: old.FollowerCount,
				Following: old.FollowingCount,
			}); err != nil {
				return err
			}
			merged = true
		}

		if err := repo.Delete(ctx, oldID); err != nil {
			return err
		}
		moved = 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	if merged {
		s.metrics.ProfileMerges.Inc()
	}
	return moved, nil
}
