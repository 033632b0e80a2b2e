package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/client/live"
	"github.com/dmitrijs2005/recipelab/internal/client/store"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"golang.org/x/sync/errgroup"
)

// MigrationRequest names the owner ids to rewrite. Proof is the ownership
// token issued to OldOwnerID; without it the remote legs are refused.
type MigrationRequest struct {
	OldOwnerID     string
	NewOwnerID     string
	NewDisplayName string
	Proof          string
}

// MigrationReport tells what a migration run did. Remote has one outcome per
// remote collection.
type MigrationReport struct {
	Noop           bool
	LocalRecipes   int
	LocalFavorites int
	Remote         map[remote.Collection]remote.Outcome
}

// Complete reports whether every leg is known to have finished.
func (r *MigrationReport) Complete() bool {
	if r.Noop {
		return true
	}
	for _, o := range r.Remote {
		if o.Status == remote.Unconfirmed {
			return false
		}
	}
	return true
}

// Migrator rewrites ownership from one owner id to another in the local store
// and in every remote collection. Runs are idempotent: each leg moves
// whatever is still under the old id, so a rerun after a partial failure
// finishes the job.
type Migrator interface {
	Migrate(ctx context.Context, req MigrationRequest) (*MigrationReport, error)
}

type migrator struct {
	store  *store.Store
	remote remote.Ownership
	hub    *live.Hub
	logger logging.Logger
	now    func() time.Time
}

// NewMigrator builds a Migrator. rem may be nil, in which case remote legs
// are reported as skipped.
func NewMigrator(st *store.Store, rem remote.Ownership, hub *live.Hub, l logging.Logger) Migrator {
	return &migrator{store: st, remote: rem, hub: hub, logger: l.With("service", "migrator"), now: time.Now}
}

// Migrate runs the local leg and the remote legs concurrently. Only a local
// failure is returned; remote failures are logged and recorded in the report.
func (m *migrator) Migrate(ctx context.Context, req MigrationRequest) (*MigrationReport, error) {
	report := &MigrationReport{Remote: make(map[remote.Collection]remote.Outcome, len(remote.Collections))}
	if req.OldOwnerID == req.NewOwnerID {
		report.Noop = true
		return report, nil
	}

	m.logger.Info(ctx, "migration started", "old_owner", req.OldOwnerID, "new_owner", req.NewOwnerID)

	var g errgroup.Group
	g.Go(func() error {
		return m.migrateLocal(ctx, req, report)
	})
	g.Go(func() error {
		m.migrateRemote(ctx, req, report)
		return nil
	})
	err := g.Wait()

	m.logger.Info(ctx, "migration finished",
		"old_owner", req.OldOwnerID,
		"new_owner", req.NewOwnerID,
		"recipes", report.LocalRecipes,
		"favorites", report.LocalFavorites,
		"complete", err == nil && report.Complete(),
	)
	if err != nil {
		return report, fmt.Errorf("local migration: %w", err)
	}
	return report, nil
}

func (m *migrator) migrateLocal(ctx context.Context, req MigrationRequest, report *MigrationReport) error {
	owner := models.Owner{ID: req.NewOwnerID, DisplayName: req.NewDisplayName}
	var recipes, favorites int
	err := m.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		var err error
		if recipes, err = r.Recipes.ReassignOwner(ctx, req.OldOwnerID, owner, m.now()); err != nil {
			return err
		}
		favorites, err = r.Favorites.Rekey(ctx, req.OldOwnerID, req.NewOwnerID)
		return err
	})
	if err != nil {
		return err
	}
	report.LocalRecipes, report.LocalFavorites = recipes, favorites
	m.hub.Publish(ctx, live.TopicRecipes, live.TopicFavorites)
	return nil
}

// migrateRemote rewrites each remote collection independently. One failing
// collection neither blocks nor cancels the others.
func (m *migrator) migrateRemote(ctx context.Context, req MigrationRequest, report *MigrationReport) {
	var mu sync.Mutex
	record := func(c remote.Collection, o remote.Outcome) {
		mu.Lock()
		report.Remote[c] = o
		mu.Unlock()
	}

	if m.remote == nil {
		for _, c := range remote.Collections {
			record(c, remote.Outcome{Status: remote.Skipped})
		}
		return
	}

	move := remote.MoveRequest{
		OldOwnerID:     req.OldOwnerID,
		NewOwnerID:     req.NewOwnerID,
		NewDisplayName: req.NewDisplayName,
		Proof:          req.Proof,
	}

	var g errgroup.Group
	for _, c := range remote.Collections {
		g.Go(func() error {
			n, err := m.remote.MoveOwnership(ctx, c, move)
			if err != nil {
				m.logger.Warn(ctx, "remote migration failed", "collection", string(c), "error", err)
				record(c, remote.Failed(err))
				return nil
			}
			record(c, remote.Done(n))
			return nil
		})
	}
	_ = g.Wait()
}
