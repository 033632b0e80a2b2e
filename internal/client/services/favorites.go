package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/client/live"
	"github.com/dmitrijs2005/recipelab/internal/client/store"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
)

type FavoriteService interface {
	// Toggle flips the local mark and mirrors it to the remote store on a
	// best-effort basis. It returns the new local state.
	Toggle(ctx context.Context, ownerID, recipeID string) (bool, remote.Outcome, error)
	IsFavorite(ctx context.Context, ownerID, recipeID string) (bool, error)
	List(ctx context.Context, ownerID string) ([]*models.Favorite, error)
	Watch(ctx context.Context, ownerID string, onChange func([]*models.Favorite)) ([]*models.Favorite, func(), error)
}

type favoriteService struct {
	store  *store.Store
	remote remote.Favorites
	hub    *live.Hub
	logger logging.Logger
	now    func() time.Time
}

func NewFavoriteService(st *store.Store, rem remote.Favorites, hub *live.Hub, l logging.Logger) FavoriteService {
	return &favoriteService{store: st, remote: rem, hub: hub, logger: l.With("service", "favorites"), now: time.Now}
}

func (s *favoriteService) Toggle(ctx context.Context, ownerID, recipeID string) (bool, remote.Outcome, error) {
	on, err := s.store.Favorites.Toggle(ctx, ownerID, recipeID, s.now())
	if err != nil {
		return false, remote.Outcome{}, fmt.Errorf("toggle favorite: %w", err)
	}
	s.hub.Publish(ctx, live.TopicFavorites)

	if s.remote == nil {
		return on, remote.Outcome{Status: remote.Skipped}, nil
	}
	if err := s.remote.SetFavorite(ctx, recipeID, on); err != nil {
		s.logger.Warn(ctx, "remote favorite failed", "recipe_id", recipeID, "error", err)
		return on, remote.Failed(err), nil
	}
	return on, remote.Done(1), nil
}

func (s *favoriteService) IsFavorite(ctx context.Context, ownerID, recipeID string) (bool, error) {
	return s.store.Favorites.IsFavorite(ctx, ownerID, recipeID)
}

func (s *favoriteService) List(ctx context.Context, ownerID string) ([]*models.Favorite, error) {
	return s.store.Favorites.ListByOwner(ctx, ownerID)
}

func (s *favoriteService) Watch(ctx context.Context, ownerID string, onChange func([]*models.Favorite)) ([]*models.Favorite, func(), error) {
	q := func(ctx context.Context) ([]*models.Favorite, error) {
		return s.store.Favorites.ListByOwner(ctx, ownerID)
	}
	return live.Watch(ctx, s.hub, []live.Topic{live.TopicFavorites}, q, onChange)
}
