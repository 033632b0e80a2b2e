package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MaxNotifications caps one notification listing.
const MaxNotifications = 50

// SocialService handles favorites, suggestions, notifications, profiles and
// follows. Counters are adjusted by increments inside the same transaction
// as the record they count.
type SocialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Collector
	logger      logging.Logger
	now         func() time.Time
}

func NewSocialService(db *sql.DB, m repomanager.RepositoryManager, mc *metrics.Collector, l logging.Logger) *SocialService {
	return &SocialService{db: db, repomanager: m, metrics: mc, logger: l.With("module", "social"), now: time.Now}
}

// owner resolves the display name snapshot of ownerID.
func (s *SocialService) owner(ctx context.Context, db dbx.DBTX, ownerID string) models.Owner {
	if p, err := s.repomanager.Profiles(db).Get(ctx, ownerID); err == nil && p.DisplayName != "" {
		return models.Owner{ID: ownerID, DisplayName: p.DisplayName}
	}
	if a, err := s.repomanager.Accounts(db).GetByID(ctx, ownerID); err == nil && a.DisplayName != "" {
		return models.Owner{ID: ownerID, DisplayName: a.DisplayName}
	}
	return models.Owner{ID: ownerID, DisplayName: models.DisplayNameFor(ownerID)}
}

func (s *SocialService) notify(ctx context.Context, tx dbx.DBTX, typ models.NotificationType, r *models.Recipe, actor models.Owner, message string) error {
	if !models.ShouldNotify(actor.ID, r.CreatedBy.ID) {
		return nil
	}
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: r.CreatedBy.ID,
		Type:        typ,
		RecipeID:    r.ID,
		RecipeTitle: r.Title,
		RecipeEmoji: r.Emoji,
		Actor:       actor,
		Message:     message,
		CreatedAt:   s.now(),
	}
	if err := s.repomanager.Notifications(tx).Create(ctx, n); err != nil {
		return err
	}
	s.metrics.Notifications.WithLabelValues(string(typ)).Inc()
	return nil
}

// SetFavorite marks or unmarks recipeID for actorID. Repeating a toggle is a
// no-op; the recipe owner hears about new marks from others.
func (s *SocialService) SetFavorite(ctx context.Context, actorID, recipeID string, on bool) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recipes := s.repomanager.Recipes(tx)
		r, err := recipes.Get(ctx, recipeID)
		if err != nil {
			return err
		}

		favs := s.repomanager.Favorites(tx)
		if !on {
			removed, err := favs.Delete(ctx, actorID, recipeID)
			if err != nil || !removed {
				return err
			}
			return recipes.AdjustFavoriteCount(ctx, recipeID, -1)
		}

		added, err := favs.Put(ctx, &models.Favorite{
			OwnerID: actorID, RecipeID: recipeID, RecipeOwnerID: r.CreatedBy.ID, CreatedAt: s.now(),
		})
		if err != nil || !added {
			return err
		}
		if err := recipes.AdjustFavoriteCount(ctx, recipeID, 1); err != nil {
			return err
		}
		return s.notify(ctx, tx, models.NotificationFavorite, r, s.owner(ctx, tx, actorID), "")
	})
}

func (s *SocialService) CreateSuggestion(ctx context.Context, actorID, recipeID, message string) (*models.Suggestion, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", common.ErrValidation)
	}

	var out *models.Suggestion
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r, err := s.repomanager.Recipes(tx).Get(ctx, recipeID)
		if err != nil {
			return err
		}
		actor := s.owner(ctx, tx, actorID)
		out = &models.Suggestion{
			ID:            uuid.NewString(),
			RecipeID:      r.ID,
			RecipeOwnerID: r.CreatedBy.ID,
			RecipeTitle:   r.Title,
			SuggestedBy:   actor,
			Message:       message,
			Status:        models.SuggestionPending,
			CreatedAt:     s.now(),
		}
		if err := s.repomanager.Suggestions(tx).Create(ctx, out); err != nil {
			return err
		}
		return s.notify(ctx, tx, models.NotificationSuggestion, r, actor, message)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SocialService) ListSuggestions(ctx context.Context, recipeID string) ([]*models.Suggestion, error) {
	return s.repomanager.Suggestions(s.db).ListByRecipe(ctx, recipeID)
}

// ResolveSuggestion lets the recipe owner approve or reject a suggestion.
// Ownership is read from the recipe itself while it exists, so a suggestion
// addressed to a since-migrated owner id stays resolvable.
// Approval credits the suggester as a collaborator once; repeating the same
// resolution changes nothing.
func (s *SocialService) ResolveSuggestion(ctx context.Context, actorID, id string, to models.SuggestionStatus) (*models.Suggestion, error) {
	var out *models.Suggestion
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Suggestions(tx)
		sg, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		owner := sg.RecipeOwnerID
		r, err := s.repomanager.Recipes(tx).Get(ctx, sg.RecipeID)
		switch {
		case err == nil:
			owner = r.CreatedBy.ID
		case !errors.Is(err, common.ErrNotFound):
			return err
		}
		if owner != actorID {
			return common.ErrForbidden
		}

		changed, err := sg.Resolve(to)
		if err != nil {
			return err
		}
		out = sg
		if !changed {
			return nil
		}
		if err := repo.UpdateStatus(ctx, id, sg.Status); err != nil {
			return err
		}
		if sg.Status == models.SuggestionApproved {
			_, err := s.repomanager.Recipes(tx).AddCollaborator(ctx, sg.RecipeID, sg.SuggestedBy)
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListNotifications returns the newest notifications of recipientID. A
// limit outside 1..MaxNotifications means MaxNotifications.
func (s *SocialService) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > MaxNotifications {
		limit = MaxNotifications
	}
	return s.repomanager.Notifications(s.db).List(ctx, recipientID, limit)
}

func (s *SocialService) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	return s.repomanager.Notifications(s.db).MarkRead(ctx, recipientID, id)
}

func (s *SocialService) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	return s.repomanager.Notifications(s.db).MarkAllRead(ctx, recipientID)
}

func (s *SocialService) GetProfile(ctx context.Context, ownerID string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.db).Get(ctx, ownerID)
}

// EnsureProfile creates the profile of ownerID on first call and returns
// the stored one. An empty name falls back to the derived one.
func (s *SocialService) EnsureProfile(ctx context.Context, ownerID, displayName string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = models.DisplayNameFor(ownerID)
	}

	repo := s.repomanager.Profiles(s.db)
	created, err := repo.Create(ctx, &models.Profile{
		OwnerID:     ownerID,
		DisplayName: displayName,
		Avatar:      models.GeneratedAvatar(ownerID),
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info(ctx, "profile created", "owner_id", ownerID)
	}
	return repo.Get(ctx, ownerID)
}

func (s *SocialService) UpdateDisplayName(ctx context.Context, ownerID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: display name is required", common.ErrValidation)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Profiles(tx).UpdateDisplayName(ctx, ownerID, name); err != nil {
			return err
		}
		err := s.repomanager.Accounts(tx).UpdateDisplayName(ctx, ownerID, name)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (s *SocialService) UpdateAvatar(ctx context.Context, ownerID string, a models.Avatar) error {
	if err := models.ValidateAvatar(&a); err != nil {
		return err
	}
	return s.repomanager.Profiles(s.db).UpdateAvatar(ctx, ownerID, a)
}

// Follow adds the edge actorID -> targetID and bumps both counters once.
func (s *SocialService) Follow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return common.ErrSelfAction
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Follows(tx).Create(ctx, &models.Follow{
			FollowerID:          actorID,
			FollowingID:         targetID,
			FollowerDisplayName: s.owner(ctx, tx, actorID).DisplayName,
			CreatedAt:           s.now(),
		})
		if err != nil || !created {
			return err
		}
		return s.adjustFollowCounters(ctx, tx, actorID, targetID, 1)
	})
}

func (s *SocialService) Unfollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return common.ErrSelfAction
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := s.repomanager.Follows(tx).Delete(ctx, actorID, targetID)
		if err != nil || !removed {
			return err
		}
		return s.adjustFollowCounters(ctx, tx, actorID, targetID, -1)
	})
}

func (s *SocialService) adjustFollowCounters(ctx context.Context, tx dbx.DBTX, followerID, followingID string, delta int64) error {
	p := s.repomanager.Profiles(tx)
	if err := p.AddCounters(ctx, followerID, profiles.Counters{Following: delta}); err != nil {
		return err
	}
	return p.AddCounters(ctx, followingID, profiles.Counters{Followers: delta})
}

func (s *SocialService) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	return s.repomanager.Follows(s.db).Exists(ctx, actorID, targetID)
}

func (s *SocialService) ListFollowing(ctx context.Context, actorID string) ([]string, error) {
	return s.repomanager.Follows(s.db).ListFollowing(ctx, actorID)
}
