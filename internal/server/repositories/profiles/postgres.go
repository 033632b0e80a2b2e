package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.Profile, error) {
	query :=
		`SELECT owner_id, display_name, avatar, recipe_count, follower_count, following_count, created_at
		 FROM profiles
		 WHERE owner_id = $1
		 `

	p := &models.Profile{}
	var avatar []byte
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&p.OwnerID, &p.DisplayName, &avatar,
		&p.RecipeCount, &p.FollowerCount, &p.FollowingCount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(avatar, &p.Avatar); err != nil {
		return nil, fmt.Errorf("decode avatar %s: %w", ownerID, err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (bool, error) {
	avatar, err := json.Marshal(p.Avatar)
	if err != nil {
		return false, err
	}

	query :=
		`INSERT INTO profiles (owner_id, display_name, avatar, recipe_count, follower_count, following_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (owner_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, p.OwnerID, p.DisplayName, avatar,
		p.RecipeCount, p.FollowerCount, p.FollowingCount, p.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, ownerID, name string) error {
	return r.exec(ctx, `UPDATE profiles SET display_name = $2 WHERE owner_id = $1`, ownerID, name)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, ownerID string, a models.Avatar) error {
	avatar, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.exec(ctx, `UPDATE profiles SET avatar = $2 WHERE owner_id = $1`, ownerID, avatar)
}

// AddCounters never lets a counter go below zero.
func (r *PostgresRepository) AddCounters(ctx context.Context, ownerID string, c Counters) error {
	query :=
		`UPDATE profiles SET
		   recipe_count = GREATEST(recipe_count + $2, 0),
		   follower_count = GREATEST(follower_count + $3, 0),
		   following_count = GREATEST(following_count + $4, 0)
		 WHERE owner_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, ownerID, c.Recipes, c.Followers, c.Following); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
