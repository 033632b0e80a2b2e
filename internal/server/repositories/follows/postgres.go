package follows

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) affected(ctx context.Context, query string, args ...any) (int, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.Follow) (bool, error) {
	query :=
		`INSERT INTO follows (follower_id, following_id, follower_display_name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (follower_id, following_id) DO NOTHING
		 `
	n, err := r.affected(ctx, query, f.FollowerID, f.FollowingID, f.FollowerDisplayName, f.CreatedAt)
	return n > 0, err
}

func (r *PostgresRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	n, err := r.affected(ctx, query, followerID, followingID)
	return n > 0, err
}

func (r *PostgresRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followingID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) ListFollowing(ctx context.Context, followerID string) ([]string, error) {
	query :=
		`SELECT following_id FROM follows
		 WHERE follower_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, followerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

// An edge that would become a self-follow after the move is dropped.
func (r *PostgresRepository) RekeyFollowerBatch(ctx context.Context, oldID, newID string, limit int) (int, error) {
	query :=
		`WITH moved AS (
		   DELETE FROM follows
		   WHERE follower_id = $1 AND following_id IN (
		     SELECT following_id FROM follows WHERE follower_id = $1 LIMIT $3
		   )
		   RETURNING following_id, follower_display_name, created_at
		 ), inserted AS (
		   INSERT INTO follows (follower_id, following_id, follower_display_name, created_at)
		   SELECT $2, following_id, follower_display_name, created_at FROM moved
		   WHERE following_id <> $2
		   ON CONFLICT (follower_id, following_id) DO NOTHING
		 )
		 SELECT count(*) FROM moved
		 `
	return r.count(ctx, query, oldID, newID, limit)
}

func (r *PostgresRepository) RekeyFollowingBatch(ctx context.Context, oldID, newID string, limit int) (int, error) {
	query :=
		`WITH moved AS (
		   DELETE FROM follows
		   WHERE following_id = $1 AND follower_id IN (
		     SELECT follower_id FROM follows WHERE following_id = $1 LIMIT $3
		   )
		   RETURNING follower_id, follower_display_name, created_at
		 ), inserted AS (
		   INSERT INTO follows (follower_id, following_id, follower_display_name, created_at)
		   SELECT follower_id, $2, follower_display_name, created_at FROM moved
		   WHERE follower_id <> $2
		   ON CONFLICT (follower_id, following_id) DO NOTHING
		 )
		 SELECT count(*) FROM moved
		 `
	return r.count(ctx, query, oldID, newID, limit)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
