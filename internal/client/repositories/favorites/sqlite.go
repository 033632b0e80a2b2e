package favorites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/timex"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Toggle(ctx context.Context, ownerID, recipeID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE owner_id = ? AND recipe_id = ?`, ownerID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO favorites (owner_id, recipe_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(owner_id, recipe_id) DO NOTHING
	`, ownerID, recipeID, timex.Millis(now))
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) IsFavorite(ctx context.Context, ownerID, recipeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE owner_id = ? AND recipe_id = ?`, ownerID, recipeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner_id, recipe_id, created_at FROM favorites
		WHERE owner_id = ?
		ORDER BY created_at DESC, recipe_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var out []*models.Favorite
	for rows.Next() {
		f := &models.Favorite{}
		var created int64
		if err := rows.Scan(&f.OwnerID, &f.RecipeID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		f.CreatedAt = timex.FromMillis(created)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorite rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteByRecipes(ctx context.Context, recipeIDs []string) (int, error) {
	if len(recipeIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(recipeIDs)), ",")
	args := make([]any, len(recipeIDs))
	for i, id := range recipeIDs {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE recipe_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete favorites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete favorites: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) Rekey(ctx context.Context, oldOwnerID, newOwnerID string) (int, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (owner_id, recipe_id, created_at)
		SELECT ?, recipe_id, created_at FROM favorites WHERE owner_id = ?
		ON CONFLICT(owner_id, recipe_id) DO NOTHING
	`, newOwnerID, oldOwnerID); err != nil {
		return 0, fmt.Errorf("failed to rekey favorites: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE owner_id = ?`, oldOwnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to rekey favorites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to rekey favorites: %w", err)
	}
	return int(n), nil
}
