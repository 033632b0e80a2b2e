package favorites

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

func (r *PostgresRepository) Put(ctx context.Context, f *models.Favorite) (bool, error) {
	query :=
		`INSERT INTO favorites (owner_id, recipe_id, recipe_owner_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, recipe_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, f.OwnerID, f.RecipeID, f.RecipeOwnerID, f.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, recipeID string) (bool, error) {
	query := `DELETE FROM favorites WHERE owner_id = $1 AND recipe_id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, recipeID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) RekeyBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	query :=
		`WITH moved AS (
		   DELETE FROM favorites
		   WHERE owner_id = $1 AND recipe_id IN (
		     SELECT recipe_id FROM favorites WHERE owner_id = $1 LIMIT $3
		   )
		   RETURNING recipe_id, recipe_owner_id, created_at
		 ), inserted AS (
		   INSERT INTO favorites (owner_id, recipe_id, recipe_owner_id, created_at)
		   SELECT $2, recipe_id, recipe_owner_id, created_at FROM moved
		   ON CONFLICT (owner_id, recipe_id) DO NOTHING
		 )
		 SELECT count(*) FROM moved
		 `

	var n int
	if err := r.db.QueryRowContext(ctx, query, oldOwnerID, newOwnerID, limit).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ReassignRecipeOwnerBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	query :=
		`UPDATE favorites SET recipe_owner_id = $2
		 WHERE (owner_id, recipe_id) IN (
		   SELECT owner_id, recipe_id FROM favorites WHERE recipe_owner_id = $1 LIMIT $3
		 )
		 `

	res, err := r.db.ExecContext(ctx, query, oldOwnerID, newOwnerID, limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}
