package suggestions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
)

const columns = `id, recipe_id, recipe_owner_id, recipe_title, suggested_by_id, suggested_by_name, message, status, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row scanner) (*models.Suggestion, error) {
	s := &models.Suggestion{}
	var status string
	if err := row.Scan(&s.ID, &s.RecipeID, &s.RecipeOwnerID, &s.RecipeTitle,
		&s.SuggestedBy.ID, &s.SuggestedBy.DisplayName, &s.Message, &status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Status = models.SuggestionStatus(status)
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Suggestion) error {
	query := `INSERT INTO suggestions (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query, s.ID, s.RecipeID, s.RecipeOwnerID, s.RecipeTitle,
		s.SuggestedBy.ID, s.SuggestedBy.DisplayName, s.Message, string(s.Status), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Suggestion, error) {
	query := `SELECT ` + columns + ` FROM suggestions WHERE id = $1`

	s, err := scanSuggestion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByRecipe(ctx context.Context, recipeID string) ([]*models.Suggestion, error) {
	query := `SELECT ` + columns + ` FROM suggestions WHERE recipe_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.SuggestionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE suggestions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ReassignRecipeOwnerBatch(ctx context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	query :=
		`UPDATE suggestions SET recipe_owner_id = $2
		 WHERE id IN (SELECT id FROM suggestions WHERE recipe_owner_id = $1 LIMIT $3)
		 `
	return r.exec(ctx, query, oldOwnerID, newOwnerID, limit)
}

func (r *PostgresRepository) ReassignSuggesterBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	query :=
		`UPDATE suggestions SET suggested_by_id = $2, suggested_by_name = $3
		 WHERE id IN (SELECT id FROM suggestions WHERE suggested_by_id = $1 LIMIT $4)
		 `
	return r.exec(ctx, query, oldOwnerID, newOwner.ID, newOwner.DisplayName, limit)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int, error) {
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
