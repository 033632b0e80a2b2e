package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query :=
		`INSERT INTO accounts (id, email, is_anonymous, display_name)
		 VALUES ($1, NULLIF($2, ''), $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.ID, a.Email, a.IsAnonymous, a.DisplayName).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrCredentialInUse
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg string) (*models.Account, error) {
	query := `SELECT id, email, is_anonymous, display_name, created_at FROM accounts WHERE ` + where

	a := &models.Account{}
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &email, &a.IsAnonymous, &a.DisplayName, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.Email = email.String
	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.get(ctx, "email = $1", email)
}

func (r *PostgresRepository) LinkEmail(ctx context.Context, id, email string) error {
	query :=
		`UPDATE accounts SET email = $2, is_anonymous = FALSE
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, email)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrCredentialInUse
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, id, name string) error {
	query := `UPDATE accounts SET display_name = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
