package recipes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/timex"
)

// document is the JSON column holding everything but lineage, ownership and
// timestamps.
type document struct {
	models.Content
	Prompt        string               `json:"prompt"`
	ChatHistory   []models.ChatMessage `json:"chatHistory"`
	Collaborators []models.Owner       `json:"collaborators"`
}

const selectColumns = `id, parent_id, root_id, depth, owner_id, owner_name, document, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encode(r *models.Recipe) (string, error) {
	b, err := json.Marshal(document{
		Content:       r.Content,
		Prompt:        r.Prompt,
		ChatHistory:   r.ChatHistory,
		Collaborators: r.Collaborators,
	})
	if err != nil {
		return "", fmt.Errorf("encode recipe %s: %w", r.ID, err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) insert(ctx context.Context, verb string, rec *models.Recipe) error {
	doc, err := encode(rec)
	if err != nil {
		return err
	}
	q := verb + ` INTO recipes (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, nullable(rec.ParentID), rec.RootID, rec.Depth,
		rec.CreatedBy.ID, rec.CreatedBy.DisplayName, doc,
		timex.Millis(rec.CreatedAt), timex.Millis(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store recipe %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Create(ctx context.Context, rec *models.Recipe) error {
	return r.insert(ctx, "INSERT", rec)
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Recipe) error {
	return r.insert(ctx, "INSERT OR REPLACE", rec)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s scanner) (*models.Recipe, error) {
	var (
		rec                  models.Recipe
		parent               sql.NullString
		doc                  string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&rec.ID, &parent, &rec.RootID, &rec.Depth,
		&rec.CreatedBy.ID, &rec.CreatedBy.DisplayName, &doc, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var d document
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("decode recipe %s: %w", rec.ID, err)
	}
	rec.ParentID = parent.String
	rec.Content = d.Content
	rec.Prompt = d.Prompt
	rec.ChatHistory = d.ChatHistory
	rec.Collaborators = d.Collaborators
	rec.CreatedAt = timex.FromMillis(createdAt)
	rec.UpdatedAt = timex.FromMillis(updatedAt)
	return &rec, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recipes WHERE id = ?`, id)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]*models.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM recipes `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var out []*models.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipe rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListByRoot(ctx context.Context, rootID string) ([]*models.Recipe, error) {
	return r.list(ctx, `WHERE root_id = ? ORDER BY created_at, id`, rootID)
}

func (r *SQLiteRepository) ListRoots(ctx context.Context) ([]*models.Recipe, error) {
	return r.list(ctx, `WHERE parent_id IS NULL ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]*models.Recipe, error) {
	return r.list(ctx, `ORDER BY created_at, id`)
}

func (r *SQLiteRepository) CountByRoot(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT root_id, COUNT(*) FROM recipes GROUP BY root_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var root string
		var n int
		if err := rows.Scan(&root, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		out[root] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipes: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) ReassignOwner(ctx context.Context, oldOwnerID string, newOwner models.Owner, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recipes
		SET owner_id = ?, owner_name = ?, updated_at = MAX(updated_at + 1, ?)
		WHERE owner_id = ?
	`, newOwner.ID, newOwner.DisplayName, timex.Millis(now), oldOwnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign recipes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to reassign recipes: %w", err)
	}
	return int(n), nil
}
