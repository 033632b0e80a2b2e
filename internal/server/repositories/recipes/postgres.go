package recipes

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

// Put keeps favorite_count untouched on update; it is owned by the favorites flow.
func (r *PostgresRepository) Put(ctx context.Context, rec *models.Recipe) (bool, error) {
	doc, err := json.Marshal(rec.Content)
	if err != nil {
		return false, fmt.Errorf("encode recipe: %w", err)
	}
	collaborators := rec.Collaborators
	if collaborators == nil {
		collaborators = []models.Owner{}
	}
	collab, err := json.Marshal(collaborators)
	if err != nil {
		return false, fmt.Errorf("encode collaborators: %w", err)
	}

	query :=
		`INSERT INTO recipes (id, parent_id, root_id, depth, owner_id, owner_name, collaborators, document, prompt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   parent_id = EXCLUDED.parent_id,
		   root_id = EXCLUDED.root_id,
		   depth = EXCLUDED.depth,
		   owner_name = EXCLUDED.owner_name,
		   collaborators = EXCLUDED.collaborators,
		   document = EXCLUDED.document,
		   prompt = EXCLUDED.prompt,
		   updated_at = EXCLUDED.updated_at
		 RETURNING (xmax = 0)
		 `

	var inserted bool
	err = r.db.QueryRowContext(ctx, query,
		rec.ID, rec.ParentID, rec.RootID, rec.Depth, rec.CreatedBy.ID, rec.CreatedBy.DisplayName,
		collab, doc, rec.Prompt, rec.CreatedAt, rec.UpdatedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Recipe, error) {
	query :=
		`SELECT id, parent_id, root_id, depth, owner_id, owner_name, collaborators, document, prompt, created_at, updated_at
		 FROM recipes
		 WHERE id = $1
		 `

	rec := &models.Recipe{}
	var collab, doc []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.ParentID, &rec.RootID, &rec.Depth, &rec.CreatedBy.ID, &rec.CreatedBy.DisplayName,
		&collab, &doc, &rec.Prompt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(doc, &rec.Content); err != nil {
		return nil, fmt.Errorf("decode recipe %s: %w", id, err)
	}
	if err := json.Unmarshal(collab, &rec.Collaborators); err != nil {
		return nil, fmt.Errorf("decode collaborators %s: %w", id, err)
	}
	return rec, nil
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, ownerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	list, err := json.Marshal(ids)
	if err != nil {
		return 0, err
	}

	query :=
		`DELETE FROM recipes
		 WHERE owner_id = $1 AND id IN (SELECT jsonb_array_elements_text($2::jsonb))
		 `

	res, err := r.db.ExecContext(ctx, query, ownerID, list)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) AddCollaborator(ctx context.Context, id string, o models.Owner) (bool, error) {
	entry, err := json.Marshal([]models.Owner{o})
	if err != nil {
		return false, err
	}
	credited, err := json.Marshal([]map[string]string{{"ownerId": o.ID}})
	if err != nil {
		return false, err
	}

	query :=
		`UPDATE recipes SET collaborators = collaborators || $2::jsonb
		 WHERE id = $1 AND NOT collaborators @> $3::jsonb
		 `

	res, err := r.db.ExecContext(ctx, query, id, entry, credited)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) AdjustFavoriteCount(ctx context.Context, id string, delta int) error {
	query := `UPDATE recipes SET favorite_count = favorite_count + $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MoveOwnerBatch bumps updated_at strictly past its previous value.
func (r *PostgresRepository) MoveOwnerBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	query :=
		`UPDATE recipes
		 SET owner_id = $2, owner_name = $3,
		     updated_at = GREATEST(now(), updated_at + interval '1 millisecond')
		 WHERE id IN (SELECT id FROM recipes WHERE owner_id = $1 LIMIT $4)
		 `

	res, err := r.db.ExecContext(ctx, query, oldOwnerID, newOwner.ID, newOwner.DisplayName, limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) MoveCollaboratorBatch(ctx context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	hasOld, err := json.Marshal([]map[string]string{{"ownerId": oldOwnerID}})
	if err != nil {
		return 0, err
	}
	hasNew, err := json.Marshal([]map[string]string{{"ownerId": newOwner.ID}})
	if err != nil {
		return 0, err
	}

	query :=
		`UPDATE recipes SET collaborators = (
		   SELECT coalesce(jsonb_agg(
		     CASE WHEN e.c->>'ownerId' = $1
		       THEN jsonb_build_object('ownerId', $2::text, 'displayName', $3::text)
		       ELSE e.c END
		     ORDER BY e.ord), '[]'::jsonb)
		   FROM jsonb_array_elements(recipes.collaborators) WITH ORDINALITY AS e(c, ord)
		   WHERE NOT (e.c->>'ownerId' = $1 AND recipes.collaborators @> $5::jsonb)
		 )
		 WHERE id IN (SELECT id FROM recipes WHERE collaborators @> $4::jsonb LIMIT $6)
		 `

	res, err := r.db.ExecContext(ctx, query, oldOwnerID, newOwner.ID, newOwner.DisplayName, hasOld, hasNew, limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}
