package notifications

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, n *models.Notification) error {
	query :=
		`INSERT INTO notifications (id, recipient_id, type, recipe_id, recipe_title, recipe_emoji, actor_id, actor_name, message, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 `

	_, err := r.db.ExecContext(ctx, query, n.ID, n.RecipientID, string(n.Type), n.RecipeID, n.RecipeTitle,
		n.RecipeEmoji, n.Actor.ID, n.Actor.DisplayName, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	query :=
		`SELECT id, recipient_id, type, recipe_id, recipe_title, recipe_emoji, actor_id, actor_name, message, read, created_at
		 FROM notifications
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var typ string
		if err := rows.Scan(&n.ID, &n.RecipientID, &typ, &n.RecipeID, &n.RecipeTitle, &n.RecipeEmoji,
			&n.Actor.ID, &n.Actor.DisplayName, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		n.Type = models.NotificationType(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) ReassignBatch(ctx context.Context, oldRecipientID, newRecipientID string, limit int) (int, error) {
	query :=
		`UPDATE notifications SET recipient_id = $2
		 WHERE id IN (SELECT id FROM notifications WHERE recipient_id = $1 LIMIT $3)
		 `

	res, err := r.db.ExecContext(ctx, query, oldRecipientID, newRecipientID, limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}
