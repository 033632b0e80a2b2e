// Package notifications stores per-recipient notifications.
package notifications

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) error

	// List returns at most limit notifications of recipientID, newest first.
	List(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)

	// MarkRead returns common.ErrNotFound unless id belongs to recipientID.
	MarkRead(ctx context.Context, recipientID, id string) error

	// MarkAllRead returns how many unread notifications were flipped.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)

	// ReassignBatch points at most limit notifications of oldRecipientID at
	// newRecipientID.
	ReassignBatch(ctx context.Context, oldRecipientID, newRecipientID string, limit int) (int, error)
}
