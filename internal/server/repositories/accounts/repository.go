// Package accounts declares the storage contract for identity-provider
// accounts and a PostgreSQL implementation of it.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/server/models"
)

type Repository interface {
	// Create stores a new account. ID must already be set.
	Create(ctx context.Context, a *models.Account) error

	// GetByID returns common.ErrNotFound when no account has id.
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetByEmail returns common.ErrNotFound when the email is not linked.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// LinkEmail attaches email to the account and makes it permanent.
	// It returns common.ErrCredentialInUse when another account owns email.
	LinkEmail(ctx context.Context, id, email string) error

	UpdateDisplayName(ctx context.Context, id, name string) error
}
