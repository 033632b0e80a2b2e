// Package services holds the device-side application services of Recipe Lab:
// recipe lifecycle over the local store, favorites, the identity migration
// engine and the session controller that decides when migration runs.
package services

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

// Generator turns a free-text prompt into recipe content. parent is the
// content being varied, nil for a new original. The caller validates the
// result; generators are not retried.
type Generator interface {
	Generate(ctx context.Context, prompt string, parent *models.Content) (*models.Content, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, parent *models.Content) (*models.Content, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, parent *models.Content) (*models.Content, error) {
	return f(ctx, prompt, parent)
}
