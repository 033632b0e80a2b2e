// Package settings stores the device's persisted key-value settings: device
// id, last known anonymous owner id, pending email for linking and tokens.
package settings

import (
	"context"
)

type Repository interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
