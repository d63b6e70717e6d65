// Package config persists the debug settings document.
package config

import (
	"context"
	"errors"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("config: store closed")

// Store is the interface for persisting the settings document.
type Store interface {
	// Load returns the current document. Returns DefaultSettings if nothing is persisted.
	Load() (models.Settings, error)

	// Update atomically applies fn to the current document and persists the result.
	// Updates are serialized: fn always sees the latest committed document.
	// If ctx is done before the commit, nothing is written.
	Update(ctx context.Context, fn models.Transform) (models.Settings, error)

	// Path returns the location used by this store.
	Path() string

	// Close releases resources held by the store.
	Close() error
}
