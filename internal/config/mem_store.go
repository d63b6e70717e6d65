package config

import (
	"context"
	"sync"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu      sync.Mutex
	state   models.Settings
	failErr error
	updates int
	closed  bool
}

// NewMemStore returns a new in-memory store holding DefaultSettings.
func NewMemStore() *MemStore {
	return &MemStore{state: models.DefaultSettings()}
}

// Load returns the stored document.
func (m *MemStore) Load() (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return models.Settings{}, ErrClosed
	}
	return m.state, nil
}

// Update applies fn to the stored document unless a failure is configured.
func (m *MemStore) Update(ctx context.Context, fn models.Transform) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return models.Settings{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	m.updates++
	if m.failErr != nil {
		return models.Settings{}, m.failErr
	}
	m.state = fn(m.state)
	return m.state, nil
}

// SetFailUpdate makes every subsequent Update return err. Pass nil to clear.
func (m *MemStore) SetFailUpdate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Updates returns how many times Update was called.
func (m *MemStore) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure MemStore implements config.Store
var _ Store = (*MemStore)(nil)
