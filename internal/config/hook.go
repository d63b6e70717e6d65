package config

import (
	"context"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// hookedStore calls onChange after every Update that changed the document.
type hookedStore struct {
	Store
	onChange func(models.Settings)
}

// WithHook wraps store so that onChange receives each newly committed document.
func WithHook(store Store, onChange func(models.Settings)) Store {
	return &hookedStore{Store: store, onChange: onChange}
}

func (h *hookedStore) Update(ctx context.Context, fn models.Transform) (models.Settings, error) {
	var before models.Settings
	var called bool
	next, err := h.Store.Update(ctx, func(cur models.Settings) models.Settings {
		before, called = cur, true
		return fn(cur)
	})
	if err != nil {
		return next, err
	}
	if called && next != before && h.onChange != nil {
		h.onChange(next)
	}
	return next, nil
}
