package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

const (
	configFileName = "settings.json"
	lockSuffix     = ".lock"
)

// JSONStore keeps the settings document in a single JSON file.
// Writes go to a temp file which is synced and renamed over the original,
// so readers see either the old or the new document, never a mix.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewJSONStore creates a new JSON store in the given config directory.
func NewJSONStore(configDir string) *JSONStore {
	return &JSONStore{
		path: filepath.Join(configDir, configFileName),
	}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the document from disk. Returns DefaultSettings on ENOENT or parse errors.
func (s *JSONStore) Load() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Settings{}, ErrClosed
	}
	return s.read()
}

// Update runs fn under the store mutex and a cross-process file lock.
func (s *JSONStore) Update(ctx context.Context, fn models.Transform) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Settings{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return models.Settings{}, fmt.Errorf("config: create dir: %w", err)
	}
	unlock, err := lockFile(s.path + lockSuffix)
	if err != nil {
		return models.Settings{}, fmt.Errorf("config: lock %s: %w", s.path, err)
	}
	defer unlock()

	cur, err := s.read()
	if err != nil {
		return models.Settings{}, err
	}
	next := fn(cur)
	if next == cur {
		return cur, nil
	}
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	if err := s.writeAtomic(next); err != nil {
		return models.Settings{}, fmt.Errorf("config: write %s: %w", s.path, err)
	}
	slog.Debug("config: settings updated", "path", s.path)
	return next, nil
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Watch calls fn with the reloaded document whenever the file is changed,
// including by another process. Blocks until ctx is cancelled.
func (s *JSONStore) Watch(ctx context.Context, fn func(models.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic writes show up as a Create (rename) of the target.
			if event.Name != s.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			st, err := s.Load()
			if err != nil {
				slog.Warn("config: reload after change failed", "path", s.path, "err", err)
				continue
			}
			fn(st)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

// read must be called with s.mu held.
func (s *JSONStore) read() (models.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.DefaultSettings(), nil
		}
		return models.Settings{}, fmt.Errorf("config: read %s: %w", s.path, err)
	}
	return decodeSettings(data, s.path), nil
}

// decodeSettings overlays the stored JSON on the defaults so fields missing
// from older files keep their default values.
func decodeSettings(data []byte, source string) models.Settings {
	st := models.DefaultSettings()
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("config: corrupt settings file, using defaults", "path", source, "err", err)
		return models.DefaultSettings()
	}
	return st
}

func (s *JSONStore) writeAtomic(st models.Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), configFileName+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Ensure JSONStore implements config.Store
var _ Store = (*JSONStore)(nil)
