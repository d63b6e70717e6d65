// Package auth guards the daemon API with access keys kept in the config
// directory. With no keys configured the API is open.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const keysFileName = "api_keys.json"

// Key is one named access key.
type Key struct {
	Name    string `json:"name"`
	Key     string `json:"key"`
	Created string `json:"created,omitempty"`
}

// Service holds the current key set and reloads it when the file changes.
type Service struct {
	mu      sync.RWMutex
	path    string
	keys    []Key
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewService loads api_keys.json from configDir and watches it for edits.
// A missing file is open mode.
func NewService(configDir string) (*Service, error) {
	s := &Service{
		path: filepath.Join(configDir, keysFileName),
		done: make(chan struct{}),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		close(s.done)
		return s, nil
	}
	if err := watcher.Add(configDir); err != nil {
		slog.Warn("auth: could not watch config dir", "dir", configDir, "err", err)
	}
	s.watcher = watcher
	go s.watchLoop()
	return s, nil
}

// Path returns the keys file location.
func (s *Service) Path() string { return s.path }

// Reload re-reads the keys file.
func (s *Service) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.set(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth: read %s: %w", s.path, err)
	}

	var keys []Key
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("auth: parse %s: %w", s.path, err)
	}
	s.set(keys)
	slog.Debug("auth: reloaded keys", "count", len(keys))
	return nil
}

func (s *Service) set(keys []Key) {
	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
}

// IsOpenMode reports whether no usable key is configured.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Key != "" {
			return false
		}
	}
	return true
}

// Verify returns the name of the key matching key, compared in constant time.
func (s *Service) Verify(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Key == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
			return k.Name, true
		}
	}
	return "", false
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
		<-s.done
	}
}

func (s *Service) watchLoop() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}

type ctxKey struct{}

// KeyName returns the name of the key that authenticated the request, if any.
func KeyName(ctx context.Context) string {
	name, _ := ctx.Value(ctxKey{}).(string)
	return name
}
