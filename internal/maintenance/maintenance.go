// Package maintenance keeps rotating snapshots of the settings document so a
// bad debug toggle can be rolled back.
package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

const (
	snapshotPrefix = "settings-"
	snapshotSuffix = ".json"
	timeLayout     = "20060102-150405.000"
)

// Store is the settings document being backed up.
type Store interface {
	Load() (models.Settings, error)
	Update(ctx context.Context, fn models.Transform) (models.Settings, error)
}

// Applier writes a restored document. The controller implements it so a
// restore has the same side effects as the matching setters.
type Applier interface {
	Replace(ctx context.Context, next models.Settings) (models.Settings, error)
}

// storeApplier writes straight to the store.
type storeApplier struct{ store Store }

func (a storeApplier) Replace(ctx context.Context, next models.Settings) (models.Settings, error) {
	return a.store.Update(ctx, func(models.Settings) models.Settings { return next })
}

// Snapshot describes one backup file.
type Snapshot struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
	Size int64     `json:"size"`
}

// Service writes snapshots into dir and prunes those older than retention.
type Service struct {
	store     Store
	apply     Applier
	dir       string
	retention time.Duration
	now       func() time.Time
}

// New creates a backup service. A zero retention keeps everything.
func New(store Store, dir string, retention time.Duration) *Service {
	return &Service{store: store, apply: storeApplier{store}, dir: dir, retention: retention, now: time.Now}
}

// SetApplier routes restores through a.
func (s *Service) SetApplier(a Applier) { s.apply = a }

// Dir returns the snapshot directory.
func (s *Service) Dir() string { return s.dir }

// Run takes a snapshot on every tick of schedule (standard 5-field cron)
// until ctx is cancelled. An empty schedule disables periodic backups.
func (s *Service) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		<-ctx.Done()
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		snap, err := s.Backup()
		if err != nil {
			slog.Error("maintenance: backup failed", "err", err)
			return
		}
		slog.Info("maintenance: backup created", "file", snap.Name)
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", schedule, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Backup writes the current document to a new snapshot and prunes old ones.
func (s *Service) Backup() (Snapshot, error) {
	st, err := s.store.Load()
	if err != nil {
		return Snapshot{}, fmt.Errorf("maintenance: load settings: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return Snapshot{}, err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("maintenance: create backup dir: %w", err)
	}

	now := s.now()
	name := snapshotPrefix + now.UTC().Format(timeLayout) + snapshotSuffix
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Snapshot{}, fmt.Errorf("maintenance: write %s: %w", name, err)
	}

	s.prune(now)
	return Snapshot{Name: name, Time: now.UTC().Truncate(time.Millisecond), Size: int64(len(data))}, nil
}

// List returns the snapshots, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	snaps := []Snapshot{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, ok := parseName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{Name: e.Name(), Time: t, Size: info.Size()})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Time.After(snaps[j].Time) })
	return snaps, nil
}

// Restore replaces the settings document with the named snapshot through
// the applier.
func (s *Service) Restore(ctx context.Context, name string) (models.Settings, error) {
	if _, ok := parseName(name); !ok || filepath.Base(name) != name {
		return models.Settings{}, models.ErrBadRequest("invalid snapshot name")
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return models.Settings{}, models.ErrNotFound("snapshot " + name + " not found")
	}
	if err != nil {
		return models.Settings{}, err
	}

	snap := models.DefaultSettings()
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Settings{}, fmt.Errorf("maintenance: parse %s: %w", name, err)
	}
	st, err := s.apply.Replace(ctx, snap)
	if err != nil {
		return models.Settings{}, err
	}
	slog.Info("maintenance: restored snapshot", "file", name)
	return st, nil
}

// prune deletes snapshots older than the retention window.
func (s *Service) prune(now time.Time) {
	if s.retention <= 0 {
		return
	}
	snaps, err := s.List()
	if err != nil {
		return
	}
	cutoff := now.Add(-s.retention)
	for _, snap := range snaps {
		if !snap.Time.Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, snap.Name)
		if err := os.Remove(path); err != nil {
			slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
		} else {
			slog.Info("maintenance: pruned old backup", "file", path)
		}
	}
}

func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
	t, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
