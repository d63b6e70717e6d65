package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flipperdevices/flipper-debug-go/internal/config"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

func newTestService(t *testing.T, retention time.Duration) (*Service, *config.MemStore, *time.Time) {
	t.Helper()
	store := config.NewMemStore()
	svc := New(store, filepath.Join(t.TempDir(), "backups"), retention)
	clock := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, store, &clock
}

func TestBackup_WritesSnapshot(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	store.Update(context.Background(), func(s models.Settings) models.Settings {
		s.AlwaysUpdate = true
		return s
	})

	snap, err := svc.Backup()
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if snap.Name != "settings-20260301-020000.000.json" {
		t.Errorf("Name = %q", snap.Name)
	}
	if _, err := os.Stat(filepath.Join(svc.Dir(), snap.Name)); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestList_NewestFirstAndIgnoresStrangers(t *testing.T) {
	svc, _, clock := newTestService(t, 0)
	for i := 0; i < 3; i++ {
		if _, err := svc.Backup(); err != nil {
			t.Fatalf("Backup: %v", err)
		}
		*clock = clock.Add(time.Hour)
	}
	os.WriteFile(filepath.Join(svc.Dir(), "notes.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(svc.Dir(), "settings-garbage.json"), []byte("{}"), 0644)

	snaps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(snaps), snaps)
	}
	for i := 1; i < len(snaps); i++ {
		if !snaps[i-1].Time.After(snaps[i].Time) {
			t.Errorf("snapshots not newest first: %v then %v", snaps[i-1].Time, snaps[i].Time)
		}
	}
}

func TestList_MissingDir(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	snaps, err := svc.List()
	if err != nil || len(snaps) != 0 {
		t.Errorf("List on missing dir = %v, %v; want empty, nil", snaps, err)
	}
}

func TestBackup_PrunesExpired(t *testing.T) {
	svc, _, clock := newTestService(t, 48*time.Hour)
	old, _ := svc.Backup()

	*clock = clock.Add(72 * time.Hour)
	fresh, err := svc.Backup()
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	snaps, _ := svc.List()
	if len(snaps) != 1 || snaps[0].Name != fresh.Name {
		t.Errorf("after prune = %+v, want only %s (old %s)", snaps, fresh.Name, old.Name)
	}
}

func TestRestore(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	store.Update(context.Background(), func(s models.Settings) models.Settings {
		s.SkipAutoSyncInDebug = true
		return s
	})
	snap, _ := svc.Backup()

	store.Update(context.Background(), func(models.Settings) models.Settings {
		return models.Settings{AlwaysUpdate: true}
	})

	got, err := svc.Restore(context.Background(), snap.Name)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	want := models.Settings{SkipAutoSyncInDebug: true}
	if got != want {
		t.Errorf("restored = %+v, want %+v", got, want)
	}
	if cur, _ := store.Load(); cur != want {
		t.Errorf("store = %+v, want %+v", cur, want)
	}
}

type recordingApplier struct {
	store   Store
	applied []models.Settings
}

func (a *recordingApplier) Replace(ctx context.Context, next models.Settings) (models.Settings, error) {
	a.applied = append(a.applied, next)
	return a.store.Update(ctx, func(models.Settings) models.Settings { return next })
}

func TestRestore_GoesThroughApplier(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	store.Update(context.Background(), func(s models.Settings) models.Settings {
		s.IgnoreUnsupportedVersion = true
		return s
	})
	snap, _ := svc.Backup()

	app := &recordingApplier{store: store}
	svc.SetApplier(app)
	if _, err := svc.Restore(context.Background(), snap.Name); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	want := models.Settings{IgnoreUnsupportedVersion: true}
	if len(app.applied) != 1 || app.applied[0] != want {
		t.Errorf("applied = %+v, want [%+v]", app.applied, want)
	}
}

func TestRestore_BadNames(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	var appErr *models.AppError
	_, err := svc.Restore(context.Background(), "../settings.json")
	if !errors.As(err, &appErr) || appErr.Status != 400 {
		t.Errorf("traversal name err = %v, want 400", err)
	}
	_, err = svc.Restore(context.Background(), "settings-20260101-000000.000.json")
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Errorf("missing snapshot err = %v, want 404", err)
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	if err := svc.Run(context.Background(), "not a schedule"); err == nil {
		t.Error("Run with bad schedule: want error")
	}
}

func TestRun_EmptyScheduleWaits(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, "") }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
