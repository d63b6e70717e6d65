// Package synchronization runs device synchronization in the background.
// Requests are coalesced: any number of Start calls made while a run is
// pending result in a single run, forced if any of them was forced.
package synchronization

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// Job performs one synchronization and returns the device description.
type Job func(ctx context.Context) (map[string]string, error)

// SettingsSource supplies the current settings document.
type SettingsSource interface {
	Load() (models.Settings, error)
}

// Publisher is the subset of the event bus used for status updates.
type Publisher interface {
	Publish(ev models.Event)
}

// Options tunes the synchronizer.
type Options struct {
	// MinInterval is the minimum time between two runs. Zero disables the limit.
	MinInterval time.Duration
	// Schedule is a cron spec for automatic (non-forced) runs. Empty disables it.
	Schedule string
}

// Synchronizer owns the background sync worker.
type Synchronizer struct {
	settings SettingsSource
	job      Job
	events   Publisher
	limiter  *rate.Limiter
	schedule string
	wake     chan struct{}

	mu           sync.Mutex
	pending      bool
	pendingForce bool
	status       models.SyncStatus
}

// New creates a synchronizer. events may be nil.
func New(settings SettingsSource, job Job, events Publisher, opts Options) *Synchronizer {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Synchronizer{
		settings: settings,
		job:      job,
		events:   events,
		limiter:  rate.NewLimiter(limit, 1),
		schedule: opts.Schedule,
		wake:     make(chan struct{}, 1),
		status:   models.SyncStatus{Result: models.SyncNever},
	}
}

// Start requests a synchronization. It never blocks.
func (s *Synchronizer) Start(force bool) {
	s.mu.Lock()
	s.pending = true
	s.pendingForce = s.pendingForce || force
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the current state.
func (s *Synchronizer) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStatus(s.status)
}

// Run processes requests until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) error {
	if s.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.schedule, func() { s.Start(false) }); err != nil {
			return fmt.Errorf("sync: invalid schedule %q: %w", s.schedule, err)
		}
		c.Start()
		defer c.Stop()
		slog.Info("sync: automatic synchronization scheduled", "schedule", s.schedule)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			s.runPending(ctx)
		}
	}
}

func (s *Synchronizer) runPending(ctx context.Context) {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	force := s.pendingForce
	s.pending, s.pendingForce = false, false
	s.mu.Unlock()

	if !force {
		st, err := s.settings.Load()
		if err != nil {
			slog.Warn("sync: cannot read settings, skipping automatic run", "err", err)
			s.recordSkip()
			return
		}
		if st.SkipAutoSyncInDebug {
			slog.Debug("sync: automatic run skipped by debug setting")
			s.recordSkip()
			return
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	s.update(func(st *models.SyncStatus) { st.Running = true })
	slog.Info("sync: synchronization started", "force", force)

	info, err := s.job(ctx)

	now := time.Now()
	s.update(func(st *models.SyncStatus) {
		st.Running = false
		st.LastRun = &now
		st.LastForce = force
		st.Runs++
		if err != nil {
			st.Result = models.SyncFailed
			st.Error = err.Error()
			return
		}
		st.Result = models.SyncOK
		st.Error = ""
		st.Device = info
	})
	if err != nil {
		slog.Warn("sync: synchronization failed", "force", force, "err", err)
		return
	}
	slog.Info("sync: synchronization finished", "force", force)
}

func (s *Synchronizer) recordSkip() {
	s.update(func(st *models.SyncStatus) {
		st.Skipped++
		st.Result = models.SyncSkipped
	})
}

func (s *Synchronizer) update(fn func(*models.SyncStatus)) {
	s.mu.Lock()
	fn(&s.status)
	snap := copyStatus(s.status)
	s.mu.Unlock()
	if s.events != nil {
		s.events.Publish(models.SyncEvent(snap))
	}
}

func copyStatus(st models.SyncStatus) models.SyncStatus {
	if st.Device != nil {
		dev := make(map[string]string, len(st.Device))
		for k, v := range st.Device {
			dev[k] = v
		}
		st.Device = dev
	}
	return st
}
