// Package lifecycle provides a cancellable scope for background tasks owned
// by a screen or a daemon.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrorHandler receives the failure of a task launched in a Scope.
type ErrorHandler func(task string, err error)

// Scope runs tasks in goroutines bound to a shared context.
// Cancelling the scope cancels the context of every running task;
// tasks launched afterwards are dropped.
type Scope struct {
	ctx     context.Context
	cancel  context.CancelFunc
	onError ErrorHandler

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewScope creates a scope derived from parent. A nil onError logs failures.
func NewScope(parent context.Context, onError ErrorHandler) *Scope {
	ctx, cancel := context.WithCancel(parent)
	if onError == nil {
		onError = func(task string, err error) {
			slog.Error("lifecycle: task failed", "task", task, "err", err)
		}
	}
	return &Scope{ctx: ctx, cancel: cancel, onError: onError}
}

// Context returns the scope context.
func (s *Scope) Context() context.Context { return s.ctx }

// Launch runs fn in a new goroutine. It reports whether the task was started.
func (s *Scope) Launch(task string, fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		slog.Debug("lifecycle: scope cancelled, dropping task", "task", task)
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := fn(s.ctx)
		if err == nil {
			return
		}
		if s.ctx.Err() != nil && errors.Is(err, s.ctx.Err()) {
			slog.Debug("lifecycle: task cancelled", "task", task)
			return
		}
		s.onError(task, err)
	}()
	return true
}

// Cancel cancels the scope context. Running tasks are not waited for.
func (s *Scope) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every launched task has returned.
func (s *Scope) Wait() {
	s.wg.Wait()
}

// Close cancels the scope and waits for its tasks.
func (s *Scope) Close() {
	s.Cancel()
	s.Wait()
}
