// Package uiloop provides a single-goroutine executor that plays the role of
// the UI thread: everything that touches the user-facing surface runs here,
// one function at a time, in submission order.
package uiloop

import (
	"context"
	"errors"
)

// ErrStopped is returned when the loop is not running anymore.
var ErrStopped = errors.New("uiloop: loop stopped")

const queueSize = 32

// Loop executes posted functions sequentially on the goroutine calling Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// New creates a loop. Nothing executes until Run is called.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled. Pending tasks are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Do runs fn on the loop and waits until it has returned.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have run the task just before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
