// Package controller implements the debug settings controller: it turns user
// intents into settings updates and the side effects that follow them.
package controller

import (
	"context"

	"github.com/flipperdevices/flipper-debug-go/internal/lifecycle"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
	"github.com/flipperdevices/flipper-debug-go/internal/service"
)

// Store is the durable settings document.
type Store interface {
	Load() (models.Settings, error)
	Update(ctx context.Context, fn models.Transform) (models.Settings, error)
}

// SyncTrigger starts a device synchronization.
type SyncTrigger interface {
	Start(force bool)
}

// ServiceProvider lends the live device service, if there is one.
type ServiceProvider interface {
	WithService(fn func(service.Service))
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Show(msg models.MessageID, d models.Duration)
}

// UIExecutor runs fn on the UI loop and waits for it.
type UIExecutor interface {
	Do(ctx context.Context, fn func()) error
}

// Navigator performs screen transitions.
type Navigator interface {
	Navigate(route string)
}

// StressTestEntry resolves the stress test screen.
type StressTestEntry interface {
	Route() string
}

// MfKey32Entry resolves the MFKey32 flow.
type MfKey32Entry interface {
	StartDestination() string
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store      Store
	Sync       SyncTrigger
	Services   ServiceProvider
	Notifier   Notifier
	UI         UIExecutor
	StressTest StressTestEntry
	MfKey32    MfKey32Entry
}

// Controller holds no state of its own: every setting lives in the store and
// every background task runs in the owning scope.
type Controller struct {
	store      Store
	sync       SyncTrigger
	services   ServiceProvider
	notifier   Notifier
	ui         UIExecutor
	stressTest StressTestEntry
	mfKey32    MfKey32Entry
	scope      *lifecycle.Scope
}

// New creates a controller whose tasks run in scope.
func New(scope *lifecycle.Scope, d Deps) *Controller {
	return &Controller{
		store:      d.Store,
		sync:       d.Sync,
		services:   d.Services,
		notifier:   d.Notifier,
		ui:         d.UI,
		stressTest: d.StressTest,
		mfKey32:    d.MfKey32,
		scope:      scope,
	}
}

// Settings returns the current settings document.
func (c *Controller) Settings() (models.Settings, error) {
	return c.store.Load()
}

// Close cancels in-flight tasks and waits for them to return.
func (c *Controller) Close() {
	c.scope.Close()
}

// update is the mutation primitive. It launches a task that:
//  1. Submits fn to the store, which applies it to the latest document
//  2. If the update committed and then is set, runs then
//
// A failed update skips then; the error goes to the scope's handler.
func (c *Controller) update(task string, fn models.Transform, then func(ctx context.Context) error) {
	c.scope.Launch(task, func(ctx context.Context) error {
		if _, err := c.store.Update(ctx, fn); err != nil {
			return err
		}
		if then == nil {
			return nil
		}
		return then(ctx)
	})
}

// askRestartApp tells the user the change needs an app restart.
func (c *Controller) askRestartApp(ctx context.Context) error {
	return c.ui.Do(ctx, func() {
		c.notifier.Show(models.MsgRestartRequired, models.DurationLong)
	})
}
