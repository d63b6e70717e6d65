// Package api implements the HTTP API of the debug settings daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flipperdevices/flipper-debug-go/internal/controller"
	"github.com/flipperdevices/flipper-debug-go/internal/maintenance"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl    Controller
	nav     Navigator
	sync    SyncStatus
	backups Backups
	events  EventBus
	info    func() models.Info
}

// Controller is the debug settings controller as seen by the handlers.
type Controller interface {
	Settings() (models.Settings, error)
	SetOption(opt models.Option, v bool) error
	TriggerSynchronization()
	RestartRemoteService()
	NavigateToStressTest(nav controller.Navigator)
	NavigateToMfKey32(nav controller.Navigator)
}

// Navigator is the screen stack.
type Navigator interface {
	controller.Navigator
	Back() bool
	Current() string
	Stack() []string
}

// SyncStatus reports synchronizer state.
type SyncStatus interface {
	Status() models.SyncStatus
}

// Backups manages settings snapshots.
type Backups interface {
	Backup() (maintenance.Snapshot, error)
	List() ([]maintenance.Snapshot, error)
	Restore(ctx context.Context, name string) (models.Settings, error)
}

// EventBus is the interface for subscribing to daemon events.
type EventBus interface {
	Subscribe(id string) <-chan models.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON response. Non-AppErrors become 500s.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
