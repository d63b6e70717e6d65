package models

import "time"

// SyncResult is the outcome of the last synchronization attempt.
type SyncResult string

const (
	SyncNever   SyncResult = "never"
	SyncOK      SyncResult = "ok"
	SyncFailed  SyncResult = "failed"
	SyncSkipped SyncResult = "skipped"
)

// SyncStatus is a snapshot of the synchronizer state.
type SyncStatus struct {
	Running   bool              `json:"running"`
	LastRun   *time.Time        `json:"last_run,omitempty"`
	LastForce bool              `json:"last_force"`
	Result    SyncResult        `json:"result"`
	Error     string            `json:"error,omitempty"`
	Runs      int               `json:"runs"`
	Skipped   int               `json:"skipped"`
	Device    map[string]string `json:"device,omitempty"`
}

// Info describes the running daemon.
type Info struct {
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Store     string `json:"store"`
	Connected bool   `json:"connected"`
	Route     string `json:"route,omitempty"`
}
