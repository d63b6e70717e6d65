package models

import "time"

// EventType identifies the payload carried by an Event.
type EventType string

const (
	EventSettings EventType = "settings"
	EventToast    EventType = "toast"
	EventRoute    EventType = "route"
	EventSync     EventType = "sync"
)

// Event is a single update delivered to event bus subscribers.
// Exactly one of the payload fields is set, matching Type.
type Event struct {
	Type     EventType   `json:"type"`
	Time     time.Time   `json:"time"`
	Settings *Settings   `json:"settings,omitempty"`
	Toast    *Toast      `json:"toast,omitempty"`
	Route    string      `json:"route,omitempty"`
	Sync     *SyncStatus `json:"sync,omitempty"`
}

// SettingsEvent wraps a settings document.
func SettingsEvent(s Settings) Event {
	return Event{Type: EventSettings, Time: time.Now(), Settings: &s}
}

// ToastEvent wraps a transient user notification.
func ToastEvent(t Toast) Event {
	return Event{Type: EventToast, Time: time.Now(), Toast: &t}
}

// RouteEvent reports a navigation transition.
func RouteEvent(route string) Event {
	return Event{Type: EventRoute, Time: time.Now(), Route: route}
}

// SyncEvent wraps a synchronization status snapshot.
func SyncEvent(s SyncStatus) Event {
	return Event{Type: EventSync, Time: time.Now(), Sync: &s}
}
