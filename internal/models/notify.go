package models

import "time"

// MessageID identifies a user-facing message resource.
type MessageID string

// MsgRestartRequired asks the user to restart after toggling version checks.
const MsgRestartRequired MessageID = "debug_ignored_unsupported_version_toast"

// Duration is the display-length hint of a transient notification.
type Duration int

const (
	DurationShort Duration = iota
	DurationLong
)

// Interval returns how long a notification of this length stays visible.
func (d Duration) Interval() time.Duration {
	if d == DurationLong {
		return 3500 * time.Millisecond
	}
	return 2000 * time.Millisecond
}

func (d Duration) String() string {
	if d == DurationLong {
		return "long"
	}
	return "short"
}

// Toast is a transient notification as delivered to clients.
type Toast struct {
	Message    MessageID `json:"message"`
	Text       string    `json:"text"`
	Duration   string    `json:"duration"`
	DurationMS int64     `json:"duration_ms"`
}
