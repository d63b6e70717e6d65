// Package notify implements the transient user-notification surfaces.
// Show must be called from the UI loop; implementations never block on the
// caller for longer than the delivery itself.
package notify

import (
	"log/slog"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// Notifier displays a transient message.
type Notifier interface {
	Show(msg models.MessageID, d models.Duration)
}

// messages maps resource ids to the text shown to the user.
var messages = map[models.MessageID]string{
	models.MsgRestartRequired: "Restart the app to apply the new version check setting",
}

// Text resolves a message resource. Unknown ids resolve to the id itself.
func Text(msg models.MessageID) string {
	if s, ok := messages[msg]; ok {
		return s
	}
	return string(msg)
}

// NewToast builds the client-facing form of a notification.
func NewToast(msg models.MessageID, d models.Duration) models.Toast {
	return models.Toast{
		Message:    msg,
		Text:       Text(msg),
		Duration:   d.String(),
		DurationMS: d.Interval().Milliseconds(),
	}
}

// Publisher is the subset of the event bus used by BusNotifier.
type Publisher interface {
	Publish(ev models.Event)
}

// BusNotifier delivers notifications as toast events to bus subscribers.
type BusNotifier struct {
	bus Publisher
}

// NewBusNotifier creates a notifier publishing to bus.
func NewBusNotifier(bus Publisher) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// Show publishes a toast event.
func (n *BusNotifier) Show(msg models.MessageID, d models.Duration) {
	slog.Debug("notify: toast", "message", msg, "duration", d)
	n.bus.Publish(models.ToastEvent(NewToast(msg, d)))
}

// Fanout delivers every notification to all of its notifiers in order.
type Fanout []Notifier

// Show forwards to each notifier.
func (f Fanout) Show(msg models.MessageID, d models.Duration) {
	for _, n := range f {
		n.Show(msg, d)
	}
}
