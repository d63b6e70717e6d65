package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
	notificationsCall = "org.freedesktop.Notifications.Notify"
	defaultAppName    = "Flipper Debug"
)

// DBusNotifier shows notifications through the freedesktop notification
// daemon on the session bus. The connection is opened lazily and reused.
type DBusNotifier struct {
	appName string

	mu     sync.Mutex
	conn   *dbus.Conn
	lastID uint32
}

// NewDBusNotifier creates a notifier. An empty appName uses a default.
func NewDBusNotifier(appName string) *DBusNotifier {
	if appName == "" {
		appName = defaultAppName
	}
	return &DBusNotifier{appName: appName}
}

// Show sends a desktop notification, replacing the previous one so repeated
// toggles do not stack. Delivery failures are logged.
func (n *DBusNotifier) Show(msg models.MessageID, d models.Duration) {
	if err := n.notify(Text(msg), d); err != nil {
		slog.Warn("notify: desktop notification failed", "message", msg, "err", err)
	}
}

func (n *DBusNotifier) notify(body string, d models.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("connect session bus: %w", err)
		}
		n.conn = conn
	}

	obj := n.conn.Object(notificationsDest, notificationsPath)
	call := obj.Call(notificationsCall, 0,
		n.appName,                          // app_name
		n.lastID,                           // replaces_id
		"",                                 // app_icon
		n.appName,                          // summary
		body,                               // body
		[]string{},                         // actions
		map[string]dbus.Variant{},          // hints
		int32(d.Interval().Milliseconds()), // expire_timeout
	)
	if call.Err != nil {
		// Drop the connection so the next attempt reconnects.
		n.conn.Close()
		n.conn = nil
		return call.Err
	}
	if err := call.Store(&n.lastID); err != nil {
		return fmt.Errorf("decode notification id: %w", err)
	}
	return nil
}

// Close releases the bus connection.
func (n *DBusNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
