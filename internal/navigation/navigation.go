// Package navigation tracks which debug screen is shown and announces
// transitions to connected clients.
package navigation

import (
	"log/slog"
	"sync"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// Well-known destinations.
const (
	RouteDebug      = "@debug"
	RouteStressTest = "@stress_test"
	RouteMfKey32    = "@mfkey32"
)

// StressTest is the feature entry of the stress test screen.
type StressTest struct{}

// Route returns the destination of the stress test screen.
func (StressTest) Route() string { return RouteStressTest }

// MfKey32 is the feature entry of the MFKey32 key recovery screen.
type MfKey32 struct{}

// StartDestination returns the first screen of the MFKey32 flow.
func (MfKey32) StartDestination() string { return RouteMfKey32 }

// Publisher is the subset of the event bus used by the navigator.
type Publisher interface {
	Publish(ev models.Event)
}

// Navigator keeps a back stack of routes. Unknown routes are rejected and
// logged; the caller is not told.
type Navigator struct {
	mu     sync.Mutex
	known  map[string]bool
	stack  []string
	events Publisher
}

// New creates a navigator positioned at start. events may be nil.
func New(start string, events Publisher, routes ...string) *Navigator {
	n := &Navigator{
		known:  map[string]bool{start: true},
		stack:  []string{start},
		events: events,
	}
	for _, r := range routes {
		n.known[r] = true
	}
	return n
}

// NewDefault creates a navigator at the debug screen that knows every
// destination reachable from it.
func NewDefault(events Publisher) *Navigator {
	return New(RouteDebug, events, RouteStressTest, RouteMfKey32)
}

// Navigate pushes route onto the back stack.
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	if !n.known[route] {
		n.mu.Unlock()
		slog.Warn("navigation: unknown route", "route", route)
		return
	}
	n.stack = append(n.stack, route)
	n.mu.Unlock()

	slog.Debug("navigation: navigate", "route", route)
	n.publish(route)
}

// Back pops the current route. It reports false at the start destination.
func (n *Navigator) Back() bool {
	n.mu.Lock()
	if len(n.stack) <= 1 {
		n.mu.Unlock()
		return false
	}
	n.stack = n.stack[:len(n.stack)-1]
	cur := n.stack[len(n.stack)-1]
	n.mu.Unlock()

	n.publish(cur)
	return true
}

// Current returns the route on top of the back stack.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}

// Stack returns a copy of the back stack, bottom first.
func (n *Navigator) Stack() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.stack...)
}

func (n *Navigator) publish(route string) {
	if n.events != nil {
		n.events.Publish(models.RouteEvent(route))
	}
}
