// Package service manages the connection to the Flipper device and lends it
// to callers for the duration of a single callback.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNotConnected is returned by helpers that need a live connection.
var ErrNotConnected = errors.New("service: device not connected")

// Service is a live communication channel with the device.
type Service interface {
	// RestartRPC tears down and re-establishes the device session.
	RestartRPC(ctx context.Context) error

	// DeviceInfo returns the key/value device description.
	DeviceInfo(ctx context.Context) (map[string]string, error)

	// Close ends the session.
	Close() error
}

// Dialer opens new device sessions.
type Dialer interface {
	Dial(ctx context.Context) (Service, error)
}

// aliveChecker is implemented by services that can detect a dead link.
type aliveChecker interface {
	Alive() bool
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Provider owns the current session, if any. All methods are safe for
// concurrent use.
type Provider struct {
	mu       sync.Mutex
	svc      Service
	dialer   Dialer
	onChange func(connected bool)
}

// NewProvider creates a disconnected provider. onChange may be nil.
func NewProvider(d Dialer, onChange func(connected bool)) *Provider {
	return &Provider{dialer: d, onChange: onChange}
}

// WithService calls fn with the live service. It does nothing when no
// session is established. The service must not be retained after fn returns.
func (p *Provider) WithService(fn func(Service)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.svc == nil {
		return
	}
	fn(p.svc)
}

// Do is WithService for callers that need an error; it returns
// ErrNotConnected when there is no session.
func (p *Provider) Do(fn func(Service) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.svc == nil {
		return ErrNotConnected
	}
	return fn(p.svc)
}

// Connected reports whether a session is established.
func (p *Provider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.svc != nil
}

// Connect dials a new session, replacing any existing one.
func (p *Provider) Connect(ctx context.Context) error {
	svc, err := p.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	old := p.svc
	p.svc = svc
	p.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	slog.Info("service: device connected")
	if p.onChange != nil {
		p.onChange(true)
	}
	return nil
}

// Disconnect closes the current session, if any.
func (p *Provider) Disconnect() error {
	p.mu.Lock()
	old := p.svc
	p.svc = nil
	p.mu.Unlock()
	if old == nil {
		return nil
	}
	slog.Info("service: device disconnected")
	if p.onChange != nil {
		p.onChange(false)
	}
	return old.Close()
}

// Run keeps a session open until ctx is cancelled, redialing with
// exponential backoff when the device is missing or the link dies.
func (p *Provider) Run(ctx context.Context, checkEvery time.Duration) {
	defer p.Disconnect()

	backoff := minBackoff
	for {
		wait := checkEvery
		if !p.alive() {
			if p.Connected() {
				slog.Warn("service: link lost, reconnecting")
				p.Disconnect()
			}
			if err := p.Connect(ctx); err != nil {
				slog.Debug("service: connect failed", "err", err, "retry_in", backoff)
				wait = backoff
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			} else {
				backoff = minBackoff
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Provider) alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.svc == nil {
		return false
	}
	if ac, ok := p.svc.(aliveChecker); ok {
		return ac.Alive()
	}
	return true
}
