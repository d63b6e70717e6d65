package service

import (
	"context"
	"errors"
	"sync"
)

// Mock is an in-memory Service for tests and --mock mode.
type Mock struct {
	mu       sync.Mutex
	restarts int
	failErr  error
	info     map[string]string
	closed   bool
}

// NewMock creates a mock device with a fixed description.
func NewMock() *Mock {
	return &Mock{
		info: map[string]string{
			"hardware_model":         "Flipper Zero",
			"hardware_name":          "Mock",
			"firmware_version":       "0.0.0-mock",
			"protobuf_version_major": "0",
		},
	}
}

// SetFail makes every call return err. Pass nil to clear.
func (m *Mock) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Restarts returns how many times RestartRPC was called.
func (m *Mock) Restarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mock) RestartRPC(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts++
	return m.failErr
}

func (m *Mock) DeviceInfo(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := make(map[string]string, len(m.info))
	for k, v := range m.info {
		out[k] = v
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Alive reports false once the mock has been closed.
func (m *Mock) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

var errDialFailed = errors.New("service: mock dial failed")

// MockDialer hands out a fresh Mock on every Dial, or fails when Fail is set.
type MockDialer struct {
	mu    sync.Mutex
	Fail  bool
	dials []*Mock
}

// Dial returns a new Mock.
func (d *MockDialer) Dial(ctx context.Context) (Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail {
		return nil, errDialFailed
	}
	m := NewMock()
	d.dials = append(d.dials, m)
	return m, nil
}

// Last returns the most recently dialed mock, or nil.
func (d *MockDialer) Last() *Mock {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dials) == 0 {
		return nil
	}
	return d.dials[len(d.dials)-1]
}

// Dials returns how many sessions were opened.
func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

// SetFail toggles dial failures.
func (d *MockDialer) SetFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Fail = fail
}
