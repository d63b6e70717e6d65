package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB identifiers of the Flipper Zero CDC ACM interface.
const (
	flipperVID = "0483"
	flipperPID = "5740"

	defaultBaud    = 230400
	readTimeout    = 100 * time.Millisecond
	commandTimeout = 5 * time.Second
	cliPrompt      = ">: "
	maxReplySize   = 64 << 10
)

var (
	// ErrNoDevice is returned when discovery finds no Flipper port.
	ErrNoDevice = errors.New("service: no flipper serial port found")

	// ErrCommandTimeout is returned when the device does not print its
	// prompt in time. The session is marked broken.
	ErrCommandTimeout = errors.New("service: device did not answer")
)

// port is the subset of serial.Port used by a session.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type openFunc func(name string, baud int) (port, error)

func openSerial(name string, baud int) (port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// SerialDialer opens a CLI session on the device's USB serial port.
// An empty Port discovers the device by USB id.
type SerialDialer struct {
	Port string
	Baud int
}

// Dial opens the port and waits for the CLI prompt.
func (d SerialDialer) Dial(ctx context.Context) (Service, error) {
	name := d.Port
	if name == "" {
		found, err := FindPort()
		if err != nil {
			return nil, err
		}
		name = found
	}
	baud := d.Baud
	if baud == 0 {
		baud = defaultBaud
	}
	s := &SerialService{name: name, baud: baud, open: openSerial}
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// FindPort returns the first serial port that looks like a Flipper.
func FindPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("service: list ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, flipperVID) && strings.EqualFold(p.PID, flipperPID) {
			slog.Debug("service: found flipper port", "port", p.Name, "serial", p.SerialNumber)
			return p.Name, nil
		}
	}
	return "", ErrNoDevice
}

// SerialService speaks the device's text CLI over a serial port.
type SerialService struct {
	mu     sync.Mutex
	name   string
	baud   int
	open   openFunc
	port   port
	broken bool

	// timeout bounds one command exchange; zero means commandTimeout.
	timeout time.Duration
}

// Alive reports whether the last I/O on the port succeeded.
func (s *SerialService) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil && !s.broken
}

// RestartRPC closes the port and opens a fresh session.
func (s *SerialService) RestartRPC(ctx context.Context) error {
	s.mu.Lock()
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
	s.mu.Unlock()
	slog.Info("service: restarting device session", "port", s.name)
	return s.start(ctx)
}

// DeviceInfo runs the device_info command and parses its "key : value" lines.
func (s *SerialService) DeviceInfo(ctx context.Context) (map[string]string, error) {
	out, err := s.command(ctx, "device_info")
	if err != nil {
		return nil, err
	}
	info := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || key == "device_info" {
			continue
		}
		info[key] = strings.TrimSpace(value)
	}
	return info, nil
}

// Close closes the port.
func (s *SerialService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *SerialService) start(ctx context.Context) error {
	p, err := s.open(s.name, s.baud)
	if err != nil {
		return fmt.Errorf("service: open %s: %w", s.name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return fmt.Errorf("service: set read timeout: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = p
	s.broken = false
	// An empty line makes the CLI print a fresh prompt.
	if _, err := s.exchange(ctx, ""); err != nil {
		s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

func (s *SerialService) command(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return "", ErrNotConnected
	}
	return s.exchange(ctx, cmd)
}

// exchange writes cmd and reads until the prompt. Must hold s.mu.
// A reply cut short by a deadline or cancellation leaves the stream out of
// step with the CLI, so the session is marked broken and gets redialed.
func (s *SerialService) exchange(ctx context.Context, cmd string) (string, error) {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = commandTimeout
	}
	deadline := time.Now().Add(timeout)

	if _, err := s.port.Write([]byte(cmd + "\r")); err != nil {
		s.broken = true
		return "", fmt.Errorf("service: write %q: %w", cmd, err)
	}

	var buf bytes.Buffer
	chunk := make([]byte, 512)
	for {
		if err := ctx.Err(); err != nil {
			s.broken = true
			return "", err
		}
		if time.Now().After(deadline) {
			s.broken = true
			slog.Warn("service: device stopped answering", "port", s.name, "cmd", cmd, "timeout", timeout)
			return "", fmt.Errorf("%w: %q after %s", ErrCommandTimeout, cmd, timeout)
		}
		n, err := s.port.Read(chunk)
		if err != nil {
			s.broken = true
			return "", fmt.Errorf("service: read: %w", err)
		}
		buf.Write(chunk[:n])
		if bytes.HasSuffix(buf.Bytes(), []byte(cliPrompt)) {
			break
		}
		if buf.Len() > maxReplySize {
			return "", fmt.Errorf("service: reply to %q exceeds %d bytes", cmd, maxReplySize)
		}
	}

	out := strings.TrimSuffix(buf.String(), cliPrompt)
	out = strings.TrimRight(strings.ReplaceAll(out, "\r", ""), "\n")
	// Drop the echoed command line.
	if _, rest, ok := strings.Cut(out, "\n"); ok && cmd != "" {
		out = rest
	}
	return out, nil
}
