// Package zeroconf advertises the daemon API over mDNS/DNS-SD so debug
// clients on the LAN can find it.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// ServiceType is the DNS-SD type the daemon registers under.
const ServiceType = "_flipperdebug._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string
	port int
	txt  []string
}

// New creates a Service advertising instance name on port.
func New(name string, port int, txt []string) *Service {
	return &Service{name: name, port: port, txt: txt}
}

// TXT builds the TXT records describing info.
func TXT(info models.Info) []string {
	txt := []string{"version=" + info.Version, "path=/api"}
	if info.Store != "" {
		txt = append(txt, "store="+info.Store)
	}
	return txt
}

// Start registers the service and blocks until ctx is cancelled, then
// unregisters it.
func (s *Service) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return nil
	}
	server, err := zeroconf.Register(s.name, ServiceType, "local.", s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service", "name", s.name, "type", ServiceType, "port", s.port, "txt", s.txt)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
