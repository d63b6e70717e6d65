// Command flipperd serves the Flipper debug settings over HTTP.
// Run with --mock to use a simulated device (no Flipper attached).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flipperdevices/flipper-debug-go/internal/api"
	"github.com/flipperdevices/flipper-debug-go/internal/appconfig"
	"github.com/flipperdevices/flipper-debug-go/internal/auth"
	"github.com/flipperdevices/flipper-debug-go/internal/config"
	"github.com/flipperdevices/flipper-debug-go/internal/controller"
	"github.com/flipperdevices/flipper-debug-go/internal/events"
	"github.com/flipperdevices/flipper-debug-go/internal/identity"
	"github.com/flipperdevices/flipper-debug-go/internal/lifecycle"
	"github.com/flipperdevices/flipper-debug-go/internal/maintenance"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
	"github.com/flipperdevices/flipper-debug-go/internal/navigation"
	"github.com/flipperdevices/flipper-debug-go/internal/notify"
	"github.com/flipperdevices/flipper-debug-go/internal/service"
	"github.com/flipperdevices/flipper-debug-go/internal/synchronization"
	"github.com/flipperdevices/flipper-debug-go/internal/uiloop"
	"github.com/flipperdevices/flipper-debug-go/internal/zeroconf"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}

	var (
		cfgFile = flag.String("config", "", "YAML config file (default: search flipperd.yaml)")
		cfgDir  = flag.String("config-dir", "", "settings directory (overrides config_dir)")
		mock    = flag.Bool("mock", false, "use a simulated device (no Flipper required)")
		debug   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := appconfig.Load(*cfgFile)
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}
	if *cfgDir != "" {
		cfg.ConfigDir = *cfgDir
	}
	if *mock {
		cfg.Serial.Mock = true
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	setupLogging(cfg.Log)

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", cfg.ConfigDir, "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("flipperd failed", "err", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func setupLogging(c appconfig.LogConfig) {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.JSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func run(cfg *appconfig.Config) error {
	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	goRun := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			slog.Debug("background task stopped", "task", name)
		}()
	}

	// Event bus
	bus := events.NewBus()
	settingsOut := &settingsPublisher{bus: bus}

	// Settings store; every committed change goes out as a settings event.
	base, err := config.Open(cfg.Store, cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer base.Close()
	store := config.WithHook(base, settingsOut.publish)
	if w, ok := base.(settingsWatcher); ok {
		goRun("settings-watch", func() {
			if err := w.Watch(ctx, settingsOut.publish); err != nil {
				slog.Warn("settings watch stopped", "err", err)
			}
		})
	}
	if st, err := store.Load(); err == nil {
		settingsOut.publish(st)
	}
	slog.Info("settings store", "backend", cfg.Store, "path", base.Path())

	// UI loop
	loop := uiloop.New()
	goRun("ui-loop", func() { loop.Run(ctx) })

	// Device connection
	var dialer service.Dialer
	if cfg.Serial.Mock {
		slog.Info("using mock device")
		dialer = &service.MockDialer{}
	} else {
		dialer = service.SerialDialer{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud}
	}
	provider := service.NewProvider(dialer, func(connected bool) {
		slog.Info("device connection changed", "connected", connected)
	})
	goRun("device", func() { provider.Run(ctx, cfg.Serial.CheckInterval) })

	// Synchronizer
	syncer := synchronization.New(store, syncJob(provider), bus, synchronization.Options{
		MinInterval: cfg.Sync.MinInterval,
		Schedule:    cfg.Sync.Schedule,
	})
	goRun("sync", func() {
		if err := syncer.Run(ctx); err != nil {
			slog.Error("synchronizer stopped", "err", err)
		}
	})

	// Notifications
	var notifier controller.Notifier = notify.NewBusNotifier(bus)
	if cfg.Notify.DBus {
		desktop := notify.NewDBusNotifier(cfg.Notify.AppName)
		defer desktop.Close()
		notifier = notify.Fanout{notifier, desktop}
	}

	// Navigation
	nav := navigation.NewDefault(bus)

	// Controller, bound to a scope that lives as long as the daemon.
	scope := lifecycle.NewScope(ctx, nil)
	ctrl := controller.New(scope, controller.Deps{
		Store:      store,
		Sync:       syncer,
		Services:   provider,
		Notifier:   notifier,
		UI:         loop,
		StressTest: navigation.StressTest{},
		MfKey32:    navigation.MfKey32{},
	})

	// Settings backups
	backups := maintenance.New(store, filepath.Join(cfg.ConfigDir, "backups"), cfg.Backup.Retention)
	backups.SetApplier(ctrl)
	goRun("backups", func() {
		if err := backups.Run(ctx, cfg.Backup.Schedule); err != nil {
			slog.Error("backup scheduler stopped", "err", err)
		}
	})

	// Auth service
	authSvc, err := auth.NewService(cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer authSvc.Close()
	if authSvc.IsOpenMode() {
		slog.Warn("no api keys configured, API is open", "file", authSvc.Path())
	}

	ident := identity.Load(cfg.ConfigDir)
	info := func() models.Info {
		return models.Info{
			Version:   ident.Version,
			Hostname:  ident.Hostname,
			Store:     base.Path(),
			Connected: provider.Connected(),
			Route:     nav.Current(),
		}
	}

	// Zeroconf mDNS registration
	if cfg.Zeroconf.Enabled {
		port, _ := cfg.Port()
		name := cfg.Zeroconf.Name
		if name == "" {
			name = ident.Hostname
		}
		zc := zeroconf.New(name, port, zeroconf.TXT(info()))
		goRun("zeroconf", func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		})
	}

	// HTTP server
	router := api.NewRouter(api.Deps{
		Ctrl:    ctrl,
		Nav:     nav,
		Sync:    syncer,
		Backups: backups,
		Events:  bus,
		Auth:    authSvc,
		Info:    info,
	})
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("flipperd listening", "addr", cfg.Addr, "mock", cfg.Serial.Mock, "config", cfg.ConfigDir, "version", ident.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancel()
			wg.Wait()
			scope.Close()
			return err
		}
	}
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	// Pending settings writes are cancelled, never half-written.
	scope.Close()
	wg.Wait()
	return nil
}

// syncJob reads the device description over the live connection.
func syncJob(p *service.Provider) synchronization.Job {
	return func(ctx context.Context) (map[string]string, error) {
		var info map[string]string
		err := p.Do(func(svc service.Service) error {
			var err error
			info, err = svc.DeviceInfo(ctx)
			return err
		})
		return info, err
	}
}

// settingsWatcher is implemented by stores that can see writes made by
// other processes.
type settingsWatcher interface {
	Watch(ctx context.Context, fn func(models.Settings)) error
}

// settingsPublisher publishes a settings event whenever the document differs
// from the last one published. Own writes arrive twice (store hook and file
// watch) and go out once.
type settingsPublisher struct {
	bus  *events.Bus
	mu   sync.Mutex
	last *models.Settings
}

func (p *settingsPublisher) publish(st models.Settings) {
	p.mu.Lock()
	if p.last != nil && *p.last == st {
		p.mu.Unlock()
		return
	}
	p.last = &st
	p.mu.Unlock()
	p.bus.Publish(models.SettingsEvent(st))
}
