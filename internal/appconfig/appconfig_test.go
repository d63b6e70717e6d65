package appconfig_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flipperdevices/flipper-debug-go/internal/appconfig"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flipperd.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := appconfig.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8420" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Store != "json" {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.Serial.Baud != 230400 {
		t.Errorf("Serial.Baud = %d", cfg.Serial.Baud)
	}
	if cfg.Serial.CheckInterval != 5*time.Second {
		t.Errorf("Serial.CheckInterval = %v", cfg.Serial.CheckInterval)
	}
	if cfg.Backup.Retention != 720*time.Hour {
		t.Errorf("Backup.Retention = %v", cfg.Backup.Retention)
	}
	if !cfg.Zeroconf.Enabled {
		t.Error("Zeroconf.Enabled = false by default")
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.Log.SlogLevel())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
addr: 127.0.0.1:9000
store: sqlite
serial:
  port: /dev/ttyACM3
  mock: true
sync:
  schedule: ""
  min_interval: 1m
log:
  level: debug
  json: true
`)
	cfg, err := appconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.Store != "sqlite" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Serial.Port != "/dev/ttyACM3" || !cfg.Serial.Mock {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.Sync.Schedule != "" || cfg.Sync.MinInterval != time.Minute {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Serial.Baud != 230400 {
		t.Errorf("unset key lost its default: baud = %d", cfg.Serial.Baud)
	}
	if !cfg.Log.JSON || cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if port, _ := cfg.Port(); port != 9000 {
		t.Errorf("Port = %d", port)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "store: sqlite\nserial:\n  port: /dev/ttyACM0\n")
	t.Setenv("FLIPPERD_STORE", "memory")
	t.Setenv("FLIPPERD_SERIAL_PORT", "/dev/ttyUSB9")
	t.Setenv("FLIPPERD_ZEROCONF_ENABLED", "false")

	cfg, err := appconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q, want env override", cfg.Store)
	}
	if cfg.Serial.Port != "/dev/ttyUSB9" {
		t.Errorf("Serial.Port = %q, want env override", cfg.Serial.Port)
	}
	if cfg.Zeroconf.Enabled {
		t.Error("Zeroconf.Enabled = true, want env override false")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := appconfig.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing explicit file: want error")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"store":          "store: redis\n",
		"addr":           "addr: nowhere\n",
		"baud":           "serial:\n  baud: 0\n",
		"check interval": "serial:\n  check_interval: 0s\n",
		"negative check": "serial:\n  check_interval: -1s\n",
		"log level":      "log:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := appconfig.Load(writeFile(t, body)); err == nil {
				t.Errorf("Load(%q): want error", body)
			}
		})
	}
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
