// Package appconfig loads the daemon configuration from defaults, an optional
// YAML file and FLIPPERD_* environment variables.
package appconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flipperdevices/flipper-debug-go/internal/config"
	"github.com/flipperdevices/flipper-debug-go/internal/identity"
)

// EnvPrefix is prepended to every environment override, e.g. FLIPPERD_SERIAL_PORT.
const EnvPrefix = "FLIPPERD"

// Config is the daemon configuration.
type Config struct {
	Addr      string         `mapstructure:"addr"`
	ConfigDir string         `mapstructure:"config_dir"`
	Store     string         `mapstructure:"store"` // json, sqlite, memory
	Serial    SerialConfig   `mapstructure:"serial"`
	Sync      SyncConfig     `mapstructure:"sync"`
	Backup    BackupConfig   `mapstructure:"backup"`
	Notify    NotifyConfig   `mapstructure:"notify"`
	Zeroconf  ZeroconfConfig `mapstructure:"zeroconf"`
	Log       LogConfig      `mapstructure:"log"`
}

// SerialConfig selects the Flipper connection.
type SerialConfig struct {
	Port          string        `mapstructure:"port"` // empty: autodetect
	Baud          int           `mapstructure:"baud"`
	Mock          bool          `mapstructure:"mock"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	Schedule    string        `mapstructure:"schedule"` // cron spec, empty disables
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// BackupConfig tunes settings snapshots.
type BackupConfig struct {
	Schedule  string        `mapstructure:"schedule"`
	Retention time.Duration `mapstructure:"retention"`
}

// NotifyConfig selects notification surfaces besides the event stream.
type NotifyConfig struct {
	DBus    bool   `mapstructure:"dbus"`
	AppName string `mapstructure:"app_name"`
}

// ZeroconfConfig controls mDNS advertisement.
type ZeroconfConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"` // empty: hostname
}

// LogConfig defines logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8420")
	v.SetDefault("config_dir", identity.DefaultConfigDir())
	v.SetDefault("store", config.BackendJSON)
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 230400)
	v.SetDefault("serial.mock", false)
	v.SetDefault("serial.check_interval", "5s")
	v.SetDefault("sync.schedule", "*/30 * * * *")
	v.SetDefault("sync.min_interval", "10s")
	v.SetDefault("backup.schedule", "0 3 * * *")
	v.SetDefault("backup.retention", "720h")
	v.SetDefault("notify.dbus", false)
	v.SetDefault("notify.app_name", "flipperd")
	v.SetDefault("zeroconf.enabled", true)
	v.SetDefault("zeroconf.name", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads configuration. With file empty, flipperd.yaml is looked up in
// /etc/flipperd, ~/.config/flipperd and the working directory, and a missing
// file is not an error. An explicit file must exist.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("flipperd")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/flipperd/")
		v.AddConfigPath("$HOME/.config/flipperd")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		slog.Debug("appconfig: loaded file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.Store {
	case config.BackendJSON, config.BackendSQLite, config.BackendMemory:
	default:
		return fmt.Errorf("appconfig: unknown store %q", c.Store)
	}
	if _, err := c.Port(); err != nil {
		return err
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("appconfig: serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.CheckInterval <= 0 {
		return fmt.Errorf("appconfig: serial.check_interval must be positive, got %s", c.Serial.CheckInterval)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Port returns the TCP port of Addr.
func (c *Config) Port() (int, error) {
	_, p, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return 0, fmt.Errorf("appconfig: addr %q: %w", c.Addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("appconfig: addr %q: bad port", c.Addr)
	}
	return port, nil
}

// SlogLevel returns the configured level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	lvl, _ := parseLevel(l.Level)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("appconfig: unknown log level %q", s)
}
