// Package identity describes the running daemon: host, version and where its
// configuration lives.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultVersion is reported when neither the build nor metadata.json name one.
const DefaultVersion = "0.1.0-dev"

// BuildVersion is set at link time with -ldflags "-X ...identity.BuildVersion=v1.2.3".
var BuildVersion = ""

// Info holds system identity information.
type Info struct {
	Hostname string
	Version  string
}

// Load resolves the identity for a daemon using configDir.
func Load(configDir string) Info {
	return Info{Hostname: Hostname(), Version: VersionFromDir(configDir)}
}

// Hostname returns the system hostname.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "flipperd"
	}
	return h
}

// DefaultConfigDir returns ~/.config/flipperd, or a relative fallback when
// the home directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flipperd"
	}
	return filepath.Join(home, ".config", "flipperd")
}

// VersionFromDir returns BuildVersion if set, else the "version" field of
// dir/metadata.json, else DefaultVersion. An empty dir means DefaultConfigDir.
func VersionFromDir(dir string) string {
	if BuildVersion != "" {
		return BuildVersion
	}
	if dir == "" {
		dir = DefaultConfigDir()
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Version == "" {
		return DefaultVersion
	}
	return meta.Version
}
