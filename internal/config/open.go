package config

import "fmt"

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the store for the named backend rooted at configDir.
func Open(backend, configDir string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(configDir), nil
	case BackendSQLite:
		return NewSQLiteStore(configDir)
	case BackendMemory:
		return NewMemStore(), nil
	}
	return nil, fmt.Errorf("config: unknown store backend %q", backend)
}
