// Package models defines the data structures shared by the flipper debug daemon.
// JSON field names match the keys of the persisted settings document.
package models

import (
	"errors"
	"fmt"
)

// ErrUnknownOption is returned when an option key does not name a settings field.
var ErrUnknownOption = errors.New("unknown settings option")

// Settings is the persisted debug configuration document.
// It is a value type: every mutation produces a new copy.
type Settings struct {
	IgnoreUnsupportedVersion             bool `json:"ignore_unsupported_version"`
	AlwaysUpdate                         bool `json:"always_update"`
	IgnoreSubGhzProvisioningOnZeroRegion bool `json:"ignore_subghz_provisioning_on_zero_region"`
	SkipAutoSyncInDebug                  bool `json:"skip_auto_sync_in_debug"`
	ApplicationCatalog                   bool `json:"application_catalog"`
}

// Transform maps the current document to the next one. It must be pure.
type Transform func(Settings) Settings

// DefaultSettings returns the document used when nothing has been persisted yet.
func DefaultSettings() Settings {
	return Settings{}
}

// Option names a single field of the settings document.
type Option string

const (
	OptIgnoreUnsupportedVersion Option = "ignore_unsupported_version"
	OptAlwaysUpdate             Option = "always_update"
	OptIgnoreSubGhzProvisioning Option = "ignore_subghz_provisioning_on_zero_region"
	OptSkipAutoSyncInDebug      Option = "skip_auto_sync_in_debug"
	OptApplicationCatalog       Option = "application_catalog"
)

// Options returns every option in document order.
func Options() []Option {
	return []Option{
		OptIgnoreUnsupportedVersion,
		OptAlwaysUpdate,
		OptIgnoreSubGhzProvisioning,
		OptSkipAutoSyncInDebug,
		OptApplicationCatalog,
	}
}

// ParseOption validates a raw option key.
func ParseOption(key string) (Option, error) {
	for _, o := range Options() {
		if string(o) == key {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOption, key)
}

// field returns a pointer to the field named by o inside s.
func (s *Settings) field(o Option) (*bool, error) {
	switch o {
	case OptIgnoreUnsupportedVersion:
		return &s.IgnoreUnsupportedVersion, nil
	case OptAlwaysUpdate:
		return &s.AlwaysUpdate, nil
	case OptIgnoreSubGhzProvisioning:
		return &s.IgnoreSubGhzProvisioningOnZeroRegion, nil
	case OptSkipAutoSyncInDebug:
		return &s.SkipAutoSyncInDebug, nil
	case OptApplicationCatalog:
		return &s.ApplicationCatalog, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOption, string(o))
}

// Get returns the value of a single option.
func (s Settings) Get(o Option) (bool, error) {
	p, err := s.field(o)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// With returns a copy of s with option o set to v.
func (s Settings) With(o Option, v bool) (Settings, error) {
	p, err := s.field(o)
	if err != nil {
		return s, err
	}
	*p = v
	return s, nil
}

// Values returns the document as an option → value map.
func (s Settings) Values() map[Option]bool {
	out := make(map[Option]bool, len(Options()))
	for _, o := range Options() {
		v, _ := s.Get(o)
		out[o] = v
	}
	return out
}
