package identity_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flipperdevices/flipper-debug-go/internal/identity"
)

func TestVersion_Fallback(t *testing.T) {
	dir := t.TempDir()
	got := identity.VersionFromDir(dir)
	if got != identity.DefaultVersion {
		t.Errorf("VersionFromDir(%q) = %q; want %q", dir, got, identity.DefaultVersion)
	}
}

func TestVersion_FromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{"version":"1.4.2"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if got := identity.VersionFromDir(dir); got != "1.4.2" {
		t.Errorf("VersionFromDir = %q; want 1.4.2", got)
	}
}

func TestVersion_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := identity.VersionFromDir(dir); got != identity.DefaultVersion {
		t.Errorf("VersionFromDir with invalid JSON = %q; want %q", got, identity.DefaultVersion)
	}
}

func TestVersion_BuildOverride(t *testing.T) {
	orig := identity.BuildVersion
	t.Cleanup(func() { identity.BuildVersion = orig })
	identity.BuildVersion = "v9.9.9"

	if got := identity.VersionFromDir(t.TempDir()); got != "v9.9.9" {
		t.Errorf("VersionFromDir = %q; want build version", got)
	}
}

func TestLoad(t *testing.T) {
	info := identity.Load(t.TempDir())
	if info.Hostname == "" {
		t.Error("Hostname is empty")
	}
	if info.Version == "" {
		t.Error("Version is empty")
	}
}

func TestDefaultConfigDir(t *testing.T) {
	if dir := identity.DefaultConfigDir(); !strings.HasSuffix(dir, "flipperd") {
		t.Errorf("DefaultConfigDir() = %q", dir)
	}
}
