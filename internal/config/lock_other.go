//go:build !unix

package config

// lockFile is a no-op where flock is unavailable; the in-process mutex still
// serializes updates.
func lockFile(path string) (func(), error) {
	return func() {}, nil
}
