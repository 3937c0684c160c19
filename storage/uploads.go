// Package storage resolves where uploaded files live on disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	UploadsDirEnvVar  = "UPLOADS_DIR"
	defaultUploadsDir = "uploads"
)

// executable is swapped in tests.
var executable = os.Executable

// UploadsRoot returns the directory where uploads are stored.
//
// UPLOADS_DIR wins when set (a persistent disk in production). Otherwise uploads sit
// next to the install: <dir of binary>/../uploads. The directory is not created.
func UploadsRoot() string {
	return UploadsRootFrom(os.Getenv(UploadsDirEnvVar))
}

// UploadsRootFrom is UploadsRoot with the override passed in explicitly.
func UploadsRootFrom(override string) string {
	if configured := strings.TrimSpace(override); configured != "" {
		return configured
	}
	return DefaultUploadsRoot()
}

// DefaultUploadsRoot is the uploads directory used when no override is configured.
func DefaultUploadsRoot() string {
	base := "."
	if exe, err := executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		base = filepath.Dir(exe)
	}
	return filepath.Join(base, "..", defaultUploadsDir)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
