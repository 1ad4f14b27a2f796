// Package fsx provides the filesystem operations the queue store delegates:
// existence checks, directory creation, and empty-file creation.
package fsx

import (
	"fmt"
	"os"
)

// FS implements the store's filesystem collaborator on top of the OS.
type FS struct{}

// Exists reports whether every given path exists.
func (FS) Exists(paths ...string) (bool, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	return true, nil
}

// MkdirAll creates the directory and any missing parents.
func (FS) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Touch creates each given file if it does not already exist.
// Existing files are left untouched.
func (FS) Touch(paths ...string) error {
	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE, 0o644) //nolint:gosec // G304: path is the caller's queue directory
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", p, err)
		}
	}
	return nil
}
