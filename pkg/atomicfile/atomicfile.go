// Package atomicfile implements the write-to-temp-then-rename contract
// used throughout Cast for crash-safe persistence: a sibling temp file is
// written, fsynced, and renamed over the target. The rename is the
// commit point; a crash before it leaves no visible change.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempPrefix names temp files so a crashed run's leftovers are easy to
// find and sweep.
const TempPrefix = "cast-tmp-"

// Write writes data to filename atomically via a temp file in the same
// directory.
func Write(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	cleanup = false
	return nil
}
