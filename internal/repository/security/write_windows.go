//go:build windows

package security

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/catpoint/internal/config"
)

// writeFileAtomically writes data to a temp file in the same directory and
// renames it over path. Rename is best-effort atomic on Windows.
func writeFileAtomically(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".catpoint-state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = tmpFile.Chmod(config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp state file: %w", err)
	}

	// Windows cannot rename an open file.
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	tmpFile = nil

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}
