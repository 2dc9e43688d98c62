//go:build !windows

package security

import (
	"github.com/google/renameio/v2"

	"github.com/oshokin/catpoint/internal/config"
)

// writeFileAtomically replaces path with data: temp file, fsync, rename.
// A crash mid-write leaves the previous state file intact.
func writeFileAtomically(path string, data []byte) error {
	return renameio.WriteFile(path, data, config.DefaultFilePermissions)
}
