// Package gen emits derived artifacts from a built mission database: DCF
// device descriptions, CANopenNode OD.[ch] pairs, Go constant files for card
// daemons, markdown documentation, and Kaitai struct definitions for the
// beacon frame.
package gen

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile writes a generated artifact atomically, creating parent
// directories as needed. A failed generation never leaves a half-written
// file behind.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, data, 0o644)
}
