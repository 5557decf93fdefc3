// Package rom loads CHIP-8 ROM images from disk. It is kept separate from
// internal/chip8 so the core VM constructor stays pure and host-agnostic;
// the core only ever sees a []byte.
package rom

import (
	"fmt"
	"os"

	"github.com/arjunkrish/chippy8/internal/chip8"
)

// Load reads the ROM file at path and returns its raw bytes. It performs
// no size validation itself — chip8.New is the single source of truth for
// the 3584-byte limit — but it does translate a read failure into a
// *chip8.LoadError so callers have one error type to handle regardless of
// whether loading failed at the file-system layer or the VM layer.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &chip8.LoadError{Kind: chip8.RomIOError, Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	return data, nil
}
