//go:build !(linux || darwin || freebsd)

package chunk

import (
	"fmt"
	"os"
)

// Mapped is unavailable on this platform; Map always fails.
type Mapped struct {
	Bytes
}

// Map reports ErrMmapUnsupported so callers fall back to NewReader.
func Map(f *os.File, size int) (*Mapped, error) {
	return nil, fmt.Errorf("mmap %s: %w", f.Name(), ErrMmapUnsupported)
}

func (m *Mapped) Data() []byte { return nil }
func (m *Mapped) Close() error { return nil }
