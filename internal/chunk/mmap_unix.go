//go:build linux || darwin || freebsd

package chunk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapped is a Source over a memory-mapped regular file. Chunks are slices of
// the mapping, so no bytes are copied; they stay valid until Close.
type Mapped struct {
	Bytes
	mapping []byte
}

// Map memory-maps f read-only and returns a Source handing out blocks of size
// bytes. A size below 1 selects DefaultSize. An empty file yields a Source that
// is immediately at EOF.
func Map(f *os.File, size int) (*Mapped, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), ErrMmapUnsupported)
	}
	if st.Size() == 0 {
		return &Mapped{Bytes: *NewBytes(nil, size)}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), err)
	}
	// Advice is a hint; a failure changes nothing about correctness.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &Mapped{Bytes: *NewBytes(data, size), mapping: data}, nil
}

// Data returns the whole mapping. It must not be used after Close.
func (m *Mapped) Data() []byte { return m.mapping }

// Close releases the mapping. Chunks returned earlier must not be used after.
func (m *Mapped) Close() error {
	if m.mapping == nil {
		return nil
	}
	err := unix.Munmap(m.mapping)
	m.mapping = nil
	m.Bytes = Bytes{size: m.size}
	return err
}
