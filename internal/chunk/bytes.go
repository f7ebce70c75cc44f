package chunk

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("chunk: negative offset")

// Bytes is a Source over an in-memory slice. Chunks alias the slice, so
// nothing is copied and a chunk stays valid as long as the slice does.
type Bytes struct {
	data []byte
	size int
	off  int
}

// NewBytes returns a Source handing out blocks of size bytes from data. A
// size below 1 selects DefaultSize.
func NewBytes(data []byte, size int) *Bytes {
	if size < 1 {
		size = DefaultSize
	}
	return &Bytes{data: data, size: size}
}

// Next implements Source.
func (b *Bytes) Next() ([]byte, error) {
	if b.off >= len(b.data) {
		return nil, io.EOF
	}
	end := min(b.off+b.size, len(b.data))
	c := b.data[b.off:end]
	b.off = end
	return c, nil
}

// BytesRead reports how many bytes have been handed out.
func (b *Bytes) BytesRead() int64 { return int64(b.off) }

// ReadAt implements io.ReaderAt over the whole slice.
func (b *Bytes) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
