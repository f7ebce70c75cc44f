// Package chunk hands out fixed-size byte blocks from an input without
// interpreting them. It is the bottom layer of the scanner: everything above it
// sees the input only as a sequence of chunks.
package chunk

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultSize is the block size used when none is configured.
const DefaultSize = 4 << 20

// Source yields consecutive chunks of an input.
//
// Next returns the next non-empty chunk, or (nil, io.EOF) once the input is
// exhausted. The returned slice is only valid until the following call.
type Source interface {
	Next() ([]byte, error)
}

// Reader is a Source over an io.Reader. It owns a single buffer that is
// refilled on every call, so memory stays at one block regardless of input
// size.
type Reader struct {
	r    io.Reader
	buf  []byte
	read int64
	eof  bool
}

// NewReader returns a Reader that fills blocks of size bytes from r. A size
// below 1 selects DefaultSize. When r is an *os.File the kernel is told the
// access pattern is sequential.
func NewReader(r io.Reader, size int) *Reader {
	if size < 1 {
		size = DefaultSize
	}
	if f, ok := r.(*os.File); ok {
		adviseSequential(f)
	}
	return &Reader{r: r, buf: make([]byte, size)}
}

// Next implements Source. Short reads from the underlying reader are retried
// until the block is full or the input ends, so every chunk but the last has
// exactly the configured size.
func (c *Reader) Next() ([]byte, error) {
	if c.eof {
		return nil, io.EOF
	}
	n, err := io.ReadFull(c.r, c.buf)
	c.read += int64(n)
	switch {
	case err == nil:
		return c.buf[:n], nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.eof = true
		if n == 0 {
			return nil, io.EOF
		}
		return c.buf[:n], nil
	default:
		return nil, fmt.Errorf("read chunk at offset %d: %w", c.read, err)
	}
}

// BytesRead reports how many input bytes have been handed out so far.
func (c *Reader) BytesRead() int64 { return c.read }
