// Package file implements local filesystem inputs, including transparent
// decompression of .gz, .zst and .lz4 files, and list files of input paths.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"logscan/internal/datasource"
)

var _ datasource.Source = (*Local)(nil)

// Codec names the compression applied to a stored file.
type Codec string

// Supported codecs. None means the file is stored as plain text.
const (
	None Codec = ""
	Gzip Codec = "gzip"
	Zstd Codec = "zstd"
	LZ4  Codec = "lz4"
)

// CodecFor picks a codec from the file extension, case-insensitively.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path  string
	codec Codec
}

// NewLocal returns a Local bound to path, with the codec chosen by extension.
// The returned value is safe for concurrent use; every Open returns an
// independent reader.
func NewLocal(path string) *Local { return &Local{path: path, codec: CodecFor(path)} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Codec returns the codec used to decode the file.
func (l *Local) Codec() Codec { return l.codec }

// Compressed reports whether Open decodes the stored bytes.
func (l *Local) Compressed() bool { return l.codec != None }

// Open returns the decoded content of the file.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem and decoder errors are wrapped with the path and keep
// their identity for errors.Is (for example os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := l.OpenFile(ctx)
	if err != nil {
		return nil, err
	}
	switch l.codec {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open %s: gzip header: %w", l.path, err)
		}
		return &decoded{Reader: zr, closeDec: zr.Close, f: f}, nil
	case Zstd:
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open %s: zstd decoder: %w", l.path, err)
		}
		return &decoded{Reader: zr, closeDec: func() error { zr.Close(); return nil }, f: f}, nil
	case LZ4:
		return &decoded{Reader: lz4.NewReader(f), f: f}, nil
	default:
		return f, nil
	}
}

// OpenFile opens the stored bytes without decoding.
func (l *Local) OpenFile(ctx context.Context) (*os.File, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// decoded closes the decoder before the file underneath it.
type decoded struct {
	io.Reader
	closeDec func() error
	f        *os.File
}

func (d *decoded) Close() error {
	var err error
	if d.closeDec != nil {
		err = d.closeDec()
	}
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
