// Package scan counts the records of a delimited log file whose target field
// satisfies a predicate.
//
// The input is read in bounded chunks and never materialized. Records are
// assembled across chunk boundaries with quote-aware splitting, the header is
// resolved once, and each record is classified with a single field lookup.
// Plain files can also be split into byte-range shards that are scanned in
// parallel and stitched back together; the counts are identical to a
// sequential scan.
package scan

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"logscan/internal/chunk"
	"logscan/internal/datasource/file"
	"logscan/internal/metrics"
)

const streamName = "<stream>"

var tracer = otel.Tracer("logscan/internal/scan")

// Scan counts records of the file at path whose field equals value, using
// default options.
func Scan(ctx context.Context, path, field, value string) (Result, error) {
	return ScanFile(ctx, path, Equal(field, value), Options{})
}

// ScanReader scans a stream sequentially.
func ScanReader(ctx context.Context, r io.Reader, q Query, opt Options) (Result, error) {
	if err := q.validate(); err != nil {
		return Result{}, err
	}
	return newDriver(streamName, q, opt).run(ctx, chunk.NewReader(r, opt.ChunkSize))
}

// ScanFile scans the file at path. Files ending in .gz, .zst or .lz4 are
// decompressed on the fly and always scanned sequentially. Plain files honor
// opt.Workers and opt.Mmap.
func ScanFile(ctx context.Context, path string, q Query, opt Options) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "scan.ScanFile", trace.WithAttributes(
		attribute.String("scan.path", path),
		attribute.String("scan.field", q.Field),
		attribute.Int("scan.workers", opt.Workers),
	))
	start := time.Now()
	defer func() {
		metrics.RecordStep(opt.job(), "scan", err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			metrics.RecordRow(opt.job(), "scanned", res.Total)
			metrics.RecordRow(opt.job(), "matched", res.Matched)
			metrics.RecordRow(opt.job(), "malformed", res.Malformed)
			metrics.RecordBytes(opt.job(), res.Bytes)
			span.SetAttributes(
				attribute.Int64("scan.total", res.Total),
				attribute.Int64("scan.matched", res.Matched),
				attribute.Int64("scan.malformed", res.Malformed),
				attribute.Int64("scan.bytes", res.Bytes),
			)
		}
		span.End()
	}()

	if err := q.validate(); err != nil {
		return Result{}, err
	}
	src := file.NewLocal(path)

	if src.Compressed() {
		rc, err := src.Open(ctx)
		if err != nil {
			return Result{}, openError(path, err)
		}
		defer rc.Close()
		if opt.Verbose && opt.Workers > 1 {
			log.Printf("scan: %s is %s-compressed; scanning sequentially", path, src.Codec())
		}
		return newDriver(path, q, opt).run(ctx, chunk.NewReader(rc, opt.ChunkSize))
	}

	f, err := src.OpenFile(ctx)
	if err != nil {
		return Result{}, openError(path, err)
	}
	defer f.Close()

	var in input = fileInput{f: f}
	if opt.Mmap {
		m, err := chunk.Map(f, opt.ChunkSize)
		switch {
		case err == nil:
			defer m.Close()
			in = mappedInput{m: m}
		case errors.Is(err, chunk.ErrMmapUnsupported):
			if opt.Verbose {
				log.Printf("scan: %v; using buffered reads", err)
			}
		default:
			return Result{}, &IOError{Path: path, Err: err}
		}
	}

	if opt.Workers > 1 || opt.Shards > 1 {
		st, err := f.Stat()
		if err != nil {
			return Result{}, &IOError{Path: path, Err: err}
		}
		if st.Mode().IsRegular() {
			return scanShards(ctx, path, in, st.Size(), q, opt)
		}
	}
	return newDriver(path, q, opt).run(ctx, in.section(0, -1, opt.ChunkSize))
}

// openError keeps context errors bare and wraps everything else as IOError.
func openError(path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &IOError{Path: path, Err: err}
}

// input is a plain file that can be read sequentially or at offsets.
type input interface {
	io.ReaderAt
	// section returns a chunk source over [off, off+n); n < 0 means to the end.
	section(off, n int64, size int) chunk.Source
}

type fileInput struct{ f *os.File }

func (in fileInput) ReadAt(p []byte, off int64) (int, error) { return in.f.ReadAt(p, off) }

func (in fileInput) section(off, n int64, size int) chunk.Source {
	if n < 0 {
		return chunk.NewReader(in.f, size)
	}
	return chunk.NewReader(io.NewSectionReader(in.f, off, n), size)
}

type mappedInput struct{ m *chunk.Mapped }

func (in mappedInput) ReadAt(p []byte, off int64) (int, error) { return in.m.ReadAt(p, off) }

func (in mappedInput) section(off, n int64, size int) chunk.Source {
	data := in.m.Data()
	if n < 0 {
		n = int64(len(data)) - off
	}
	return chunk.NewBytes(data[off:off+n], size)
}
