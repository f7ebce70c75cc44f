// Package gen writes synthetic application logs for benchmarking scans.
//
// Output is a header line followed by rows of
// timestamp,level,message,response_time_ms, encoded with gocsv. The per-level
// counts are returned so a scan of the output can be checked exactly.
package gen

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"logscan/internal/datasource/file"
)

// Levels are the log levels drawn uniformly for each row.
var Levels = []string{"INFO", "DEBUG", "WARN", "ERROR"}

// Messages are the plain messages drawn for each row.
var Messages = []string{"User logged in", "Failed to connect", "Timeout", "Data sync"}

// awkward messages need quoting: embedded delimiters, quotes and newlines.
var awkward = []string{
	"Cache miss, falling back",
	`Upstream said "ERROR" and hung up`,
	"Stack trace:\nERROR at line 1\nERROR at line 2",
}

// Row is one generated log record.
type Row struct {
	Timestamp      string `csv:"timestamp"`
	Level          string `csv:"level"`
	Message        string `csv:"message"`
	ResponseTimeMS int    `csv:"response_time_ms"`
}

// Options controls generation.
type Options struct {
	// Rows is the number of data rows to write.
	Rows int64
	// Seed makes output reproducible; 0 seeds from the clock.
	Seed int64
	// BatchSize is the number of rows marshalled per write; 0 means 10000.
	BatchSize int
	// Awkward mixes in messages that need quoting, one row in ten.
	Awkward bool
	// LogEvery logs progress every n rows; 0 disables it.
	LogEvery int64
}

// Counts reports what Write produced.
type Counts struct {
	Rows   int64
	Levels map[string]int64
}

// Write emits opt.Rows rows to w. The context is checked between batches.
func Write(ctx context.Context, w io.Writer, opt Options) (Counts, error) {
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	batch := opt.BatchSize
	if batch <= 0 {
		batch = 10000
	}

	counts := Counts{Levels: make(map[string]int64, len(Levels))}
	rows := make([]Row, 0, batch)
	first := true
	flush := func() error {
		var err error
		if first {
			err = gocsv.Marshal(rows, w)
			first = false
		} else if len(rows) > 0 {
			err = gocsv.MarshalWithoutHeaders(rows, w)
		}
		rows = rows[:0]
		if err != nil {
			return fmt.Errorf("gen: write rows: %w", err)
		}
		return nil
	}

	for i := int64(0); i < opt.Rows; i++ {
		r := randomRow(rng, opt.Awkward)
		rows = append(rows, r)
		counts.Rows++
		counts.Levels[r.Level]++
		if opt.LogEvery > 0 && i%opt.LogEvery == 0 {
			log.Printf("gen: %s rows written", humanize.Comma(i))
		}
		if len(rows) == batch {
			if err := ctx.Err(); err != nil {
				return counts, err
			}
			if err := flush(); err != nil {
				return counts, err
			}
		}
	}
	if err := flush(); err != nil {
		return counts, err
	}
	return counts, nil
}

func randomRow(rng *rand.Rand, withAwkward bool) Row {
	msg := Messages[rng.Intn(len(Messages))]
	if withAwkward && rng.Intn(10) == 0 {
		msg = awkward[rng.Intn(len(awkward))]
	}
	return Row{
		Timestamp:      fmt.Sprintf("2025-12-13 10:%d:%d", 10+rng.Intn(50), 10+rng.Intn(50)),
		Level:          Levels[rng.Intn(len(Levels))],
		Message:        msg,
		ResponseTimeMS: 10 + rng.Intn(4991),
	}
}

// Create opens path for writing, compressing by extension the same way
// file.NewLocal decompresses on read. Closing the writer finishes the stream
// and closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	switch file.CodecFor(path) {
	case file.Gzip:
		return &encoded{WriteCloser: gzip.NewWriter(f), f: f}, nil
	case file.Zstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create %s: zstd encoder: %w", path, err)
		}
		return &encoded{WriteCloser: zw, f: f}, nil
	case file.LZ4:
		return &encoded{WriteCloser: lz4.NewWriter(f), f: f}, nil
	default:
		return f, nil
	}
}

type encoded struct {
	io.WriteCloser
	f *os.File
}

func (e *encoded) Close() error {
	err := e.WriteCloser.Close()
	if cerr := e.f.Close(); err == nil {
		err = cerr
	}
	return err
}
