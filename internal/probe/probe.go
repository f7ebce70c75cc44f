// Package probe samples the start of a log file and reports its header with a
// guessed type per column. It is the quick look taken before choosing a field
// and predicate for a scan.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"logscan/internal/datasource"
	"logscan/internal/datasource/file"
	"logscan/internal/parser/csv"
)

// DefaultMaxBytes is the sample size used when Options.MaxBytes is zero.
const DefaultMaxBytes = 64 << 10

// Options control the sampling.
type Options struct {
	// Path of the local file. Compressed files are decoded first.
	Path string
	// MaxBytes to sample from the start of the (decoded) file.
	MaxBytes int
	// Dialect of the file; zero bytes select the defaults.
	Dialect csv.Dialect
}

// Column is one header field and what the sample suggests about it.
type Column struct {
	// Name is the normalized header name, as used for field lookup.
	Name string
	// Type is one of boolean, integer, real, date, timestamp, text.
	Type string
	// Example is the first non-empty sampled value.
	Example string
}

// Result is the outcome of a probe.
type Result struct {
	Columns []Column
	// Rows is the number of complete data records in the sample.
	Rows int
	// Ragged counts sampled records whose width differs from the header.
	Ragged int
}

// Probe reads up to opt.MaxBytes from opt.Path and infers column types.
func Probe(ctx context.Context, opt Options) (Result, error) {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = DefaultMaxBytes
	}
	data, err := peek(ctx, file.NewLocal(opt.Path), opt.MaxBytes)
	if err != nil {
		return Result{}, err
	}
	return Sample(data, opt.Dialect)
}

// peek returns the first n decoded bytes of src.
func peek(ctx context.Context, src datasource.Source, n int) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	lr := &io.LimitedReader{R: rc, N: int64(n)}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(lr); err != nil {
		return nil, fmt.Errorf("probe: read sample: %w", err)
	}
	return buf.Bytes(), nil
}

// Sample infers the header and column types from raw bytes. A trailing
// partial record is ignored unless it is all the sample holds.
func Sample(data []byte, d csv.Dialect) (Result, error) {
	full := data
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}

	asm := csv.NewAssembler(d)
	quote := asm.Dialect().Quote

	var (
		header *csv.Header
		cols   [][]string
		res    Result
		buf    []byte
	)
	take := func(rec csv.Record) error {
		if header == nil {
			h, err := csv.NewHeader(rec, quote)
			if err != nil {
				return err
			}
			header = h
			cols = make([][]string, h.Len())
			return nil
		}
		if rec.Len() != header.Len() {
			res.Ragged++
			return nil
		}
		res.Rows++
		for i := range cols {
			raw, _ := rec.Field(i)
			buf = csv.Unquote(buf[:0], raw, quote)
			cols[i] = append(cols[i], string(buf))
		}
		return nil
	}

	for rec := range asm.Records(data) {
		if err := take(rec); err != nil {
			return Result{}, err
		}
	}
	if header == nil {
		// The sample ended inside the first record; use what there is.
		asm.Reset(false)
		for range asm.Records(full) {
		}
		if rec, _, ok := asm.Flush(); ok {
			if err := take(rec); err != nil {
				return Result{}, err
			}
		}
	}
	if header == nil {
		return Result{}, csv.ErrNoHeader
	}

	names := header.Names()
	res.Columns = make([]Column, len(names))
	for i, name := range names {
		res.Columns[i] = Column{
			Name:    name,
			Type:    inferType(cols[i]),
			Example: firstNonEmpty(cols[i]),
		}
	}
	return res, nil
}

// Write renders r as "name,type,example" lines.
func (r Result) Write(w io.Writer) error {
	for _, c := range r.Columns {
		if _, err := fmt.Fprintf(w, "%s,%s,%q\n", c.Name, c.Type, c.Example); err != nil {
			return err
		}
	}
	return nil
}
