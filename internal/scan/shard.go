package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"logscan/internal/parser/csv"
)

// shard is one contiguous byte range of the data section, scanned from its
// true entry quote state.
//
// The head fragment runs from start through the first record terminator and
// is left to the stitcher, as are the bytes after the last terminator. Only
// the complete records between them are counted here.
type shard struct {
	start, end int64

	entry bool // quote state at start
	odd   bool // the range holds an odd number of quote bytes

	headEnd   int64 // offset just past the first terminator; -1 if none
	tailStart int64 // offset just past the last terminator

	out sink
}

// countQuotes records the parity of the shard's quote bytes.
func (s *shard) countQuotes(ctx context.Context, in input, quote byte, opt Options) error {
	src := in.section(s.start, s.end-s.start, opt.ChunkSize)
	q := []byte{quote}
	s.odd = false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if bytes.Count(buf, q)%2 == 1 {
			s.odd = !s.odd
		}
	}
}

// scan counts the shard's complete records starting from s.entry.
func (s *shard) scan(ctx context.Context, in input, m matcher, q Query, opt Options) error {
	s.headEnd, s.tailStart = -1, -1
	s.out = newSink(q, opt)

	src := in.section(s.start, s.end-s.start, opt.ChunkSize)
	asm := csv.NewAssembler(opt.Dialect)
	asm.SetMaxRecord(opt.maxRecord())
	quote := asm.Dialect().Quote
	inQuote := s.entry
	pos := s.start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rest := buf
		if s.headEnd < 0 {
			i, after := firstTerminator(buf, inQuote, quote)
			inQuote = after
			if i < 0 {
				pos += int64(len(buf))
				continue
			}
			s.headEnd = pos + int64(i) + 1
			rest = buf[i+1:]
			asm.Reset(false)
		}
		pos += int64(len(buf))
		for rec := range asm.Records(rest) {
			m.apply(rec, false, &s.out)
		}
	}
	if s.headEnd >= 0 {
		s.tailStart = s.headEnd + asm.Offset()
	}
	return nil
}

// firstTerminator returns the index of the first '\n' outside quotes in buf,
// or -1, together with the quote state at that point (or at the end of buf).
func firstTerminator(buf []byte, inQuote bool, quote byte) (int, bool) {
	for i, c := range buf {
		switch {
		case c == quote:
			inQuote = !inQuote
		case c == '\n' && !inQuote:
			return i, inQuote
		}
	}
	return -1, inQuote
}

// scanShards runs the parallel plan over a plain file of the given size:
// sequential header, a quote-parity pass that fixes each shard's entry state,
// shard scans, then stitching of boundary records.
func scanShards(ctx context.Context, name string, in input, size int64, q Query, opt Options) (Result, error) {
	m, dataStart, err := readHeader(ctx, name, in, size, q, opt)
	if err != nil {
		return Result{}, err
	}
	out := newSink(q, opt)
	if dataStart >= size {
		return out.result(size), nil
	}

	shards := planShards(dataStart, size, opt.shards())
	if opt.Verbose {
		log.Printf("scan: %s split into %d shard(s) from offset %d, %d worker(s)", name, len(shards), dataStart, max(opt.Workers, 1))
	}

	if err := setEntries(ctx, name, in, shards, opt); err != nil {
		return Result{}, err
	}
	err = eachShard(ctx, name, shards, opt, func(ctx context.Context, s *shard) error {
		return s.scan(ctx, in, m, q, opt)
	})
	if err != nil {
		return Result{}, err
	}

	if err := stitch(name, in, size, dataStart, shards, m, opt, &out); err != nil {
		return Result{}, err
	}
	for i := range shards {
		out.merge(&shards[i].out)
	}
	return out.result(size), nil
}

// setEntries counts quote bytes per shard in parallel and derives each
// shard's entry state from the parity of everything before it. The first
// shard starts right after the header terminator, outside quotes.
func setEntries(ctx context.Context, name string, in input, shards []shard, opt Options) error {
	quote := csv.NewAssembler(opt.Dialect).Dialect().Quote
	err := eachShard(ctx, name, shards, opt, func(ctx context.Context, s *shard) error {
		return s.countQuotes(ctx, in, quote, opt)
	})
	if err != nil {
		return err
	}
	state := false
	for i := range shards {
		shards[i].entry = state
		state = state != shards[i].odd
	}
	return nil
}

// eachShard runs fn over every shard on a bounded errgroup.
func eachShard(ctx context.Context, name string, shards []shard, opt Options, fn func(context.Context, *shard) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opt.Workers, 1))
	for i := range shards {
		s := &shards[i]
		g.Go(func() error {
			if err := fn(gctx, s); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &IOError{Path: name, Err: fmt.Errorf("shard [%d,%d): %w", s.start, s.end, err)}
			}
			return nil
		})
	}
	return g.Wait()
}

// planShards splits [start, end) into at most n contiguous, non-empty ranges.
func planShards(start, end int64, n int) []shard {
	span := end - start
	if int64(n) > span {
		n = int(span)
	}
	n = max(n, 1)
	out := make([]shard, n)
	for i := range out {
		out[i].start = start + span*int64(i)/int64(n)
		out[i].end = start + span*int64(i+1)/int64(n)
	}
	return out
}

// readHeader resolves the header sequentially and returns the offset where
// data records begin.
func readHeader(ctx context.Context, name string, in input, size int64, q Query, opt Options) (matcher, int64, error) {
	src := in.section(0, size, opt.ChunkSize)
	asm := csv.NewAssembler(opt.Dialect)
	asm.SetMaxRecord(opt.maxRecord())
	for {
		if err := ctx.Err(); err != nil {
			return matcher{}, 0, err
		}
		buf, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return matcher{}, 0, &IOError{Path: name, Err: err}
		}
		for rec := range asm.Records(buf) {
			m, err := resolve(name, rec, q, opt)
			if err != nil {
				return matcher{}, 0, err
			}
			return m, asm.Offset(), nil
		}
	}
	rec, unterminated, ok := asm.Flush()
	switch {
	case !ok:
		return matcher{}, 0, &SchemaError{Path: name, Err: csv.ErrNoHeader}
	case unterminated:
		return matcher{}, 0, &SchemaError{Path: name, Err: ErrUnterminatedHeader}
	}
	m, err := resolve(name, rec, q, opt)
	return m, size, err
}

// stitch assembles the records that cross shard edges. Each one runs from the
// previous shard's tail through the next shard's head, possibly spanning whole
// shards that hold no terminator. The residual after the last terminator is
// flushed like a sequential end of input.
func stitch(name string, in input, size, dataStart int64, shards []shard, m matcher, opt Options, out *sink) error {
	asm := csv.NewAssembler(opt.Dialect)
	limit := int64(opt.maxRecord())
	asm.SetMaxRecord(int(limit))
	var buf []byte
	single := func(from, to int64) error {
		if limit > 0 && to-from > limit {
			// Oversize: counted malformed without reading it back.
			m.apply(csv.Record{}, true, out)
			return nil
		}
		n := int(to - from)
		if cap(buf) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err := in.ReadAt(buf, from); err != nil {
			return &IOError{Path: name, Err: fmt.Errorf("read boundary [%d,%d): %w", from, to, err)}
		}
		if rec, unterminated, ok := asm.Single(buf); ok {
			m.apply(rec, unterminated, out)
		}
		return nil
	}

	carry := dataStart
	for i := range shards {
		s := &shards[i]
		if s.headEnd < 0 {
			continue
		}
		// Drop the terminator so the record completes on Flush.
		if err := single(carry, s.headEnd-1); err != nil {
			return err
		}
		carry = s.tailStart
	}
	if carry < size {
		return single(carry, size)
	}
	return nil
}
