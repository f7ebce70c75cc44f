package scan

import (
	"context"
	"io"
	"log"

	"github.com/dustin/go-humanize"

	"logscan/internal/chunk"
	"logscan/internal/parser/csv"
	"logscan/internal/predicate"
)

type state uint8

const (
	stateInit state = iota
	stateReadingHeader
	stateScanning
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateReadingHeader:
		return "reading-header"
	case stateScanning:
		return "scanning"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// matcher applies the resolved query to one record.
type matcher struct {
	idx    int
	width  int
	strict bool
	pred   predicate.Predicate
}

// resolve builds the header from rec and locates the query field in it.
func resolve(name string, rec csv.Record, q Query, opt Options) (matcher, error) {
	h, err := csv.NewHeader(rec, opt.Dialect.Quote)
	if err != nil {
		return matcher{}, &SchemaError{Path: name, Err: err}
	}
	idx, err := h.Index(q.Field)
	if err != nil {
		return matcher{}, &SchemaError{Path: name, Err: err}
	}
	return matcher{idx: idx, width: h.Len(), strict: opt.StrictWidth, pred: q.Predicate}, nil
}

// apply classifies rec and hands it to the sink. A record is malformed when it
// ended inside an open quote, was too long to buffer, is narrower than the
// header, or (strict) wider.
func (m *matcher) apply(rec csv.Record, unterminated bool, s *sink) {
	n := rec.Len()
	malformed := unterminated || rec.Oversize() || n < m.width || (m.strict && n > m.width)
	field, _ := rec.Field(m.idx)
	matched := !malformed && m.pred.Match(field)
	s.counter.Record(field, matched, malformed)
	if s.tally != nil {
		s.tally.Record(field, matched, malformed)
	}
}

// sink holds the aggregators of one stream or shard.
type sink struct {
	counter Counter
	tally   *Tally
}

func newSink(q Query, opt Options) sink {
	var s sink
	if q.Tally {
		s.tally = NewTally(opt.Dialect.Quote)
	}
	return s
}

func (s *sink) merge(o *sink) {
	s.counter.Merge(o.counter)
	if s.tally != nil {
		s.tally.Merge(o.tally)
	}
}

func (s *sink) result(bytes int64) Result {
	return Result{
		Matched:   s.counter.Matched,
		Total:     s.counter.Total,
		Malformed: s.counter.Malformed,
		Bytes:     bytes,
		Tally:     s.tally,
	}
}

// driver runs one sequential scan over a chunk source.
type driver struct {
	name string
	q    Query
	opt  Options

	asm   *csv.Assembler
	state state
	m     matcher
	out   sink
	err   error

	bytes    int64
	chunks   int64
	nextBeat int64
}

func newDriver(name string, q Query, opt Options) *driver {
	asm := csv.NewAssembler(opt.Dialect)
	asm.SetMaxRecord(opt.maxRecord())
	return &driver{
		name:     name,
		q:        q,
		opt:      opt,
		asm:      asm,
		out:      newSink(q, opt),
		nextBeat: opt.progressEvery(),
	}
}

// run drives the state machine to Done or Failed. A failed scan returns a zero
// Result.
func (d *driver) run(ctx context.Context, src chunk.Source) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return d.fail(err)
		}
		buf, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return d.fail(&IOError{Path: d.name, Err: err})
		}
		if d.state == stateInit {
			d.state = stateReadingHeader
		}
		d.bytes += int64(len(buf))
		d.chunks++
		d.feed(buf)
		if d.err != nil {
			return d.fail(d.err)
		}
		d.heartbeat()
	}
	return d.finish()
}

func (d *driver) feed(buf []byte) {
	for rec := range d.asm.Records(buf) {
		if d.state == stateReadingHeader {
			if d.err = d.header(rec); d.err != nil {
				return
			}
			continue
		}
		d.m.apply(rec, false, &d.out)
	}
}

func (d *driver) header(rec csv.Record) error {
	m, err := resolve(d.name, rec, d.q, d.opt)
	if err != nil {
		return err
	}
	d.m = m
	d.state = stateScanning
	return nil
}

// finish handles end of input: the residual record is flushed, malformed if it
// is still inside quotes.
func (d *driver) finish() (Result, error) {
	rec, unterminated, ok := d.asm.Flush()
	if ok {
		switch {
		case d.state == stateScanning:
			d.m.apply(rec, unterminated, &d.out)
		case unterminated:
			return d.fail(&SchemaError{Path: d.name, Err: ErrUnterminatedHeader})
		default:
			if err := d.header(rec); err != nil {
				return d.fail(err)
			}
		}
	}
	if d.state != stateScanning {
		return d.fail(&SchemaError{Path: d.name, Err: csv.ErrNoHeader})
	}
	d.state = stateDone
	return d.out.result(d.bytes), nil
}

func (d *driver) fail(err error) (Result, error) {
	d.state = stateFailed
	d.err = err
	return Result{}, err
}

func (d *driver) heartbeat() {
	every := d.opt.progressEvery()
	if every < 0 || d.bytes < d.nextBeat {
		return
	}
	for d.nextBeat <= d.bytes {
		d.nextBeat += every
	}
	log.Printf("scan: %s read=%s records=%s matched=%s",
		d.name, humanize.IBytes(uint64(d.bytes)),
		humanize.Comma(d.out.counter.Total), humanize.Comma(d.out.counter.Matched))
}
