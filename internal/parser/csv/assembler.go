package csv

import "iter"

const (
	classPlain byte = iota
	classComma
	classQuote
	classNewline
)

// Assembler turns a stream of chunks into records. It carries the bytes of a
// record that straddles a chunk boundary, together with the in-quote bit, so
// chunks can be cut anywhere, including inside a quoted field.
//
// Records that lie entirely inside one chunk reference that chunk directly;
// only a straddling record is copied into the carry buffer. Either way a
// yielded Record is valid until the sequence advances.
//
// With a record limit set, a record longer than the limit is not carried. It
// is yielded without fields and reports Oversize. The quote state is tracked
// through it as usual.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	d     Dialect
	class [256]byte

	carry   []byte // bytes of the unfinished record
	spans   []Span // completed fields of the unfinished record
	field   int    // record-relative start of the current field
	inQuote bool

	max      int  // record byte limit; 0 means none
	oversize bool // the unfinished record passed max and is not carried

	fed int64 // bytes passed to Records before the current chunk
	off int64 // stream offset just past the last record terminator
}

// NewAssembler returns an Assembler for dialect d. Zero dialect bytes select
// the defaults.
func NewAssembler(d Dialect) *Assembler {
	d = d.withDefaults()
	a := &Assembler{d: d, spans: make([]Span, 0, 16)}
	a.class[d.Comma] = classComma
	a.class[d.Quote] = classQuote
	a.class['\n'] = classNewline
	return a
}

// SetMaxRecord limits the length of a record, excluding its '\n'. Zero or
// negative removes the limit.
func (a *Assembler) SetMaxRecord(n int) { a.max = max(n, 0) }

// Dialect returns the dialect in use.
func (a *Assembler) Dialect() Dialect { return a.d }

// InQuote reports whether the assembler is inside a quoted field.
func (a *Assembler) InQuote() bool { return a.inQuote }

// Pending returns the number of carried bytes of the unfinished record.
func (a *Assembler) Pending() int { return len(a.carry) }

// Offset returns the stream offset just past the most recent record
// terminator, counting from the last Reset. Skipped blank lines advance it.
func (a *Assembler) Offset() int64 { return a.off }

// Reset discards any unfinished record and sets the quote state. Starting
// with inQuote true resumes a scan at an offset known to be inside quotes.
func (a *Assembler) Reset(inQuote bool) {
	a.carry = a.carry[:0]
	a.spans = a.spans[:0]
	a.field = 0
	a.inQuote = inQuote
	a.oversize = false
	a.fed = 0
	a.off = 0
}

// Records returns the records completed by chunk, in order. Bytes after the
// last record terminator are kept for the next call. Blank lines are skipped.
//
// The sequence must be drained before the next call; stopping early drops the
// remainder of chunk.
func (a *Assembler) Records(chunk []byte) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		start := 0           // chunk index where the unfinished record begins
		base := len(a.carry) // record-relative offset of chunk[0]
		for i := 0; i < len(chunk); i++ {
			cl := a.class[chunk[i]]
			if cl == classPlain {
				continue
			}
			if cl == classQuote {
				a.inQuote = !a.inQuote
				continue
			}
			if a.inQuote {
				continue
			}
			if cl == classComma {
				if a.oversize {
					continue
				}
				off := base + i
				a.spans = append(a.spans, Span{Off: a.field, Len: off - a.field})
				a.field = off + 1
				continue
			}

			var rec Record
			ok := true
			if a.oversize || a.max > 0 && len(a.carry)+i-start > a.max {
				rec = a.dropOversize()
			} else {
				data := chunk[start:i]
				if len(a.carry) > 0 {
					a.carry = append(a.carry, data...)
					data = a.carry
				}
				rec, ok = a.complete(data)
			}
			start = i + 1
			base = -start
			a.off = a.fed + int64(start)
			if ok && !yield(rec) {
				return
			}
		}
		if start < len(chunk) && !a.oversize {
			if a.max > 0 && len(a.carry)+len(chunk)-start > a.max {
				a.oversize = true
				a.carry = a.carry[:0]
				a.spans = a.spans[:0]
			} else {
				a.carry = append(a.carry, chunk[start:]...)
			}
		}
		a.fed += int64(len(chunk))
	}
}

// Flush completes the unfinished record at end of input. ok is false when
// nothing but a blank line was pending. unterminated reports that the record
// ended inside an open quoted field.
func (a *Assembler) Flush() (rec Record, unterminated, ok bool) {
	unterminated = a.inQuote
	a.inQuote = false
	if a.oversize {
		return a.dropOversize(), unterminated, true
	}
	if len(a.carry) == 0 {
		a.spans = a.spans[:0]
		a.field = 0
		return Record{}, unterminated, false
	}
	rec, ok = a.complete(a.carry)
	return rec, unterminated, ok
}

// Single assembles data as exactly one record, as if it were followed by end
// of input. It is used to re-parse a record stitched from two shard edges.
func (a *Assembler) Single(data []byte) (rec Record, unterminated, ok bool) {
	a.Reset(false)
	// data holds no terminator outside quotes, so nothing is yielded here.
	for range a.Records(data) {
	}
	return a.Flush()
}

// dropOversize ends the unfinished record as an oversize one.
func (a *Assembler) dropOversize() Record {
	a.oversize = false
	a.carry = a.carry[:0]
	a.spans = a.spans[:0]
	a.field = 0
	return Record{oversize: true}
}

// complete closes the final field of data, strips an optional '\r', and
// resets per-record state. Blank records report ok=false.
func (a *Assembler) complete(data []byte) (Record, bool) {
	n := len(data)
	if n > 0 && data[n-1] == '\r' {
		n--
	}
	blank := n == 0 && len(a.spans) == 0
	spans := append(a.spans, Span{Off: a.field, Len: n - a.field})

	a.spans = spans[:0]
	a.field = 0
	a.carry = a.carry[:0]
	if blank {
		return Record{}, false
	}
	return Record{data: data[:n], spans: spans}, true
}
