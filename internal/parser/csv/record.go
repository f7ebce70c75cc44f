// Package csv splits delimited text into records and fields without copying.
//
// It deliberately does not use encoding/csv: the scanner never needs decoded
// rows, only the raw bytes of one field per record, and encoding/csv allocates
// a string per field. Records and fields here are spans into the caller's
// buffers and are valid only until the producer advances.
//
// Quoting follows a parity rule: every quote byte toggles the in-quote state,
// and delimiters or newlines only count outside quotes. For well-formed input
// this matches RFC 4180, including doubled-quote escaping, and it lets a
// reader resume at any byte offset knowing only one bit of state.
package csv

import "bytes"

// Default dialect bytes.
const (
	DefaultComma = ','
	DefaultQuote = '"'
)

// Dialect selects the field delimiter and quote byte. Records are always
// terminated by '\n', with an optional preceding '\r'.
type Dialect struct {
	Comma byte
	Quote byte
}

// DefaultDialect is comma-separated with double quotes.
var DefaultDialect = Dialect{Comma: DefaultComma, Quote: DefaultQuote}

func (d Dialect) withDefaults() Dialect {
	if d.Comma == 0 {
		d.Comma = DefaultComma
	}
	if d.Quote == 0 {
		d.Quote = DefaultQuote
	}
	return d
}

// Span locates one field inside a record's bytes.
type Span struct {
	Off int
	Len int
}

// Record is one logical row: its raw bytes (terminator and trailing '\r'
// removed) and the spans of its fields in order. Field values are raw, so a
// quoted field still carries its quotes.
type Record struct {
	data     []byte
	spans    []Span
	oversize bool
}

// Bytes returns the raw record bytes.
func (r Record) Bytes() []byte { return r.data }

// Oversize reports that the record exceeded the assembler's limit. Such a
// record has no bytes and no fields.
func (r Record) Oversize() bool { return r.oversize }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.spans) }

// Field returns the raw bytes of field i. The boolean is false when the
// record has no field i (a ragged row).
func (r Record) Field(i int) ([]byte, bool) {
	if i < 0 || i >= len(r.spans) {
		return nil, false
	}
	s := r.spans[i]
	return r.data[s.Off : s.Off+s.Len], true
}

// Span returns the span of field i.
func (r Record) Span(i int) (Span, bool) {
	if i < 0 || i >= len(r.spans) {
		return Span{}, false
	}
	return r.spans[i], true
}

// Unquote appends the decoded value of a raw field to dst. A field that does
// not start with quote is appended unchanged. Otherwise the surrounding quotes
// are dropped and doubled quotes collapse to one.
func Unquote(dst, field []byte, quote byte) []byte {
	if len(field) == 0 || field[0] != quote {
		return append(dst, field...)
	}
	inner := field[1:]
	if n := len(inner); n > 0 && inner[n-1] == quote {
		inner = inner[:n-1]
	}
	for {
		i := bytes.IndexByte(inner, quote)
		if i < 0 {
			return append(dst, inner...)
		}
		dst = append(dst, inner[:i+1]...)
		inner = inner[i+1:]
		if len(inner) > 0 && inner[0] == quote {
			inner = inner[1:]
		}
	}
}

// EqualUnquoted reports whether the decoded value of field equals target,
// without allocating.
func EqualUnquoted(field, target []byte, quote byte) bool {
	return compareUnquoted(field, target, quote, false)
}

// HasPrefixUnquoted reports whether the decoded value of field starts with
// prefix, without allocating.
func HasPrefixUnquoted(field, prefix []byte, quote byte) bool {
	return compareUnquoted(field, prefix, quote, true)
}

// compareUnquoted walks the decoded bytes of field against target. With
// prefix set, decoded bytes beyond len(target) are allowed.
func compareUnquoted(field, target []byte, quote byte, prefix bool) bool {
	if len(field) == 0 || field[0] != quote {
		if prefix {
			return bytes.HasPrefix(field, target)
		}
		return bytes.Equal(field, target)
	}
	inner := field[1:]
	if n := len(inner); n > 0 && inner[n-1] == quote {
		inner = inner[:n-1]
	}
	j := 0
	for i := 0; i < len(inner); i++ {
		if j == len(target) {
			return prefix
		}
		c := inner[i]
		if c == quote && i+1 < len(inner) && inner[i+1] == quote {
			i++
		}
		if target[j] != c {
			return false
		}
		j++
	}
	return j == len(target)
}
