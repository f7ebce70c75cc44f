package csv

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoHeader means the input held no record to use as a header.
	ErrNoHeader = errors.New("no header record")
	// ErrUnknownField means a requested field name is not in the header.
	ErrUnknownField = errors.New("unknown field")
	// ErrRecordTooLong means the header record passed the assembler's limit.
	ErrRecordTooLong = errors.New("header record exceeds the record size limit")
)

// utf8BOM is stripped from header names.
const utf8BOM = '\uFEFF'

// Header is the ordered list of field names taken from the first record. It
// is immutable once built.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader decodes the fields of rec as header names. Each name is unquoted,
// stripped of a byte order mark, trimmed, and NFC-normalized. When a name
// repeats, lookups resolve to its first position.
func NewHeader(rec Record, quote byte) (*Header, error) {
	if rec.Oversize() {
		return nil, ErrRecordTooLong
	}
	if rec.Len() == 0 {
		return nil, ErrNoHeader
	}
	if quote == 0 {
		quote = DefaultQuote
	}
	h := &Header{
		names: make([]string, rec.Len()),
		index: make(map[string]int, rec.Len()),
	}
	var buf []byte
	for i := 0; i < rec.Len(); i++ {
		raw, _ := rec.Field(i)
		buf = Unquote(buf[:0], raw, quote)
		name := NormalizeName(string(buf))
		h.names[i] = name
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}
	return h, nil
}

// Len returns the number of header fields.
func (h *Header) Len() int { return len(h.names) }

// Names returns a copy of the header names in order.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Index returns the zero-based position of name. The name is normalized the
// same way header names are. An unknown name yields an error wrapping
// ErrUnknownField.
func (h *Header) Index(name string) (int, error) {
	if i, ok := h.index[NormalizeName(name)]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w %q (header: %s)", ErrUnknownField, name, strings.Join(h.names, ","))
}

// NormalizeName prepares a header or lookup name for comparison: byte order
// marks are removed, the text is NFC-normalized and surrounding space is
// trimmed. Case is preserved.
func NormalizeName(s string) string {
	t := transform.Chain(
		runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8BOM })),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}
