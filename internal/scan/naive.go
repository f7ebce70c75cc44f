package scan

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"

	"logscan/internal/parser/csv"
)

// Naive counts records the slow, obvious way: encoding/csv decodes every row
// into strings, each row becomes a map keyed by header name, and the field is
// looked up by name. It exists as a baseline for timing comparisons and as an
// independent check of Scan on well-formed input.
//
// Quotes are read leniently. Rows narrower than the header, and rows the
// decoder still rejects, count as malformed. Wider rows are accepted.
func Naive(ctx context.Context, r io.Reader, field, value string) (Result, error) {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	var perr *stdcsv.ParseError
	switch {
	case errors.Is(err, io.EOF):
		return Result{}, &SchemaError{Path: streamName, Err: csv.ErrNoHeader}
	case errors.As(err, &perr):
		return Result{}, &SchemaError{Path: streamName, Err: err}
	case err != nil:
		return Result{}, &IOError{Path: streamName, Err: err}
	}
	for i := range header {
		header[i] = csv.NormalizeName(header[i])
	}
	found := false
	for _, h := range header {
		if h == field {
			found = true
			break
		}
	}
	if !found {
		return Result{}, &SchemaError{Path: streamName, Err: fmt.Errorf("%w %q", csv.ErrUnknownField, field)}
	}

	var c Counter
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.As(err, &perr) {
			c.Record(nil, false, true)
			continue
		}
		if err != nil {
			return Result{}, &IOError{Path: streamName, Err: err}
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				if _, dup := row[h]; !dup {
					row[h] = rec[i]
				}
			}
		}
		malformed := len(rec) < len(header)
		c.Record(nil, !malformed && row[field] == value, malformed)
	}
	return Result{Matched: c.Matched, Total: c.Total, Malformed: c.Malformed}, nil
}
