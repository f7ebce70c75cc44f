// Package report renders scan results for the command line.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"logscan/internal/scan"
)

// Method names used in entries.
const (
	MethodFast  = "fast"
	MethodNaive = "naive"
)

// Entry is one timed scan of one file.
type Entry struct {
	Path    string
	Method  string
	Result  scan.Result
	Elapsed time.Duration
}

// Throughput returns bytes per second, or 0 when nothing was timed.
func (e Entry) Throughput() float64 {
	if e.Elapsed <= 0 {
		return 0
	}
	return float64(e.Result.Bytes) / e.Elapsed.Seconds()
}

// Write prints one block per entry. When a file was scanned by both methods,
// a comparison line with the speedup and whether the counts agree follows
// the second of the pair.
func Write(w io.Writer, entries []Entry) error {
	seen := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
		prev, ok := seen[e.Path]
		if ok && prev.Method != e.Method {
			if err := writeComparison(w, prev, e); err != nil {
				return err
			}
		}
		seen[e.Path] = e
	}
	return nil
}

func writeEntry(w io.Writer, e Entry) error {
	r := e.Result
	_, err := fmt.Fprintf(w, "-> %s [%s]\n   matched=%s non_matched=%s malformed=%s total=%s\n   %s in %s (%s/s)\n",
		e.Path, e.Method,
		humanize.Comma(r.Matched), humanize.Comma(r.NonMatched()),
		humanize.Comma(r.Malformed), humanize.Comma(r.Total),
		humanize.Bytes(uint64(r.Bytes)), e.Elapsed.Round(time.Millisecond),
		humanize.Bytes(uint64(e.Throughput())))
	return err
}

func writeComparison(w io.Writer, a, b Entry) error {
	fast, naive := a, b
	if a.Method == MethodNaive {
		fast, naive = b, a
	}
	speedup := "n/a"
	if fast.Elapsed > 0 {
		speedup = fmt.Sprintf("%.1fx", naive.Elapsed.Seconds()/fast.Elapsed.Seconds())
	}
	_, err := fmt.Fprintf(w, "   speedup: %s  counts match: %t\n", speedup, Agree(fast.Result, naive.Result))
	return err
}

// Agree reports whether two results counted the same records. Bytes and
// tallies are not compared.
func Agree(a, b scan.Result) bool {
	return a.Matched == b.Matched && a.Total == b.Total && a.Malformed == b.Malformed
}

// WriteTotal prints the wall time for the whole run.
func WriteTotal(w io.Writer, files int, elapsed time.Duration) error {
	_, err := fmt.Fprintf(w, "Total time: %s for %d file(s)\n", elapsed.Round(time.Millisecond), files)
	return err
}

// WriteTally prints up to limit entries of a value distribution as
// "count matched value" lines; limit <= 0 prints all of them.
func WriteTally(w io.Writer, t *scan.Tally, limit int) error {
	if t == nil {
		return nil
	}
	entries := t.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "   %12s %12s  %s\n", humanize.Comma(e.Count), humanize.Comma(e.Matched), e.Value); err != nil {
			return err
		}
	}
	if rest := t.Len() - len(entries); rest > 0 {
		if _, err := fmt.Fprintf(w, "   ... %d more\n", rest); err != nil {
			return err
		}
	}
	return nil
}
