package scan

import (
	"sort"

	"github.com/zeebo/xxh3"

	"logscan/internal/parser/csv"
)

// TallyEntry is one distinct target-field value and how often it occurred.
type TallyEntry struct {
	Value   string
	Count   int64
	Matched int64
}

// Tally is an Aggregator that counts well-formed records per decoded value of
// the target field. Values are keyed by xxh3 hash and confirmed by comparison.
// A Tally is not safe for concurrent use; parallel scans keep one per shard
// and Merge them.
type Tally struct {
	quote   byte
	buckets map[uint64][]int
	entries []TallyEntry
	scratch []byte
}

// NewTally returns an empty Tally decoding fields with quote.
func NewTally(quote byte) *Tally {
	if quote == 0 {
		quote = csv.DefaultQuote
	}
	return &Tally{quote: quote, buckets: make(map[uint64][]int)}
}

// Record implements Aggregator. Malformed records are not tallied.
func (t *Tally) Record(field []byte, matched, malformed bool) {
	if malformed {
		return
	}
	v := field
	if len(field) > 0 && field[0] == t.quote {
		t.scratch = csv.Unquote(t.scratch[:0], field, t.quote)
		v = t.scratch
	}
	e := t.find(xxh3.Hash(v), v)
	e.Count++
	if matched {
		e.Matched++
	}
}

func (t *Tally) find(h uint64, v []byte) *TallyEntry {
	for _, i := range t.buckets[h] {
		if t.entries[i].Value == string(v) {
			return &t.entries[i]
		}
	}
	t.entries = append(t.entries, TallyEntry{Value: string(v)})
	t.buckets[h] = append(t.buckets[h], len(t.entries)-1)
	return &t.entries[len(t.entries)-1]
}

// Merge adds every count of o into t.
func (t *Tally) Merge(o *Tally) {
	if o == nil {
		return
	}
	for _, oe := range o.entries {
		e := t.find(xxh3.HashString(oe.Value), []byte(oe.Value))
		e.Count += oe.Count
		e.Matched += oe.Matched
	}
}

// Len returns the number of distinct values.
func (t *Tally) Len() int { return len(t.entries) }

// Entries returns a copy of the tally ordered by descending count, ties broken
// by value.
func (t *Tally) Entries() []TallyEntry {
	out := append([]TallyEntry(nil), t.entries...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
