package scan

// Result is the outcome of one scan.
//
// Total counts every data record, Malformed those that were structurally
// broken, and Matched the well-formed records whose target field satisfied the
// predicate. Matched + NonMatched() + Malformed == Total always holds.
type Result struct {
	Matched   int64
	Total     int64
	Malformed int64
	// Bytes is the number of decoded input bytes consumed, header included.
	Bytes int64
	// Tally is the value distribution of the target field, when requested.
	Tally *Tally
}

// NonMatched returns the well-formed records that did not match.
func (r Result) NonMatched() int64 { return r.Total - r.Malformed - r.Matched }

// Aggregator receives one call per data record, in record order within a
// stream. field is the raw target field; it is nil for a record too short to
// hold it.
type Aggregator interface {
	Record(field []byte, matched, malformed bool)
}

// Counter is the reference Aggregator. Its counts only grow.
type Counter struct {
	Matched   int64
	Total     int64
	Malformed int64
}

// Record implements Aggregator.
func (c *Counter) Record(_ []byte, matched, malformed bool) {
	c.Total++
	if malformed {
		c.Malformed++
		return
	}
	if matched {
		c.Matched++
	}
}

// Merge adds o into c. Merging is commutative and associative, so per-shard
// counters can be combined in any order.
func (c *Counter) Merge(o Counter) {
	c.Matched += o.Matched
	c.Total += o.Total
	c.Malformed += o.Malformed
}
