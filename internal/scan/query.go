package scan

import (
	"errors"

	"logscan/internal/parser/csv"
	"logscan/internal/predicate"
)

// DefaultProgressEvery is the number of bytes between progress log lines.
const DefaultProgressEvery = 1 << 30

// DefaultMaxRecord is the record length past which a record is counted
// malformed without being buffered.
const DefaultMaxRecord = 16 << 20

var (
	// ErrNoPredicate is returned for a Query without a predicate.
	ErrNoPredicate = errors.New("scan: query has no predicate")
	// ErrNoField is returned for a Query without a target field.
	ErrNoField = errors.New("scan: query has no field")
	// ErrUnterminatedHeader means the input ended inside a quoted header field.
	ErrUnterminatedHeader = errors.New("header ends inside a quoted field")
)

// Query names the target field and the predicate applied to it.
type Query struct {
	Field     string
	Predicate predicate.Predicate
	// Tally also collects the distribution of the field's values.
	Tally bool
}

// Equal is the reference query: field equals value, byte for byte.
func Equal(field, value string) Query {
	return Query{Field: field, Predicate: predicate.NewEqual(value, 0)}
}

func (q Query) validate() error {
	if q.Field == "" {
		return ErrNoField
	}
	if q.Predicate == nil {
		return ErrNoPredicate
	}
	return nil
}

// Options tune how a scan reads its input. The zero value scans sequentially
// with 4 MiB buffered reads and the default dialect.
type Options struct {
	// ChunkSize is the read block size in bytes; below 1 selects the default.
	ChunkSize int
	// Workers > 1 scans a plain file as parallel shards.
	Workers int
	// Shards is the number of byte ranges in parallel mode; 0 means Workers.
	Shards int
	// Mmap reads plain files through a memory mapping when the platform
	// allows it, and falls back to buffered reads otherwise.
	Mmap bool
	// Dialect selects the delimiter and quote bytes.
	Dialect csv.Dialect
	// StrictWidth also counts records wider than the header as malformed.
	StrictWidth bool
	// MaxRecord bounds the bytes buffered for one record. Longer records are
	// counted malformed. 0 means DefaultMaxRecord and a negative value
	// removes the limit.
	MaxRecord int
	// ProgressEvery is the byte interval between progress log lines; 0 means
	// DefaultProgressEvery and a negative value disables them.
	ProgressEvery int64
	// Verbose logs shard plans and fallbacks.
	Verbose bool
	// Job labels emitted metrics.
	Job string
}

func (o Options) shards() int {
	if o.Shards > 0 {
		return o.Shards
	}
	return max(o.Workers, 1)
}

func (o Options) maxRecord() int {
	switch {
	case o.MaxRecord == 0:
		return DefaultMaxRecord
	case o.MaxRecord < 0:
		return 0
	}
	return o.MaxRecord
}

func (o Options) progressEvery() int64 {
	if o.ProgressEvery == 0 {
		return DefaultProgressEvery
	}
	return o.ProgressEvery
}

func (o Options) job() string {
	if o.Job == "" {
		return "logscan"
	}
	return o.Job
}
