// Package config defines the JSON configuration of a scan run and helpers to
// turn it into scan queries and options.
//
// Example:
//
//	{
//	  "job":     "nightly-errors",
//	  "source":  { "kind": "file", "file": { "path": "logs/large_log.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ",", "quote": "\"", "strict_width": false } },
//	  "query":   { "field": "level", "op": "eq", "value": "ERROR", "tally": true },
//	  "runtime": { "chunk_size": "4MiB", "workers": 8, "mmap": true }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"logscan/internal/parser/csv"
	"logscan/internal/predicate"
	"logscan/internal/scan"
)

// Scan is the top-level object decoded from a scan config file.
type Scan struct {
	// Job labels metrics and log lines for this run.
	Job     string        `json:"job"`
	Source  Source        `json:"source"`
	Parser  Parser        `json:"parser"`
	Query   Query         `json:"query"`
	Runtime RuntimeConfig `json:"runtime"`
}

// Source identifies the input files.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is one input file. Extensions .gz, .zst and .lz4 are decompressed.
	Path string `json:"path"`
	// List names a file of input paths, one per line.
	List string `json:"list"`
}

// Parser selects how raw bytes are split into records.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`
	// Options for csv: comma (string), quote (string), strict_width (bool).
	Options Options `json:"options"`
}

// Dialect returns the csv dialect from the parser options.
func (p Parser) Dialect() csv.Dialect {
	return csv.Dialect{
		Comma: byte(p.Options.Rune("comma", csv.DefaultComma)),
		Quote: byte(p.Options.Rune("quote", csv.DefaultQuote)),
	}
}

// Query selects the target field and the predicate applied to it.
type Query struct {
	Field string `json:"field"`
	// Op is one of eq (default), ne, prefix, in, range. "==" and "!=" are
	// accepted for eq and ne.
	Op string `json:"op"`
	// Value is the operand of eq, ne and prefix.
	Value string `json:"value"`
	// Values is the set for in.
	Values []string `json:"values"`
	// Min and Max bound range; a missing bound is open.
	Min *int64 `json:"min"`
	Max *int64 `json:"max"`
	// Tally also reports the distribution of the field's values.
	Tally bool `json:"tally"`
}

// RuntimeConfig controls how the input is read.
type RuntimeConfig struct {
	// ChunkSize is a byte count or a humanized size such as "4MiB".
	ChunkSize ByteSize `json:"chunk_size"`
	// MaxRecord is the longest record buffered; longer ones count as
	// malformed. Zero selects 16 MiB and a negative value removes the limit.
	MaxRecord ByteSize `json:"max_record"`
	Workers   int      `json:"workers"`
	Shards    int      `json:"shards"`
	Mmap      bool     `json:"mmap"`
}

// Load reads and decodes a config file. Unknown keys are rejected so typos
// surface early.
func Load(path string) (Scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scan{}, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var s Scan
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Scan{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return s, nil
}

// ScanQuery builds the scan query described by the config.
func (s Scan) ScanQuery() (scan.Query, error) {
	q := s.Query
	var args []string
	switch predicate.CanonicalOp(q.Op) {
	case predicate.OpIn:
		args = q.Values
	case predicate.OpRange:
		args = []string{bound(q.Min), bound(q.Max)}
	default:
		args = []string{q.Value}
	}
	p, err := predicate.New(q.Op, s.Parser.Dialect().Quote, args...)
	if err != nil {
		return scan.Query{}, fmt.Errorf("query: %w", err)
	}
	return scan.Query{Field: q.Field, Predicate: p, Tally: q.Tally}, nil
}

// ScanOptions builds scan options from the parser and runtime sections.
func (s Scan) ScanOptions() scan.Options {
	return scan.Options{
		ChunkSize:   int(s.Runtime.ChunkSize),
		Workers:     s.Runtime.Workers,
		Shards:      s.Runtime.Shards,
		Mmap:        s.Runtime.Mmap,
		Dialect:     s.Parser.Dialect(),
		StrictWidth: s.Parser.Options.Bool("strict_width", false),
		MaxRecord:   int(s.Runtime.MaxRecord),
		Job:         s.Job,
	}
}

func bound(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// ByteSize is a size in bytes that decodes from a JSON number or a humanized
// string ("4MiB", "512 kB"). It also implements flag.Value.
type ByteSize int64

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("byte size must be a number or a string: %w", err)
	}
	return b.Set(s)
}

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("byte size %q: %w", s, err)
	}
	*b = ByteSize(v)
	return nil
}

// String implements flag.Value.
func (b ByteSize) String() string {
	if b <= 0 {
		return "0"
	}
	return humanize.IBytes(uint64(b))
}

// Options is a small helper to fetch typed values from a free-form JSON map.
// It performs minimal coercion and returns the provided default when a key is
// absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null options object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
