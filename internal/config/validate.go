package config

import (
	"fmt"
	"strings"

	"logscan/internal/datasource/file"
	"logscan/internal/predicate"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// minChunkSize is the chunk size below which throughput drops sharply.
const minChunkSize = 4 << 10

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "query.op",
// "parser.options.quote"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateScan performs static validation of a decoded scan config. It does
// not touch the filesystem. Callers decide whether warnings are fatal.
//
// Example:
//
//	s, err := config.Load("scan.json")
//	if err != nil { ... }
//	for _, iss := range config.ValidateScan(s) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidateScan(s Scan) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will use the default job name",
		})
	}
	issues = append(issues, validateSource(s.Source)...)
	issues = append(issues, validateParser(s.Parser)...)
	issues = append(issues, validateQuery(s.Query)...)
	issues = append(issues, validateRuntime(s.Runtime, s.Source)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}
	if s.Kind != "file" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; only file is supported", s.Kind),
		})
		return issues
	}

	path := strings.TrimSpace(s.File.Path)
	list := strings.TrimSpace(s.File.List)
	switch {
	case path == "" && list == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file",
			Message:  "file source requires a path or a list",
		})
	case path != "" && list != "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.file.list",
			Message:  "both path and list are set; path is scanned first, then every listed file",
		})
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
		return issues
	}
	if p.Kind != "csv" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; only csv is supported", p.Kind),
		})
		return issues
	}

	comma, commaOK := dialectByte(p.Options, "comma")
	if !commaOK {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  "comma must be a single ASCII character other than newline",
		})
	}
	quote, quoteOK := dialectByte(p.Options, "quote")
	if !quoteOK {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.quote",
			Message:  "quote must be a single ASCII character other than newline",
		})
	}
	if commaOK && quoteOK && comma != 0 && comma == quote {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.quote",
			Message:  fmt.Sprintf("quote and comma are both %q", comma),
		})
	}

	return issues
}

// dialectByte returns the configured byte for key, or 0 when unset. ok is
// false when the value is not a usable delimiter.
func dialectByte(o Options, key string) (byte, bool) {
	v, present := o[key]
	if !present {
		return 0, true
	}
	s, isString := v.(string)
	if !isString || len(s) != 1 || s[0] >= 0x80 || s[0] == '\n' || s[0] == '\r' {
		return 0, false
	}
	return s[0], true
}

// validateQuery checks the field and that the operator has the operands it
// needs.
func validateQuery(q Query) []Issue {
	var issues []Issue

	if strings.TrimSpace(q.Field) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "query.field",
			Message:  "query.field must not be empty",
		})
	}

	switch predicate.CanonicalOp(q.Op) {
	case predicate.OpEqual, predicate.OpNotEqual:
		if len(q.Values) > 0 || q.Min != nil || q.Max != nil {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "query",
				Message:  "values, min and max are ignored unless op is in or range",
			})
		}
	case predicate.OpPrefix:
		if q.Value == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "query.value",
				Message:  "empty prefix matches every well-formed record",
			})
		}
	case predicate.OpIn:
		if len(q.Values) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "query.values",
				Message:  "op in requires at least one value",
			})
		}
	case predicate.OpRange:
		if q.Min == nil && q.Max == nil {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "query",
				Message:  "range has no bounds; it matches every integer value",
			})
		}
		if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "query.min",
				Message:  fmt.Sprintf("min %d is greater than max %d", *q.Min, *q.Max),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "query.op",
			Message:  fmt.Sprintf("unknown op %q; want eq, ne, prefix, in or range", q.Op),
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, tiny chunks, etc.).
func validateRuntime(r RuntimeConfig, s Source) []Issue {
	var issues []Issue

	if r.ChunkSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size",
			Message:  "chunk_size must not be negative",
		})
	} else if r.ChunkSize > 0 && r.ChunkSize < minChunkSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.chunk_size",
			Message:  fmt.Sprintf("chunk_size=%s; chunks under 4 KiB hurt throughput", r.ChunkSize),
		})
	}
	if r.MaxRecord < 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.max_record",
			Message:  "negative max_record removes the record size limit; memory grows with the longest record",
		})
	} else if r.MaxRecord > 0 && r.MaxRecord < minChunkSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.max_record",
			Message:  fmt.Sprintf("max_record=%s; ordinary records may be counted malformed", r.MaxRecord),
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.Shards < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.shards",
			Message:  "shards must not be negative",
		})
	}
	if r.Shards > 0 && r.Shards < r.Workers {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.shards",
			Message:  fmt.Sprintf("shards=%d is fewer than workers=%d; some workers will idle", r.Shards, r.Workers),
		})
	}
	if r.Mmap && s.File.Path != "" && file.CodecFor(s.File.Path) != file.None {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.mmap",
			Message:  "mmap is ignored for compressed input",
		})
	}

	return issues
}
