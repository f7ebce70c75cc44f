// Package predicate holds the comparisons applied to one raw field per record.
//
// Predicates receive field bytes exactly as they appear in the record, quotes
// included, and compare against the decoded value. They hold no mutable state,
// so one Predicate may be shared by every scan worker.
package predicate

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zeebo/xxh3"

	"logscan/internal/parser/csv"
	"logscan/internal/parser/ints"
)

// Predicate decides whether a raw field value matches.
type Predicate interface {
	Match(field []byte) bool
}

// Func adapts a plain function to Predicate.
type Func func(field []byte) bool

// Match calls f.
func (f Func) Match(field []byte) bool { return f(field) }

// scratchSize bounds the stack buffer used to decode quoted fields.
const scratchSize = 128

// Equal matches fields whose decoded value is byte-for-byte equal to the
// target. Matching is case-sensitive.
type Equal struct {
	target []byte
	quote  byte
}

// NewEqual returns an Equal predicate. A zero quote selects '"'.
func NewEqual(target string, quote byte) *Equal {
	return &Equal{target: []byte(target), quote: orDefault(quote)}
}

// Match implements Predicate.
func (p *Equal) Match(field []byte) bool {
	return csv.EqualUnquoted(field, p.target, p.quote)
}

// Prefix matches fields whose decoded value starts with a prefix.
type Prefix struct {
	prefix []byte
	quote  byte
}

// NewPrefix returns a Prefix predicate. A zero quote selects '"'.
func NewPrefix(prefix string, quote byte) *Prefix {
	return &Prefix{prefix: []byte(prefix), quote: orDefault(quote)}
}

// Match implements Predicate.
func (p *Prefix) Match(field []byte) bool {
	return csv.HasPrefixUnquoted(field, p.prefix, p.quote)
}

// OneOf matches fields whose decoded value is in a fixed set. Values are
// bucketed by their xxh3 hash and confirmed with a byte comparison.
type OneOf struct {
	set   map[uint64][][]byte
	quote byte
}

// NewOneOf returns a OneOf predicate over values. A zero quote selects '"'.
func NewOneOf(values []string, quote byte) *OneOf {
	p := &OneOf{set: make(map[uint64][][]byte, len(values)), quote: orDefault(quote)}
	for _, v := range values {
		h := xxh3.HashString(v)
		if !containsBytes(p.set[h], []byte(v)) {
			p.set[h] = append(p.set[h], []byte(v))
		}
	}
	return p
}

// Len returns the number of distinct values in the set.
func (p *OneOf) Len() int {
	n := 0
	for _, b := range p.set {
		n += len(b)
	}
	return n
}

// Match implements Predicate.
func (p *OneOf) Match(field []byte) bool {
	var scratch [scratchSize]byte
	v := decode(scratch[:0], field, p.quote)
	return containsBytes(p.set[xxh3.Hash(v)], v)
}

// IntRange matches fields holding a base-10 integer within [Min, Max].
// Fields that do not parse as an integer never match.
type IntRange struct {
	Min, Max int64
	quote    byte
}

// NewIntRange returns an IntRange predicate. A zero quote selects '"'.
func NewIntRange(lo, hi int64, quote byte) *IntRange {
	return &IntRange{Min: lo, Max: hi, quote: orDefault(quote)}
}

// Match implements Predicate.
func (p *IntRange) Match(field []byte) bool {
	var scratch [scratchSize]byte
	n, ok := ints.Parse(decode(scratch[:0], field, p.quote))
	return ok && n >= p.Min && n <= p.Max
}

// Not inverts a predicate.
type Not struct {
	P Predicate
}

// Match implements Predicate.
func (p Not) Match(field []byte) bool { return !p.P.Match(field) }

func decode(dst, field []byte, quote byte) []byte {
	if len(field) == 0 || field[0] != quote {
		return field
	}
	return csv.Unquote(dst, field, quote)
}

func containsBytes(list [][]byte, v []byte) bool {
	for _, b := range list {
		if bytes.Equal(b, v) {
			return true
		}
	}
	return false
}

func orDefault(quote byte) byte {
	if quote == 0 {
		return csv.DefaultQuote
	}
	return quote
}

// Supported operator names for New.
const (
	OpEqual    = "eq"
	OpNotEqual = "ne"
	OpPrefix   = "prefix"
	OpIn       = "in"
	OpRange    = "range"
)

// ErrBadOp is returned by New for an unknown operator or wrong argument count.
var ErrBadOp = errors.New("predicate: invalid operator")

// CanonicalOp maps an operator name to its canonical form. Case and
// surrounding space are ignored, "" and "==" mean eq, and "!=" means ne.
// Unknown names are returned lowercased and trimmed.
func CanonicalOp(op string) string {
	switch op = strings.ToLower(strings.TrimSpace(op)); op {
	case "", "==":
		return OpEqual
	case "!=":
		return OpNotEqual
	}
	return op
}

// New builds a predicate from an operator name and its arguments:
//
//	eq, ne, prefix   exactly one value
//	in               one or more values
//	range            min and max; an empty bound is open
//
// An empty op means eq.
func New(op string, quote byte, args ...string) (Predicate, error) {
	switch CanonicalOp(op) {
	case OpEqual:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 value, got %d", ErrBadOp, OpEqual, len(args))
		}
		return NewEqual(args[0], quote), nil
	case OpNotEqual:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 value, got %d", ErrBadOp, OpNotEqual, len(args))
		}
		return Not{P: NewEqual(args[0], quote)}, nil
	case OpPrefix:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 value, got %d", ErrBadOp, OpPrefix, len(args))
		}
		return NewPrefix(args[0], quote), nil
	case OpIn:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s wants at least 1 value", ErrBadOp, OpIn)
		}
		return NewOneOf(args, quote), nil
	case OpRange:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: %s wants min and max, got %d values", ErrBadOp, OpRange, len(args))
		}
		lo, hi, err := parseBounds(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return NewIntRange(lo, hi, quote), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrBadOp, op)
	}
}

func parseBounds(minS, maxS string) (int64, int64, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if s := strings.TrimSpace(minS); s != "" {
		v, ok := ints.Parse([]byte(s))
		if !ok {
			return 0, 0, fmt.Errorf("%w: range min %q is not an integer", ErrBadOp, minS)
		}
		lo = v
	}
	if s := strings.TrimSpace(maxS); s != "" {
		v, ok := ints.Parse([]byte(s))
		if !ok {
			return 0, 0, fmt.Errorf("%w: range max %q is not an integer", ErrBadOp, maxS)
		}
		hi = v
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: range min %d > max %d", ErrBadOp, lo, hi)
	}
	return lo, hi, nil
}
