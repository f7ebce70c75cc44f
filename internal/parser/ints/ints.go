// Package ints parses decimal integers straight from field bytes.
// Log fields such as response times are compared numerically on every record,
// so the parser works on []byte and never allocates.
package ints

import "math"

// Parse decodes b as a base-10 int64 with an optional leading sign.
// Surrounding ASCII spaces and tabs are ignored. The boolean is false for
// empty input, any non-digit byte, or a value that overflows int64.
func Parse(b []byte) (int64, bool) {
	b = trimSpace(b)
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	switch b[0] {
	case '-':
		neg = true
		b = b[1:]
	case '+':
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, false
	}

	// Accumulate as a negative number so math.MinInt64 parses.
	var n int64
	for _, c := range b {
		d := int64(c) - '0'
		if d < 0 || d > 9 {
			return 0, false
		}
		if n < (math.MinInt64+d)/10 {
			return 0, false
		}
		n = n*10 - d
	}
	if neg {
		return n, true
	}
	if n == math.MinInt64 {
		return 0, false
	}
	return -n, true
}

// Digits reports whether b is non-empty and made only of ASCII digits.
func Digits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
