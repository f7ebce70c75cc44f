package ints

import (
	"math"
	"strconv"
	"testing"
)

// TestParse locks in the accepted forms: optional sign, surrounding blanks,
// and rejection of anything that is not a whole base-10 int64.
func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   int64
		wantOK bool
	}{
		{name: "zero", in: "0", want: 0, wantOK: true},
		{name: "plain", in: "245", want: 245, wantOK: true},
		{name: "plus sign", in: "+17", want: 17, wantOK: true},
		{name: "negative", in: "-42", want: -42, wantOK: true},
		{name: "padded", in: " \t1200 ", want: 1200, wantOK: true},
		{name: "leading zeros", in: "0007", want: 7, wantOK: true},
		{name: "max int64", in: "9223372036854775807", want: math.MaxInt64, wantOK: true},
		{name: "min int64", in: "-9223372036854775808", want: math.MinInt64, wantOK: true},
		{name: "overflow", in: "9223372036854775808"},
		{name: "negative overflow", in: "-9223372036854775809"},
		{name: "empty", in: ""},
		{name: "blank", in: "   "},
		{name: "sign only", in: "-"},
		{name: "decimal point", in: "12.5"},
		{name: "trailing letters", in: "12ms"},
		{name: "inner space", in: "1 2"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse([]byte(tt.in))
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Parse(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestParse_AgreesWithStrconv checks a spread of values against strconv.
func TestParse_AgreesWithStrconv(t *testing.T) {
	t.Parallel()

	for _, v := range []int64{1, -1, 9, 10, 99, 100, 65535, -65536, 1 << 40, -(1 << 53)} {
		s := strconv.FormatInt(v, 10)
		got, ok := Parse([]byte(s))
		if !ok || got != v {
			t.Fatalf("Parse(%q) = (%d, %v), want (%d, true)", s, got, ok, v)
		}
	}
}

func TestDigits(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{"": false, "0": true, "123": true, "-1": false, "1a": false} {
		if got := Digits([]byte(in)); got != want {
			t.Errorf("Digits(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParse_NoAlloc(t *testing.T) {
	in := []byte("  -123456789 ")
	allocs := testing.AllocsPerRun(1000, func() {
		_, _ = Parse(in)
	})
	if allocs != 0 {
		t.Fatalf("allocs = %g, want 0", allocs)
	}
}

// BenchmarkParse measures the per-field cost on a typical response time.
func BenchmarkParse(b *testing.B) {
	in := []byte("1873")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Parse(in)
	}
}
