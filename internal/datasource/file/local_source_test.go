package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const sampleCSV = "timestamp,level,message,response_time_ms\n" +
	"2025-12-13 10:00:00,ERROR,\"Database timeout, retrying\",1200\n" +
	"2025-12-13 10:00:01,INFO,User logged in,35\n"

// compress encodes payload with codec.
func compress(t testing.TB, codec Codec, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch codec {
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Zstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w = zw
	case LZ4:
		w = lz4.NewWriter(&buf)
	default:
		return payload
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("%s write: %v", codec, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("%s close: %v", codec, err)
	}
	return buf.Bytes()
}

// TestLocalOpen covers plain and compressed success, missing files, corrupt
// headers, and a pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string // returns path to open
		makeCtx         func(t *testing.T) context.Context
		wantErrIs       error  // checked via errors.Is
		wantErrContains string // substring expected in error message
		wantContent     string // verified on success
	}

	write := func(name string, codec Codec) func(t *testing.T) string {
		return func(t *testing.T) string {
			t.Helper()
			p := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(p, compress(t, codec, []byte(sampleCSV)), 0o644); err != nil {
				t.Fatalf("write test file: %v", err)
			}
			return p
		}
	}
	bg := func(t *testing.T) context.Context { return context.Background() }

	cases := []tc{
		{name: "plain", prepare: write("logs.csv", None), makeCtx: bg, wantContent: sampleCSV},
		{name: "gzip", prepare: write("logs.csv.gz", Gzip), makeCtx: bg, wantContent: sampleCSV},
		{name: "zstd", prepare: write("logs.csv.zst", Zstd), makeCtx: bg, wantContent: sampleCSV},
		{name: "lz4", prepare: write("logs.csv.lz4", LZ4), makeCtx: bg, wantContent: sampleCSV},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			makeCtx:         bg,
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name: "corrupt_gzip_header",
			prepare: func(t *testing.T) string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "bad.csv.gz")
				if err := os.WriteFile(p, []byte("not gzip at all"), 0o644); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				return p
			},
			makeCtx:         bg,
			wantErrIs:       gzip.ErrHeader,
			wantErrContains: "gzip header",
		},
		{
			name:    "pre_canceled_context_short_circuits",
			prepare: write("logs.csv", None),
			makeCtx: func(t *testing.T) context.Context {
				t.Helper()
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := c.prepare(t)
			rc, err := NewLocal(path).Open(c.makeCtx(t))

			if c.wantErrIs != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", c.wantErrIs)
				}
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain substring %q", err, c.wantErrContains)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}

			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			got, rerr := io.ReadAll(rc)
			if rerr != nil {
				t.Fatalf("reading: %v", rerr)
			}
			if err := rc.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content mismatch: got %q, want %q", got, c.wantContent)
			}
		})
	}
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	cases := map[string]Codec{
		"logs.csv":        None,
		"logs":            None,
		"logs.csv.gz":     Gzip,
		"LOGS.CSV.GZ":     Gzip,
		"logs.csv.zst":    Zstd,
		"logs.csv.lz4":    LZ4,
		"dir.gz/logs.csv": None,
	}
	for path, want := range cases {
		if got := CodecFor(path); got != want {
			t.Errorf("CodecFor(%q) = %q, want %q", path, got, want)
		}
		l := NewLocal(path)
		if l.Compressed() != (want != None) {
			t.Errorf("NewLocal(%q).Compressed() = %v", path, l.Compressed())
		}
	}
}

// TestLocalOpenFile checks that OpenFile returns the stored bytes even for a
// compressed file.
func TestLocalOpenFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "logs.csv.gz")
	stored := compress(t, Gzip, []byte(sampleCSV))
	if err := os.WriteFile(p, stored, 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	f, err := NewLocal(p).OpenFile(context.Background())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, stored) {
		t.Fatalf("OpenFile returned decoded bytes")
	}
}

// BenchmarkLocalOpen_Plain measures the steady-state cost of opening a small
// plain file. We open and immediately close to isolate descriptor work.
func BenchmarkLocalOpen_Plain(b *testing.B) {
	p := filepath.Join(b.TempDir(), "logs.csv")
	if err := os.WriteFile(p, []byte(sampleCSV), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLocalOpen_Gzip includes decoder setup and a full read.
func BenchmarkLocalOpen_Gzip(b *testing.B) {
	p := filepath.Join(b.TempDir(), "logs.csv.gz")
	if err := os.WriteFile(p, compress(b, Gzip, []byte(sampleCSV)), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := io.Copy(io.Discard, rc); err != nil {
			b.Fatal(err)
		}
		_ = rc.Close()
	}
}
