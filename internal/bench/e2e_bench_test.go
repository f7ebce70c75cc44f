package bench

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"logscan/internal/gen"
	"logscan/internal/scan"
)

// writeLogs generates rows of synthetic logs into a temp file.
func writeLogs(b *testing.B, rows int64) (string, gen.Counts) {
	b.Helper()
	path := filepath.Join(b.TempDir(), "logs.csv")
	w, err := gen.Create(path)
	if err != nil {
		b.Fatalf("create: %v", err)
	}
	counts, err := gen.Write(context.Background(), w, gen.Options{Rows: rows, Seed: 1, Awkward: true})
	if err != nil {
		b.Fatalf("generate: %v", err)
	}
	if err := w.Close(); err != nil {
		b.Fatalf("close: %v", err)
	}
	return path, counts
}

// BenchmarkEndToEnd scans the same generated file through every read path
// and the naive baseline. Throughput is reported per file byte.
// Run with:
//
//	go test -run=^$ -bench ^BenchmarkEndToEnd$ -cpuprofile cpu.out -memprofile mem.out -count=1
func BenchmarkEndToEnd(b *testing.B) {
	path, counts := writeLogs(b, 200_000)
	st, err := os.Stat(path)
	if err != nil {
		b.Fatalf("stat: %v", err)
	}
	want := counts.Levels["ERROR"]
	workers := runtime.GOMAXPROCS(0)

	cases := []struct {
		name string
		opt  scan.Options
	}{
		{name: "buffered", opt: scan.Options{}},
		{name: "mmap", opt: scan.Options{Mmap: true}},
		{name: "shards", opt: scan.Options{Workers: workers}},
		{name: "shards_mmap", opt: scan.Options{Workers: workers, Mmap: true}},
	}
	for _, tc := range cases {
		tc := tc
		tc.opt.ProgressEvery = -1
		b.Run(tc.name, func(b *testing.B) {
			b.SetBytes(st.Size())
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				res, err := scan.ScanFile(context.Background(), path, scan.Equal("level", "ERROR"), tc.opt)
				if err != nil {
					b.Fatal(err)
				}
				if res.Matched != want {
					b.Fatalf("matched = %d, want %d", res.Matched, want)
				}
			}
		})
	}

	b.Run("naive", func(b *testing.B) {
		b.SetBytes(st.Size())
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			f, err := os.Open(path)
			if err != nil {
				b.Fatal(err)
			}
			res, err := scan.Naive(context.Background(), f, "level", "ERROR")
			_ = f.Close()
			if err != nil {
				b.Fatal(err)
			}
			if res.Matched != want {
				b.Fatalf("matched = %d, want %d", res.Matched, want)
			}
		}
	})
}
