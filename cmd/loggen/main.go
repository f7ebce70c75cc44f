// Command loggen writes a synthetic application log for benchmarking
// logscan. The extension of -out selects compression (.gz, .zst, .lz4).
//
// Example:
//
//	loggen -out=large_log.csv -rows=10000000
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"logscan/internal/gen"
)

func main() {
	var (
		out     string
		rows    int64
		seed    int64
		awkward bool
	)
	flag.StringVar(&out, "out", "large_log.csv", "output path; .gz, .zst and .lz4 are compressed")
	flag.Int64Var(&rows, "rows", 10_000_000, "number of data rows")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	flag.BoolVar(&awkward, "awkward", false, "mix in messages with commas, quotes and newlines")
	flag.Parse()

	if rows < 0 {
		fatalf("-rows must not be negative")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := gen.Create(out)
	if err != nil {
		fatalf("%v", err)
	}

	log.Printf("gen: writing %s rows to %s", humanize.Comma(rows), out)
	start := time.Now()
	bw := bufio.NewWriterSize(w, 1<<20)
	counts, err := gen.Write(ctx, bw, gen.Options{
		Rows:     rows,
		Seed:     seed,
		Awkward:  awkward,
		LogEvery: 1_000_000,
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatalf("write %s: %v", out, err)
	}

	levels := make([]string, 0, len(counts.Levels))
	for l := range counts.Levels {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	for _, l := range levels {
		fmt.Printf("%-6s %s\n", l, humanize.Comma(counts.Levels[l]))
	}
	fmt.Printf("Done! %s rows generated in %s.\n", humanize.Comma(counts.Rows), time.Since(start).Round(time.Millisecond))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
