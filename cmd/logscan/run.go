package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"logscan/internal/config"
	"logscan/internal/datasource/file"
	"logscan/internal/parser/csv"
	"logscan/internal/predicate"
	"logscan/internal/probe"
	"logscan/internal/report"
	"logscan/internal/scan"
)

// runner scans a list of files with one query and prints a report per file.
type runner struct {
	query   scan.Query
	opt     scan.Options
	compare bool
	// naive is the field and value for the baseline scan; ok is false when
	// the query is not a plain equality and cannot be compared.
	naive naiveArgs
	tally bool
	out   io.Writer
}

type naiveArgs struct {
	field, value string
	ok           bool
}

// naiveQuery reports whether the scan can be reproduced by the naive
// scanner, which knows only equality over the default dialect.
func naiveQuery(s config.Scan) naiveArgs {
	q := s.Query
	if predicate.CanonicalOp(q.Op) != predicate.OpEqual {
		return naiveArgs{}
	}
	if s.Parser.Dialect() != csv.DefaultDialect {
		return naiveArgs{}
	}
	return naiveArgs{field: q.Field, value: q.Value, ok: true}
}

// run scans every path. A failing file is reported and skipped; the number
// of failures is returned.
func (r runner) run(ctx context.Context, paths []string) int {
	if r.compare && !r.naive.ok {
		log.Printf("compare: the naive scan only supports eq with the default dialect; skipping comparison")
	}
	failed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			log.Printf("scan: interrupted before %s", path)
			return failed + 1
		}
		entries, res, err := r.scanOne(ctx, path)
		if err != nil {
			fmt.Fprintf(r.out, "   [FAILED] %s: %v\n", path, err)
			failed++
			continue
		}
		if err := report.Write(r.out, entries); err != nil {
			log.Printf("report: %v", err)
		}
		if r.tally {
			if err := report.WriteTally(r.out, res.Tally, tallyLimit); err != nil {
				log.Printf("report: %v", err)
			}
		}
	}
	return failed
}

func (r runner) scanOne(ctx context.Context, path string) ([]report.Entry, scan.Result, error) {
	start := time.Now()
	res, err := scan.ScanFile(ctx, path, r.query, r.opt)
	if err != nil {
		return nil, scan.Result{}, err
	}
	entries := []report.Entry{{Path: path, Method: report.MethodFast, Result: res, Elapsed: time.Since(start)}}

	if r.compare && r.naive.ok {
		start = time.Now()
		nres, err := naiveScan(ctx, path, r.naive)
		if err != nil {
			log.Printf("compare: naive scan of %s failed: %v", path, err)
			return entries, res, nil
		}
		// Naive does not count bytes; both read the same input.
		nres.Bytes = res.Bytes
		entries = append(entries, report.Entry{Path: path, Method: report.MethodNaive, Result: nres, Elapsed: time.Since(start)})
	}
	return entries, res, nil
}

func naiveScan(ctx context.Context, path string, n naiveArgs) (scan.Result, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return scan.Result{}, &scan.IOError{Path: path, Err: err}
	}
	defer rc.Close()
	return scan.Naive(ctx, rc, n.field, n.value)
}

// probeFiles prints the probed header of each path.
func probeFiles(ctx context.Context, w io.Writer, paths []string, d csv.Dialect) error {
	for _, path := range paths {
		res, err := probe.Probe(ctx, probe.Options{Path: path, Dialect: d})
		if err != nil {
			return fmt.Errorf("probe %s: %w", path, err)
		}
		fmt.Fprintf(w, "-> %s (%d sampled rows, %d ragged)\n", path, res.Rows, res.Ragged)
		if err := res.Write(w); err != nil {
			return err
		}
	}
	return nil
}
