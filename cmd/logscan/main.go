// Command logscan counts the records of large CSV log files whose field
// matches a predicate.
//
// Example:
//
//	logscan -field=level -value=ERROR large_log.csv other.csv.gz
//	logscan -config=configs/scan.json -compare -v
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"logscan/internal/config"
	"logscan/internal/datasource/file"
	"logscan/internal/metrics"
	"logscan/internal/metrics/datadog"
	"logscan/internal/metrics/prompush"
	"logscan/internal/predicate"
	"logscan/internal/report"
)

const (
	defaultJob         = "logscan"
	defaultPushGateway = "http://localhost:9091"
	defaultDDAddr      = "127.0.0.1:8125"
	tallyLimit         = 20
)

// main is the entry point for the logscan binary. It resolves the scan from
// flags, env and an optional config file, sets up metrics, and scans each
// input file in turn.
func main() {
	var (
		cfgPath           string
		listPath          string
		metricsBackendFlg string
		pushGatewayURLFlg string
		ddAddrFlg         string
		validate          bool
		compare           bool
		probeOnly         bool
	)
	var (
		field, value, op, values, minS, maxS, job string
		chunkSize, maxRecord                      config.ByteSize
		workers, shards                           int
		mmap, strict, tally                       bool
	)

	flag.StringVar(&cfgPath, "config", "", "scan config JSON path (flags override its values)")
	flag.StringVar(&listPath, "list", "", "file listing input paths, one per line")
	flag.StringVar(&field, "field", "level", "header name of the field to test")
	flag.StringVar(&value, "value", "ERROR", "value for eq, ne and prefix")
	flag.StringVar(&op, "op", "eq", "predicate: eq, ne, prefix, in, range")
	flag.StringVar(&values, "values", "", "comma-separated values for -op=in")
	flag.StringVar(&minS, "min", "", "lower bound for -op=range (empty is open)")
	flag.StringVar(&maxS, "max", "", "upper bound for -op=range (empty is open)")
	flag.Var(&chunkSize, "chunk-size", "read block size, e.g. 4MiB (default 4MiB)")
	flag.Var(&maxRecord, "max-record", "longest record buffered before it is counted malformed (default 16MiB)")
	flag.IntVar(&workers, "workers", 0, "parallel shard workers; 1 scans sequentially (overrides env LOGSCAN_WORKERS; default NumCPU)")
	flag.IntVar(&shards, "shards", 0, "number of byte ranges in parallel mode (default workers)")
	flag.BoolVar(&mmap, "mmap", false, "read plain files through a memory mapping")
	flag.BoolVar(&strict, "strict", false, "count records wider than the header as malformed")
	flag.BoolVar(&tally, "tally", false, "print the distribution of the field's values")
	flag.StringVar(&job, "job", "", "job name for metrics and logs")
	flag.BoolVar(&compare, "compare", false, "also run the naive row-by-row scan and compare")
	flag.BoolVar(&probeOnly, "probe", false, "print each file's header with inferred types and exit")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&ddAddrFlg, "dd-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// Start from the config file, or from the reference query.
	s := config.Scan{
		Job:    defaultJob,
		Source: config.Source{Kind: "file"},
		Parser: config.Parser{Kind: "csv", Options: config.Options{}},
		Query:  config.Query{Field: field, Op: op, Value: value},
	}
	if cfgPath != "" {
		var err error
		if s, err = config.Load(cfgPath); err != nil {
			fatalf("%v", err)
		}
		if s.Parser.Options == nil {
			s.Parser.Options = config.Options{}
		}
	}
	minV, err := parseBound("min", minS)
	if err != nil {
		fatalf("%v", err)
	}
	maxV, err := parseBound("max", maxS)
	if err != nil {
		fatalf("%v", err)
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "field":
			s.Query.Field = field
		case "value":
			s.Query.Value = value
		case "op":
			s.Query.Op = op
		case "values":
			s.Query.Values = splitList(values)
		case "min":
			s.Query.Min = minV
		case "max":
			s.Query.Max = maxV
		case "tally":
			s.Query.Tally = tally
		case "chunk-size":
			s.Runtime.ChunkSize = chunkSize
		case "max-record":
			s.Runtime.MaxRecord = maxRecord
		case "workers":
			s.Runtime.Workers = workers
		case "shards":
			s.Runtime.Shards = shards
		case "mmap":
			s.Runtime.Mmap = mmap
		case "strict":
			s.Parser.Options["strict_width"] = strict
		case "job":
			s.Job = job
		case "list":
			s.Source.File.List = listPath
		}
	})
	if !isFlagSet("workers") {
		if v := os.Getenv("LOGSCAN_WORKERS"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				fatalf("LOGSCAN_WORKERS=%q: %v", v, err)
			}
			s.Runtime.Workers = n
		}
	}
	if s.Runtime.Workers == 0 {
		s.Runtime.Workers = runtime.NumCPU()
	}
	if s.Job == "" {
		s.Job = defaultJob
	}

	paths, err := inputPaths(s.Source.File, flag.Args())
	if err != nil {
		fatalf("%v", err)
	}
	if len(paths) > 0 && s.Source.File.Path == "" && s.Source.File.List == "" {
		// Positional files satisfy the source requirement.
		s.Source.File.Path = paths[0]
	}

	if len(paths) == 0 && !validate {
		fatalf("usage: logscan [flags] file...")
	}

	// Validate the resolved scan.
	issues := config.ValidateScan(s)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid")
		os.Exit(0)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if probeOnly {
		if err := probeFiles(ctx, os.Stdout, paths, s.Parser.Dialect()); err != nil {
			fatalf("%v", err)
		}
		return
	}

	q, err := s.ScanQuery()
	if err != nil {
		fatalf("%v", err)
	}
	opt := s.ScanOptions()
	opt.Verbose = *verbose

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, ddAddrFlg, s.Job, *verbose)

	if *verbose {
		log.Printf("scan: job=%s field=%s op=%s workers=%d shards=%d mmap=%t files=%d",
			s.Job, q.Field, predicate.CanonicalOp(s.Query.Op), opt.Workers, opt.Shards, opt.Mmap, len(paths))
	}

	start := time.Now()
	r := runner{
		query:   q,
		opt:     opt,
		compare: compare,
		naive:   naiveQuery(s),
		tally:   s.Query.Tally,
		out:     os.Stdout,
	}
	failed := r.run(ctx, paths)
	_ = report.WriteTotal(os.Stdout, len(paths), time.Since(start))

	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// inputPaths gathers the files to scan: the configured path, the positional
// arguments, then the list file's entries.
func inputPaths(src config.SourceFile, args []string) ([]string, error) {
	var paths []string
	if src.Path != "" {
		paths = append(paths, src.Path)
	}
	paths = append(paths, args...)
	if src.List != "" {
		listed, err := file.ReadList(src.List)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	return paths, nil
}

// setupMetrics installs the metrics backend. Resolution is flag → env →
// default; a backend that fails to initialize leaves metrics disabled.
func setupMetrics(backendFlg, gwFlg, ddFlg, job string, verbose bool) {
	backendName := firstNonEmpty(backendFlg, os.Getenv("METRICS_BACKEND"))
	switch backendName {
	case "pushgateway":
		gwURL := firstNonEmpty(gwFlg, os.Getenv("PUSHGATEWAY_URL"), defaultPushGateway)
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)

	case "datadog":
		addr := firstNonEmpty(ddFlg, os.Getenv("DD_AGENT_ADDR"), defaultDDAddr)
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, backendName, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// parseBound parses a -min or -max value; empty means open.
func parseBound(name, s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &v, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
