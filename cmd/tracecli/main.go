// Package main is a batch tool that parses GPX files from disk and prints a
// one-line summary per file. With -persist it also imports each file into
// the trace store configured by DATABASE_URL.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"

	"github.com/pkordes/gpxviewer/internal/config"
	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/gpx"
	"github.com/pkordes/gpxviewer/internal/repo"
	"github.com/pkordes/gpxviewer/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, logger); err != nil {
		logger.Error("tracecli failed", "error", err)
		os.Exit(1)
	}
}

// importer is the part of service.TraceService the CLI needs.
type importer interface {
	Import(ctx context.Context, name string, body io.Reader, splitOnGaps bool) (domain.Trace, error)
}

type options struct {
	split       bool
	gap         time.Duration
	persist     bool
	databaseURL string
	quiet       bool
	files       []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("tracecli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&o.split, "split", true, "split segments at recording pauses")
	fs.DurationVar(&o.gap, "gap", gpx.DefaultGapThreshold, "pause length that starts a new segment")
	fs.BoolVar(&o.persist, "persist", false, "import parsed files into the trace store")
	fs.StringVar(&o.databaseURL, "database-url", "", "Postgres URL (default: DATABASE_URL or CONFIG_FILE)")
	fs.BoolVar(&o.quiet, "quiet", false, "hide the progress bar")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: tracecli [flags] file.gpx...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.files = fs.Args()
	if len(o.files) == 0 {
		fs.Usage()
		return options{}, errors.New("no input files")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var store importer
	if o.persist {
		svc, closeFn, err := openStore(ctx, o)
		if err != nil {
			return err
		}
		defer closeFn()
		store = svc
	}

	barOut := stderr
	if o.quiet {
		barOut = io.Discard
	}
	bar := progressbar.NewOptions(len(o.files),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetDescription("[GPX] parsing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	parser := gpx.NewParser(gpx.Options{SplitOnGaps: o.split, GapThreshold: o.gap})
	var failed int
	for _, path := range o.files {
		summary, err := processFile(ctx, parser, store, o.split, path)
		_ = bar.Add(1)
		if err != nil {
			failed++
			logger.Warn("file skipped", "path", path, "error", err)
			continue
		}
		fmt.Fprintln(stdout, formatSummary(path, summary))
	}
	_ = bar.Finish()
	fmt.Fprintln(stderr)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(o.files))
	}
	return nil
}

// processFile parses path and, when store is set, imports it. The import
// re-parses server side so the stored summary carries the store's ID.
func processFile(ctx context.Context, parser *gpx.Parser, store importer, split bool, path string) (domain.TraceSummary, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return domain.TraceSummary{}, err
	}
	name := traceName(path)

	if store != nil {
		trace, err := store.Import(ctx, name, bytes.NewReader(doc), split)
		if err != nil {
			return domain.TraceSummary{}, err
		}
		return trace.Summary(), nil
	}

	trace, err := parser.Parse(name, doc)
	if err != nil {
		return domain.TraceSummary{}, err
	}
	return trace.Summary(), nil
}

func openStore(ctx context.Context, o options) (*service.TraceService, func(), error) {
	dsn := o.databaseURL
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		dsn = cfg.DatabaseURL
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	svc := service.NewTraceService(repo.NewTraceRepo(pool), 0, gpx.Options{GapThreshold: o.gap})
	return svc, pool.Close, nil
}

// traceName is the file name without its directory or extension.
func traceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatSummary(path string, s domain.TraceSummary) string {
	var id string
	if s.ID != uuid.Nil {
		id = " id=" + s.ID.String()
	}
	return fmt.Sprintf("%s: %.2f km in %s, %d tracks, %d points, %d waypoints, tz %s%s",
		path, s.Kilometers, time.Duration(s.Seconds*float64(time.Second)).Round(time.Second),
		s.TrackCount, s.PointCount, s.WaypointCount, s.Timezone, id)
}
