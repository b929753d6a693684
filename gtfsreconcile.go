// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/patrickbr/gtfsreconcile/config"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/export"
	"github.com/patrickbr/gtfsreconcile/input"
	"github.com/patrickbr/gtfsreconcile/logging"
	"github.com/patrickbr/gtfsreconcile/metrics"
	"github.com/patrickbr/gtfsreconcile/notify"
	"github.com/patrickbr/gtfsreconcile/reconcile"
	"github.com/patrickbr/gtfsreconcile/schedule"
	"github.com/patrickbr/gtfsreconcile/store"
	flag "github.com/spf13/pflag"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gtfsreconcile - (C) 2016-2024 by Patrick Brosi <info@patrickbrosi.de>\n\nUsage:\n\n  %s [<options>] [-o <outputfile>] <input dataset>\n\nAllowed options:\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	configPath := flag.StringP("config", "c", "", "YAML configuration file")

	outputPath := flag.StringP("output", "o", "gtfs-out", "gtfs output directory or zip file (must end with .zip)")
	fragmentsPath := flag.StringP("fragments", "f", "", "GeoJSON file with shape fragments")
	registryPath := flag.StringP("stop-registry", "s", "", "GTFS feed (directory or zip file) to read stops from")
	assignmentsPath := flag.StringP("assignments", "", "", "write the trip assignment table to this file")
	pathsPath := flag.StringP("paths", "", "", "write trip paths as GeoJSON to this file")
	diagnosticsPath := flag.StringP("diagnostics", "d", "", "write the diagnostics report as CSV to this file")
	metricsPath := flag.StringP("metrics", "", "", "write run metrics as a Prometheus textfile to this file")

	maxConnectDist := flag.Float64P("max-connect-dist", "", 10, "max distance in meters between consecutive shape fragments")
	shapeEpsilon := flag.Float64P("shape-epsilon", "", 1.0, "Douglas-Peucker epsilon in meters for trip paths")
	shapeMaxEqDist := flag.Float64P("shape-max-eq-dist", "", 0, "trip paths within this distance in meters share a shape")
	dropIdentical := flag.BoolP("drop-identical", "", false, "drop trips identical to another trip instead of only reporting them")
	dropEmpty := flag.BoolP("drop-empty-calendars", "", false, "drop trips whose calendar is fully superseded")
	sequential := flag.BoolP("sequential", "", false, "resolve variant groups sequentially")
	logLevel := flag.StringP("log-level", "", "info", "log level (debug, info, warn, error)")

	help := flag.BoolP("help", "?", false, "this message")

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not load configuration:\n")
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	// explicitly given flags override the configuration
	set := flag.CommandLine.Changed
	if set("output") {
		cfg.Output.Path = *outputPath
	}
	if set("fragments") {
		cfg.Input.Fragments = *fragmentsPath
	}
	if set("stop-registry") {
		cfg.Input.StopRegistry = *registryPath
	}
	if set("assignments") {
		cfg.Output.Assignments = *assignmentsPath
	}
	if set("paths") {
		cfg.Output.Paths = *pathsPath
	}
	if set("diagnostics") {
		cfg.Output.Diagnostics = *diagnosticsPath
	}
	if set("metrics") {
		cfg.Output.Metrics = *metricsPath
	}
	if set("max-connect-dist") {
		cfg.Reconcile.MaxConnectDistance = *maxConnectDist
	}
	if set("shape-epsilon") {
		cfg.Reconcile.ShapeEpsilon = *shapeEpsilon
	}
	if set("shape-max-eq-dist") {
		cfg.Output.ShapeMaxEqDist = *shapeMaxEqDist
	}
	if set("drop-identical") {
		cfg.Reconcile.DropIdentical = *dropIdentical
	}
	if set("drop-empty-calendars") {
		cfg.Reconcile.DropEmptyCalendars = *dropEmpty
	}
	if set("sequential") {
		cfg.Reconcile.Sequential = *sequential
	}
	if set("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flag.NArg() > 0 {
		cfg.Input.Dataset = flag.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if len(cfg.Input.Dataset) == 0 {
		fmt.Fprintln(os.Stderr, "No input dataset specified, see --help")
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	logger := logging.NewStructuredLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %s\n", err.Error())
		os.Exit(1)
	}
}

// run reads the input, reconciles it and writes all configured outputs
func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	started := time.Now()
	runId := uuid.New()

	ds, err := load(cfg.Input, logger)
	if err != nil {
		return err
	}

	coll := metrics.NewCollector()

	var notifier notify.Notifier = notify.Nop{}
	if len(cfg.NATS.URL) > 0 {
		n, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Prefix, logger)
		if err != nil {
			return err
		}
		defer n.Close()
		notifier = n
	}

	p := reconcile.New(cfg.Reconcile, logger)
	p.RunId = runId.String()
	p.Metrics = coll
	p.Notifier = notifier

	job := p.Start(ctx, ds)
	rep, err := job.Wait()
	if err != nil {
		return fmt.Errorf("reconciliation aborted: %w", err)
	}

	sink := job.Sink()

	res := export.Exporter{IdBase: cfg.Output.IdBase, MaxEqDist: cfg.Output.ShapeMaxEqDist}.Build(ds)

	if len(cfg.Output.Path) > 0 {
		fmt.Fprintf(os.Stdout, "Outputting GTFS feed to '%s'... ", cfg.Output.Path)
		if err := res.WriteGTFS(cfg.Output.Path); err != nil {
			fmt.Fprintf(os.Stdout, "failed.\n")
			return err
		}
		fmt.Fprintf(os.Stdout, "done.\n")
	}

	outputs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{cfg.Output.Assignments, res.WriteAssignments},
		{cfg.Output.Paths, res.WritePaths},
		{cfg.Output.Diagnostics, sink.WriteCSV},
	}

	for _, o := range outputs {
		if len(o.path) == 0 {
			continue
		}
		if err := writeFile(o.path, o.write, logger); err != nil {
			return err
		}
	}

	if len(cfg.Output.Metrics) > 0 {
		if err := coll.WriteTextfile(cfg.Output.Metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	sink.LogSummary(logger, cfg.Log.TopGroups)

	if len(cfg.Database.URL) > 0 {
		r := store.Run{Id: runId, Started: started, Finished: time.Now(), TripsIn: rep.TripsIn, TripsOut: rep.TripsOut}
		if err := save(ctx, cfg.Database.URL, r, sink, logger); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "Reconciled %d trips into %d (%d unit errors, %d diagnostics) in %s.\n",
		rep.TripsIn, rep.TripsOut, len(rep.UnitErrors), sink.Len(), rep.Duration.Round(time.Millisecond))

	return nil
}

// load reads the stop registry, the dataset and the fragments. Invalid
// single records are logged and skipped.
func load(in config.InputConfig, logger *slog.Logger) (*schedule.Dataset, error) {
	var registry map[string]*schedule.Stop

	if len(in.StopRegistry) > 0 {
		var err error
		registry, err = input.ReadStopRegistry(in.StopRegistry)
		if err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(os.Stdout, "Parsing dataset in '%s'... ", in.Dataset)
	ds, err := input.LoadDataset(in.Dataset, registry)
	if ds == nil {
		fmt.Fprintf(os.Stdout, "failed.\n")
		return nil, err
	}
	skipped := logSkipped(logger, in.Dataset, err)
	fmt.Fprintf(os.Stdout, "done. (%d trips, %d variant groups, %d records skipped)\n", len(ds.Trips), len(ds.Groups), skipped)

	if len(in.Fragments) > 0 {
		fmt.Fprintf(os.Stdout, "Parsing fragments in '%s'... ", in.Fragments)
		frags, err := input.LoadFragments(in.Fragments)
		if frags == nil {
			fmt.Fprintf(os.Stdout, "failed.\n")
			return nil, err
		}
		skipped := logSkipped(logger, in.Fragments, err)
		ds.Fragments = frags
		fmt.Fprintf(os.Stdout, "done. (%d fragments, %d skipped)\n", len(frags), skipped)
	}

	return ds, nil
}

func logSkipped(logger *slog.Logger, file string, err error) int {
	errs := reconcile.SplitErrors(err)
	for _, e := range errs {
		logging.LogError(logger, "skipped invalid record", e, slog.String("file", file))
	}
	return len(errs)
}

func writeFile(path string, write func(io.Writer) error, logger *slog.Logger) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer logging.HandleDeferredError(&err, f.Close, logger, "close "+path)

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func save(ctx context.Context, dsn string, r store.Run, sink *diagnostics.Sink, logger *slog.Logger) error {
	s, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer logging.SafeCloseWithLogging(s, logger, "close store")

	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := s.SaveRun(ctx, r, sink); err != nil {
		return fmt.Errorf("save run %s: %w", r.Id, err)
	}

	logging.LogOperation(logger, "diagnostics stored", slog.String("run", r.Id.String()), slog.Int("records", sink.Len()))
	return nil
}
