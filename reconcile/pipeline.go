// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package reconcile runs a chain of processors over a dataset and reports
// the outcome.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickbr/gtfsreconcile/config"
	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/patrickbr/gtfsreconcile/logging"
	"github.com/patrickbr/gtfsreconcile/metrics"
	"github.com/patrickbr/gtfsreconcile/notify"
	"github.com/patrickbr/gtfsreconcile/processors"
	"github.com/patrickbr/gtfsreconcile/schedule"
)

// Pipeline runs its processors in order. Logger, Notifier and Metrics are
// optional.
type Pipeline struct {
	RunId      string
	Processors []processors.Processor
	Logger     *slog.Logger
	Notifier   notify.Notifier
	Metrics    *metrics.Collector
}

// Report summarizes a pipeline run
type Report struct {
	TripsIn    int
	TripsOut   int
	Degraded   int
	UnitErrors []error
	Duration   time.Duration
}

// DefaultProcessors returns the standard reconciliation chain for cfg
func DefaultProcessors(cfg config.ReconcileConfig) []processors.Processor {
	return []processors.Processor{
		processors.VariantResolver{Sequential: cfg.Sequential},
		processors.CalendarAssigner{DropEmpty: cfg.DropEmptyCalendars},
		processors.ShapeAssembler{MaxConnectDist: cfg.MaxConnectDistance},
		processors.TripDuplicateRemover{DropIdentical: cfg.DropIdentical},
		processors.ShapeMinimizer{Epsilon: cfg.ShapeEpsilon},
	}
}

// New creates a pipeline with the standard chain for cfg
func New(cfg config.ReconcileConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Processors: DefaultProcessors(cfg),
		Logger:     logger,
	}
}

// Run all processors on ds. Unit errors returned by a processor are logged
// and collected in the report, the run continues with the next processor.
// The context is checked between processors, a cancelled context aborts the
// run with its error.
func (p *Pipeline) Run(ctx context.Context, ds *schedule.Dataset, sink *diagnostics.Sink) (Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	start := time.Now()
	rep := Report{TripsIn: len(ds.Trips)}

	if p.Metrics != nil {
		sink.OnAdd(p.Metrics.ObserveDiagnostic)
		p.Metrics.TripsIn.Set(float64(len(ds.Trips)))
		p.Metrics.Fragments.Set(float64(len(ds.Fragments)))
		p.Metrics.VariantGroups.Set(float64(len(ds.Groups)))
	}

	for i, proc := range p.Processors {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		name := Name(proc)
		done := logging.Timed(logger, "processor finished", slog.String("processor", name))

		failed := SplitErrors(proc.Run(ds, sink))
		for _, err := range failed {
			logUnitError(logger, name, err)
		}
		rep.UnitErrors = append(rep.UnitErrors, failed...)

		d := done()
		p.Metrics.ObserveProcessor(name, d, len(failed))
		p.notify(notify.Progress{Stage: name, Done: i + 1, Total: len(p.Processors)})
	}

	rep.TripsOut = len(ds.Trips)
	for _, t := range ds.Trips {
		if t.Degraded {
			rep.Degraded++
		}
	}
	rep.Duration = time.Since(start)

	if p.Metrics != nil {
		p.Metrics.TripsOut.Set(float64(rep.TripsOut))
		p.Metrics.DegradedPaths.Set(float64(rep.Degraded))
		p.Metrics.RunDuration.Set(rep.Duration.Seconds())
	}

	logging.LogOperation(logger, "reconciliation finished",
		slog.String("run", p.RunId),
		slog.Int("trips_in", rep.TripsIn),
		slog.Int("trips_out", rep.TripsOut),
		slog.Int("degraded", rep.Degraded),
		slog.Int("unit_errors", len(rep.UnitErrors)),
		slog.Int("diagnostics", sink.Len()),
		slog.Duration("duration", rep.Duration))

	return rep, nil
}

func (p *Pipeline) notify(pr notify.Progress) {
	if p.Notifier == nil {
		return
	}
	pr.Run = p.RunId
	pr.Time = time.Now()
	p.Notifier.Notify(pr)
}

// Name returns the stage name of proc
func Name(proc processors.Processor) string {
	if n, ok := proc.(processors.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", proc)
}

func logUnitError(logger *slog.Logger, processor string, err error) {
	attrs := []slog.Attr{slog.String("processor", processor)}

	var ue *schedule.UnitError
	if errors.As(err, &ue) {
		attrs = append(attrs, slog.String("unit", ue.Unit), slog.String("id", ue.Id))
		if ue.Origin != "" {
			attrs = append(attrs, slog.String("origin", ue.Origin))
		}
	}

	logging.LogError(logger, "unit rejected", err, attrs...)
}

// SplitErrors splits joined errors into single unit errors
func SplitErrors(err error) []error {
	if err == nil {
		return nil
	}

	if j, ok := err.(interface{ Unwrap() []error }); ok {
		ret := make([]error, 0)
		for _, e := range j.Unwrap() {
			ret = append(ret, SplitErrors(e)...)
		}
		return ret
	}

	return []error{err}
}
