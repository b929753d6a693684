// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package metrics holds the Prometheus collector of a reconciliation run.
// A run is a batch job, so the registry is written to a node-exporter
// textfile instead of being served.
package metrics

import (
	"time"

	"github.com/patrickbr/gtfsreconcile/diagnostics"
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	reg *prometheus.Registry

	TripsIn       prometheus.Gauge
	TripsOut      prometheus.Gauge
	DegradedPaths prometheus.Gauge
	VariantGroups prometheus.Gauge
	Fragments     prometheus.Gauge

	Diagnostics *prometheus.CounterVec // kind label
	UnitErrors  *prometheus.CounterVec // processor label

	ProcessorDuration *prometheus.HistogramVec // processor label
	RunDuration       prometheus.Gauge         // seconds
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_trips_input",
			Help: "Number of trips handed to the pipeline.",
		}),
		TripsOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_trips_output",
			Help: "Number of trips left after reconciliation.",
		}),
		DegradedPaths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_degraded_paths",
			Help: "Number of output trips whose path uses a fallback geometry.",
		}),
		VariantGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_variant_groups",
			Help: "Number of variant groups resolved.",
		}),
		Fragments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_fragments_input",
			Help: "Number of shape fragments handed to the pipeline.",
		}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_diagnostics_total",
			Help: "Diagnostic records emitted, by kind.",
		}, []string{"kind"}),
		UnitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_unit_errors_total",
			Help: "Units rejected with a structural error, by processor.",
		}, []string{"processor"}),
		ProcessorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reconcile_processor_duration_seconds",
			Help:    "Duration of a single processor run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"processor"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_run_duration_seconds",
			Help: "Wall time of the whole pipeline.",
		}),
	}

	reg.MustRegister(
		c.TripsIn, c.TripsOut, c.DegradedPaths, c.VariantGroups, c.Fragments,
		c.Diagnostics, c.UnitErrors, c.ProcessorDuration, c.RunDuration,
	)

	// expose every kind, even if it never fires
	for _, k := range diagnostics.Kinds {
		c.Diagnostics.WithLabelValues(k.String())
	}

	return c
}

// Registry returns the private registry all metrics are registered on
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

// ObserveDiagnostic counts a single diagnostic record, suitable as a
// diagnostics.Sink hook
func (c *Collector) ObserveDiagnostic(r diagnostics.Record) {
	if c == nil {
		return
	}
	c.Diagnostics.WithLabelValues(r.Kind.String()).Inc()
}

// ObserveProcessor records the duration and the number of failed units of
// one processor run
func (c *Collector) ObserveProcessor(name string, d time.Duration, failed int) {
	if c == nil {
		return
	}
	c.ProcessorDuration.WithLabelValues(name).Observe(d.Seconds())
	if failed > 0 {
		c.UnitErrors.WithLabelValues(name).Add(float64(failed))
	}
}

// WriteTextfile atomically writes all metrics in the text exposition format
// to path
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
