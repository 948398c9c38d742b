// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package metrics records sweep statistics and exports them as a Prometheus
textfile.

A sweep is a batch job, not a server, so nothing is scraped. Instead the
recorder is written once when the sweep ends, in the format read by the
node_exporter textfile collector.

# Metrics Exported

  - satsweep_runs_total: Counter by exit ("zero" or "nonzero")
  - satsweep_run_duration_seconds: Histogram of solver wall-clock time
  - satsweep_diagnostic_bytes: Histogram of stderr blob sizes
  - satsweep_rows_written_total: Counter of rows appended
  - satsweep_grid_points: Gauge of tuples planned for this sweep

Two implementations exist. NoOpRecorder keeps totals in memory and exports
nothing; PrometheusRecorder owns a private registry so that tests and
repeated sweeps in one process never collide on the global one.
*/
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	metricsNamespace = "satsweep"

	exitZero    = "zero"
	exitNonZero = "nonzero"
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Recorder receives sweep events.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	// SetGridPoints records how many tuples the sweep will run.
	SetGridPoints(n int)

	// RecordRun records one finished solver run.
	RecordRun(exitCode int, duration time.Duration, diagnosticBytes int)

	// RecordRow records one row appended to the results file.
	RecordRow()

	// WriteTextfile writes the current values to path. Implementations that
	// export nothing return nil.
	WriteTextfile(path string) error
}

// -----------------------------------------------------------------------------
// NoOpRecorder
// -----------------------------------------------------------------------------

// NoOpRecorder counts in memory and exports nothing.
//
// Used when no metrics textfile is configured. The getters exist for tests.
type NoOpRecorder struct {
	gridPoints atomic.Int64
	runs       atomic.Int64
	nonZero    atomic.Int64
	rows       atomic.Int64
}

// NewNoOpRecorder creates a NoOpRecorder.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

// SetGridPoints stores n.
func (m *NoOpRecorder) SetGridPoints(n int) {
	m.gridPoints.Store(int64(n))
}

// RecordRun counts the run.
func (m *NoOpRecorder) RecordRun(exitCode int, _ time.Duration, _ int) {
	m.runs.Add(1)
	if exitCode != 0 {
		m.nonZero.Add(1)
	}
}

// RecordRow counts the row.
func (m *NoOpRecorder) RecordRow() {
	m.rows.Add(1)
}

// WriteTextfile does nothing.
func (m *NoOpRecorder) WriteTextfile(string) error {
	return nil
}

// GridPoints returns the last value passed to SetGridPoints.
func (m *NoOpRecorder) GridPoints() int64 { return m.gridPoints.Load() }

// Runs returns the number of recorded runs.
func (m *NoOpRecorder) Runs() int64 { return m.runs.Load() }

// NonZeroRuns returns the number of recorded runs with a non-zero exit.
func (m *NoOpRecorder) NonZeroRuns() int64 { return m.nonZero.Load() }

// Rows returns the number of recorded rows.
func (m *NoOpRecorder) Rows() int64 { return m.rows.Load() }

// -----------------------------------------------------------------------------
// PrometheusRecorder
// -----------------------------------------------------------------------------

// PrometheusRecorder records into a private Prometheus registry.
//
// # Thread Safety
//
// PrometheusRecorder is safe for concurrent use.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	diagnosticBytes prometheus.Histogram
	rowsTotal       prometheus.Counter
	gridPoints      prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder with its own registry.
//
// # Description
//
// Creates and registers all collectors. Registration cannot conflict because
// the registry is new, so construction cannot fail.
//
// # Outputs
//
//   - *PrometheusRecorder: Ready-to-use recorder
//
// # Examples
//
//	rec := metrics.NewPrometheusRecorder()
//	defer rec.WriteTextfile("/var/lib/node_exporter/satsweep.prom")
func NewPrometheusRecorder() *PrometheusRecorder {
	m := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Solver runs completed, by exit status.",
			},
			[]string{"exit"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock time of one solver run.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		diagnosticBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "diagnostic_bytes",
				Help:      "Size of the stderr blob captured from one solver run.",
				Buckets:   []float64{0, 16, 32, 64, 128, 256, 1024, 4096},
			},
		),
		rowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rows_written_total",
				Help:      "Rows appended to the results file.",
			},
		),
		gridPoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "grid_points",
				Help:      "Parameter tuples planned for the sweep.",
			},
		),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.diagnosticBytes,
		m.rowsTotal,
		m.gridPoints,
	)

	// Both label values exist from the start so a sweep with no failures
	// still reports nonzero=0.
	m.runsTotal.WithLabelValues(exitZero)
	m.runsTotal.WithLabelValues(exitNonZero)

	return m
}

// Registry returns the private registry.
func (m *PrometheusRecorder) Registry() *prometheus.Registry {
	return m.registry
}

// SetGridPoints sets the grid gauge.
func (m *PrometheusRecorder) SetGridPoints(n int) {
	m.gridPoints.Set(float64(n))
}

// RecordRun records one run's exit status, duration and diagnostic size.
func (m *PrometheusRecorder) RecordRun(exitCode int, duration time.Duration, diagnosticBytes int) {
	label := exitZero
	if exitCode != 0 {
		label = exitNonZero
	}
	m.runsTotal.WithLabelValues(label).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.diagnosticBytes.Observe(float64(diagnosticBytes))
}

// RecordRow increments the rows counter.
func (m *PrometheusRecorder) RecordRow() {
	m.rowsTotal.Inc()
}

// WriteTextfile writes all metrics to path atomically.
//
// prometheus.WriteToTextfile writes to a temporary file and renames it, so a
// collector never reads a half-written file.
func (m *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Recorder = (*NoOpRecorder)(nil)
	_ Recorder = (*PrometheusRecorder)(nil)
)
