// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/metrics"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/solver"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/telemetry"
	"github.com/AleutianAI/satsweep/pkg/logging"
)

// ErrInterrupted is returned when the context was cancelled before every
// tuple had run. The Summary is still valid.
var ErrInterrupted = errors.New("sweep interrupted")

// RowWriter is the part of results.Writer the sweep needs.
type RowWriter interface {
	WriteHeader() error
	AppendRow(p grid.Point, diagnostic []byte) error
}

// Options holds the Runner's optional collaborators. Zero values are
// replaced with silent defaults.
type Options struct {
	Logger   *logging.Logger
	Recorder metrics.Recorder
	Tracer   trace.Tracer

	// Progress, if set, is called after each row with the number of tuples
	// done so far (including skipped ones) and the grid size.
	Progress func(done, total int)
}

// Plan describes one sweep.
type Plan struct {
	// RunID identifies the sweep in logs, spans and the archive.
	RunID string

	// Axes is the grid to enumerate.
	Axes grid.Axes

	// Start is the index of the first tuple to run. Tuples before it are
	// counted as skipped.
	Start int

	// WriteHeader writes the results header before the first row. False
	// when resuming a file that already has one.
	WriteHeader bool
}

// Summary reports what a sweep did.
type Summary struct {
	RunID            string
	Planned          int
	Skipped          int
	Completed        int
	NonZeroExits     int
	EmptyDiagnostics int
	Interrupted      bool
	Duration         time.Duration
}

// Runner executes sweeps.
//
// # Thread Safety
//
// A Runner must not run two sweeps at once.
type Runner struct {
	invoker  solver.Invoker
	writer   RowWriter
	logger   *logging.Logger
	recorder metrics.Recorder
	tracer   trace.Tracer
	progress func(done, total int)
}

// NewRunner creates a Runner around an invoker and a results writer.
func NewRunner(invoker solver.Invoker, writer RowWriter, opts Options) *Runner {
	r := &Runner{
		invoker:  invoker,
		writer:   writer,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		tracer:   opts.Tracer,
		progress: opts.Progress,
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.recorder == nil {
		r.recorder = metrics.NewNoOpRecorder()
	}
	if r.tracer == nil {
		r.tracer = telemetry.Tracer()
	}
	return r
}

// Run executes plan.
//
// # Description
//
// Writes the header if requested, then for every tuple from plan.Start
// invokes the solver and appends its diagnostic as a row.
//
// # Inputs
//
//   - ctx: Cancelling it stops the sweep after the current run
//   - plan: Grid, start offset and header policy
//
// # Outputs
//
//   - *Summary: Always non-nil, reflecting the rows written so far
//   - error: nil on completion; ErrInterrupted on cancellation; a
//     solver.ErrResourceUnavailable match or a results write error when
//     the sweep had to stop
//
// # Examples
//
//	summary, err := runner.Run(ctx, sweep.Plan{Axes: grid.DefaultAxes(), WriteHeader: true})
//	if errors.Is(err, solver.ErrResourceUnavailable) {
//	    // header only, or the rows written before the failure
//	}
func (r *Runner) Run(ctx context.Context, plan Plan) (*Summary, error) {
	started := time.Now()
	total := plan.Axes.Size()
	start := min(max(plan.Start, 0), total)

	summary := &Summary{
		RunID:   plan.RunID,
		Planned: total,
		Skipped: start,
	}
	defer func() { summary.Duration = time.Since(started) }()

	ctx, span := r.tracer.Start(ctx, "sweep", trace.WithAttributes(
		attribute.String("sweep.run_id", plan.RunID),
		attribute.Int("sweep.grid_points", total),
		attribute.Int("sweep.start", start),
	))
	defer span.End()

	r.recorder.SetGridPoints(total)
	r.logger.Info("sweep started",
		"run_id", plan.RunID,
		"grid_points", total,
		"start", start,
	)

	if plan.WriteHeader {
		if err := r.writer.WriteHeader(); err != nil {
			return summary, r.fail(span, "write header", err)
		}
	}

	for i, p := range plan.Axes.From(start) {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		res, err := r.runOne(ctx, i, p)
		if err != nil {
			return summary, r.fail(span, fmt.Sprintf("run %d (%s)", i, p), err)
		}

		if res.ExitCode != 0 {
			summary.NonZeroExits++
			r.logger.Warn("solver exited non-zero",
				"index", i, "params", p.String(), "exit_code", res.ExitCode)
		}
		if len(res.Diagnostic) == 0 {
			summary.EmptyDiagnostics++
			r.logger.Warn("solver wrote no diagnostic", "index", i, "params", p.String())
		}

		if err := r.writer.AppendRow(p, res.Diagnostic); err != nil {
			return summary, r.fail(span, fmt.Sprintf("append row %d", i), err)
		}
		r.recorder.RecordRow()
		summary.Completed++

		if r.progress != nil {
			r.progress(i+1, total)
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.completed", summary.Completed),
		attribute.Int("sweep.nonzero_exits", summary.NonZeroExits),
	)

	if summary.Interrupted {
		span.SetStatus(codes.Error, ErrInterrupted.Error())
		r.logger.Warn("sweep interrupted",
			"run_id", plan.RunID,
			"completed", summary.Completed,
			"remaining", total-start-summary.Completed,
		)
		return summary, ErrInterrupted
	}

	r.logger.Info("sweep finished",
		"run_id", plan.RunID,
		"completed", summary.Completed,
		"nonzero_exits", summary.NonZeroExits,
		"empty_diagnostics", summary.EmptyDiagnostics,
		"duration", time.Since(started).String(),
	)
	return summary, nil
}

// runOne invokes the solver for p inside its own span.
func (r *Runner) runOne(ctx context.Context, index int, p grid.Point) (*solver.Result, error) {
	ctx, span := r.tracer.Start(ctx, "solver.run", trace.WithAttributes(
		attribute.Int("grid.index", index),
		attribute.Int("solver.temperature", p.Temperature),
		attribute.Float64("solver.cooling", p.Cooling),
		attribute.Int("solver.equilibrium", p.Equilibrium),
		attribute.Int("solver.no_improve", p.NoImprove),
		attribute.Int("solver.trial", p.Trial),
	))
	defer span.End()

	res, err := r.invoker.Invoke(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("solver.exit_code", res.ExitCode),
		attribute.Int("solver.diagnostic_bytes", len(res.Diagnostic)),
	)
	r.recorder.RecordRun(res.ExitCode, res.Duration, len(res.Diagnostic))
	r.logger.Debug("solver run",
		"index", index,
		"params", p.String(),
		"exit_code", res.ExitCode,
		"duration", res.Duration.String(),
		"diagnostic_bytes", len(res.Diagnostic),
		"stdout_bytes", res.StdoutBytes,
	)
	return res, nil
}

// fail logs a fatal condition, marks the sweep span and wraps err.
func (r *Runner) fail(span trace.Span, what string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.logger.Error("sweep stopped", "during", what, "error", err)
	return fmt.Errorf("%s: %w", what, err)
}
