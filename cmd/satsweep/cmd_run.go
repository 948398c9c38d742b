// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/satsweep/cmd/satsweep/config"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/archive"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/infra/process"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/instance"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/metrics"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/results"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/solver"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/sweep"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/telemetry"
	"github.com/AleutianAI/satsweep/pkg/logging"
	"github.com/AleutianAI/satsweep/pkg/ux"
)

// newUploader opens the archive destination. Tests replace it.
var newUploader = func(ctx context.Context, cfg config.ArchiveConfig) (archive.Uploader, error) {
	return archive.NewClient(ctx, cfg.Bucket, cfg.CredentialsFile)
}

// runOptions carries the per-invocation switches that are not part of the
// configuration file.
type runOptions struct {
	Resume      bool
	NoPreflight bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// runSweep is the cobra entry point for "satsweep run".
func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError(err)
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return usageError(err)
	}
	if err := config.Validate(cfg); err != nil {
		return usageError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = executeRun(ctx, cfg, runOptions{
		Resume:      resume,
		NoPreflight: noPreflight,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
	return err
}

// applyRunFlags copies every flag the user set on cmd over cfg. Flags left
// at their defaults do not touch the configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.SweepConfig) error {
	changed := cmd.Flags().Changed

	if changed("solver") {
		cfg.Solver = solverPath
	}
	if changed("instance") {
		cfg.Instance = instancePath
	}
	if changed("output") {
		cfg.Output = outputPath
	}
	if changed("trials") {
		if trials < 1 {
			return fmt.Errorf("--trials must be at least 1, got %d", trials)
		}
		cfg.Trials = trials
	}
	if changed("log-level") {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = logLevel
	}
	if changed("log-json") {
		cfg.Logging.JSON = logJSON
	}
	if changed("log-dir") {
		cfg.Logging.Dir = logDir
	}
	if changed("quiet") {
		cfg.Logging.Quiet = quiet
	}
	if changed("metrics-file") {
		cfg.Metrics.Textfile = metricsFile
	}
	if changed("trace-exporter") {
		cfg.Tracing.Exporter = traceExporter
	}
	if changed("trace-file") {
		cfg.Tracing.File = traceFile
	}
	if changed("otlp-endpoint") {
		cfg.Tracing.OTLPEndpoint = otlpEndpoint
	}
	return nil
}

// executeRun performs one sweep from a validated configuration.
//
// # Description
//
// Sets up logging and tracing, takes the results lock, opens the results
// file (fresh or resumed), optionally describes the instance, runs the
// sweep, then writes metrics, archives the outputs and prints a summary.
// The results file is always closed, and the metrics textfile always
// written, even when the sweep fails.
//
// # Outputs
//
//   - *sweep.Summary: what the sweep did, nil if it never started
//   - error: the first fatal error; sweep.ErrInterrupted after a signal
//
// # Limitations
//
//   - Archiving is skipped when the sweep failed or was interrupted.
func executeRun(ctx context.Context, cfg config.SweepConfig, opts runOptions) (summary *sweep.Summary, err error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, usageError(err)
	}
	progress := ux.NewProgress(ux.NewPrinter(opts.Stderr))
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "satsweep",
		JSON:    cfg.Logging.JSON,
		Quiet:   cfg.Logging.Quiet,
		Output:  progress.Writer(opts.Stderr),
	})
	defer logger.Close()

	traceCfg := cfg.TelemetryConfig(Version)
	traceCfg.TraceOutput = progress.Writer(opts.Stderr)
	shutdownTracing, err := telemetry.Init(ctx, traceCfg)
	if err != nil {
		return nil, usageError(fmt.Errorf("init tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdownTracing(shutdownCtx); serr != nil {
			logger.Warn("tracing shutdown failed", "error", serr)
		}
	}()

	lock := process.NewResultsLock(cfg.Output)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	writer, start, err := openResults(logger, cfg.Output, cfg.GridAxes(), opts.Resume)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close results: %w", cerr)
		}
	}()

	if !opts.NoPreflight {
		preflight(logger, cfg.Instance)
	}

	var recorder metrics.Recorder = metrics.NewNoOpRecorder()
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder()
	}
	metricsWritten := false
	writeMetrics := func() {
		if metricsWritten {
			return
		}
		metricsWritten = true
		if werr := recorder.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("metrics textfile not written", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}
	defer writeMetrics()

	runner := sweep.NewRunner(
		solver.NewDefaultInvoker(cfg.Solver, cfg.Instance),
		writer,
		sweep.Options{
			Logger:   logger,
			Recorder: recorder,
			Progress: progress.Update,
		},
	)

	plan := sweep.Plan{
		RunID:       uuid.NewString(),
		Axes:        cfg.GridAxes(),
		Start:       start,
		WriteHeader: !opts.Resume,
	}
	summary, err = runner.Run(ctx, plan)
	progress.Done()

	var archived []string
	if err == nil && cfg.Archive.Bucket != "" {
		// Flush before upload so the object holds every row.
		if cerr := writer.Close(); cerr != nil {
			return summary, fmt.Errorf("close results: %w", cerr)
		}
		writeMetrics()
		archived = archiveOutputs(ctx, logger, cfg, plan.RunID)
	}

	if summary != nil {
		printSummary(ux.NewPrinter(opts.Stdout), cfg.Output, summary, archived)
	}
	return summary, err
}

// openResults opens the results file and returns the index of the first
// tuple still to run. A fresh file gets its grid recorded; a resumed one must
// match the recorded grid.
func openResults(logger *logging.Logger, path string, axes grid.Axes, resume bool) (*results.Writer, int, error) {
	if !resume {
		w, err := results.Create(path)
		if err != nil {
			if errors.Is(err, results.ErrResultsExist) {
				return nil, 0, usageError(fmt.Errorf("%w (use --resume to continue it)", err))
			}
			return nil, 0, err
		}
		if err := results.SaveGrid(path, axes); err != nil {
			w.Close()
			return nil, 0, err
		}
		return w, 0, nil
	}

	switch err := results.CheckGrid(path, axes); {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("no grid record for results file; assuming it was started with this grid",
			"path", results.GridPath(path))
	default:
		return nil, 0, usageError(err)
	}

	w, rows, err := results.Resume(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, usageError(fmt.Errorf("nothing to resume: %w", err))
		}
		return nil, 0, err
	}
	return w, rows, nil
}

// preflight logs what the instance looks like. Problems are warnings only;
// the solver is the authority on its input.
func preflight(logger *logging.Logger, path string) {
	desc, err := instance.Describe(path, instance.Options{})
	if err != nil {
		logger.Warn("instance preflight failed", "path", path, "error", err)
		return
	}
	logger.Info("instance loaded",
		"path", desc.Path,
		"bytes", desc.Size,
		"vars", desc.Vars,
		"clauses", desc.Clauses,
	)
	if desc.Mismatch() {
		logger.Warn("instance counts differ from its problem line",
			"declared_vars", desc.DeclaredVars,
			"declared_clauses", desc.DeclaredClauses,
			"vars", desc.Vars,
			"clauses", desc.Clauses,
		)
	}
	if desc.TriviallyUnsat {
		logger.Warn("instance is trivially unsatisfiable", "path", desc.Path)
	}
}

// archiveOutputs uploads the results file, its grid record and the metrics
// file. Failures are logged; the sweep itself already succeeded.
func archiveOutputs(ctx context.Context, logger *logging.Logger, cfg config.SweepConfig, runID string) []string {
	uploader, err := newUploader(ctx, cfg.Archive)
	if err != nil {
		logger.Warn("archive unavailable", "bucket", cfg.Archive.Bucket, "error", err)
		return nil
	}
	defer uploader.Close()

	archiver := archive.NewArchiver(uploader, cfg.Archive.Bucket, cfg.Archive.Prefix)
	uris, err := archiver.Archive(ctx, runID, cfg.Output, results.GridPath(cfg.Output), cfg.Metrics.Textfile)
	if err != nil {
		logger.Warn("archive incomplete", "error", err)
	}
	for _, uri := range uris {
		logger.Info("archived", "uri", uri)
	}
	return uris
}

func printSummary(p *ux.Printer, output string, s *sweep.Summary, archived []string) {
	fields := []ux.Field{
		{Key: "run_id", Label: "Run", Value: s.RunID},
		{Key: "output", Label: "Output", Value: output},
		{Key: "planned", Label: "Planned", Value: strconv.Itoa(s.Planned)},
		{Key: "skipped", Label: "Skipped", Value: strconv.Itoa(s.Skipped)},
		{Key: "completed", Label: "Completed", Value: strconv.Itoa(s.Completed)},
		{Key: "nonzero_exits", Label: "Non-zero exits", Value: strconv.Itoa(s.NonZeroExits)},
		{Key: "empty_diagnostics", Label: "Empty diagnostics", Value: strconv.Itoa(s.EmptyDiagnostics)},
		{Key: "interrupted", Label: "Interrupted", Value: strconv.FormatBool(s.Interrupted)},
		{Key: "duration", Label: "Duration", Value: s.Duration.Round(time.Millisecond).String()},
	}
	for _, uri := range archived {
		fields = append(fields, ux.Field{Key: "archived", Label: "Archived", Value: uri})
	}
	p.Summary("Sweep summary", fields)
}
