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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/metrics"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/results"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/solver"
	"github.com/AleutianAI/satsweep/pkg/logging"
)

// =============================================================================
// Helpers
// =============================================================================

// oneLine returns an invoke func that prints one diagnostic line per run.
func oneLine(ctx context.Context, p grid.Point) (*solver.Result, error) {
	return &solver.Result{Diagnostic: []byte(fmt.Sprintf("%d;1;1;430;430;400\n", p.Trial))}, nil
}

func newWriter(t *testing.T) (*results.Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := results.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func smallAxes() grid.Axes {
	return grid.Axes{
		Temperatures:       []int{20, 100},
		CoolingRatios:      []float64{0.9},
		EquilibriumLengths: []int{1},
		NoImproveCutoffs:   []int{1000},
		Trials:             3,
	}
}

// =============================================================================
// Reference Sweep
// =============================================================================

func TestRun_ReferenceGrid(t *testing.T) {
	w, path := newWriter(t)
	mock := &solver.MockInvoker{InvokeFunc: oneLine}
	rec := metrics.NewNoOpRecorder()

	runner := NewRunner(mock, w, Options{Recorder: rec})
	summary, err := runner.Run(context.Background(), Plan{RunID: "ref", Axes: grid.DefaultAxes(), WriteHeader: true})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1441)
	assert.Equal(t, results.Header, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "20;0.9;1;1000;"))
	assert.Equal(t, "1000;0.999;100;5000;10;1;1;430;430;400", lines[1440])

	headers := 0
	for i, line := range lines {
		if line == results.Header {
			headers++
		}
		if i > 0 {
			p := grid.DefaultAxes().At(i - 1)
			assert.True(t, strings.HasPrefix(line, results.Prefix(p)), "row %d", i)
		}
	}
	assert.Equal(t, 1, headers)

	assert.Equal(t, 1440, summary.Planned)
	assert.Equal(t, 1440, summary.Completed)
	assert.Zero(t, summary.Skipped)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, "ref", summary.RunID)
	assert.Equal(t, 1440, mock.CallCount())
	assert.Equal(t, int64(1440), rec.Rows())
	assert.Equal(t, int64(1440), rec.GridPoints())
}

func TestRun_InvokesInGridOrder(t *testing.T) {
	w, _ := newWriter(t)
	mock := &solver.MockInvoker{InvokeFunc: oneLine}
	axes := smallAxes()

	_, err := NewRunner(mock, w, Options{}).Run(context.Background(), Plan{Axes: axes, WriteHeader: true})
	require.NoError(t, err)

	var want []grid.Point
	for _, p := range axes.All() {
		want = append(want, p)
	}
	assert.Equal(t, want, mock.Calls)
}

// =============================================================================
// Per-run Outcomes
// =============================================================================

func TestRun_NonZeroExitStillRecorded(t *testing.T) {
	w, path := newWriter(t)
	mock := &solver.MockInvoker{
		InvokeFunc: func(ctx context.Context, p grid.Point) (*solver.Result, error) {
			if p.Trial == 2 {
				return &solver.Result{ExitCode: 1, Diagnostic: []byte("unknown option -e\n")}, nil
			}
			return oneLine(ctx, p)
		},
	}

	summary, err := NewRunner(mock, w, Options{}).Run(context.Background(), Plan{Axes: smallAxes(), WriteHeader: true})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 7)
	assert.Equal(t, "20;0.9;1;1000;unknown option -e", lines[2])
	assert.Equal(t, 2, summary.NonZeroExits)
	assert.Equal(t, 6, summary.Completed)
}

func TestRun_EmptyDiagnostic(t *testing.T) {
	w, path := newWriter(t)
	mock := &solver.MockInvoker{
		InvokeFunc: func(ctx context.Context, p grid.Point) (*solver.Result, error) {
			return &solver.Result{}, nil
		},
	}
	axes := grid.Axes{
		Temperatures:       []int{20},
		CoolingRatios:      []float64{0.9},
		EquilibriumLengths: []int{1},
		NoImproveCutoffs:   []int{1000},
		Trials:             1,
	}

	summary, err := NewRunner(mock, w, Options{}).Run(context.Background(), Plan{Axes: axes, WriteHeader: true})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, results.Header+"\n20;0.9;1;1000;\n", string(data))
	assert.Equal(t, 1, summary.EmptyDiagnostics)
}

// =============================================================================
// Fatal Conditions
// =============================================================================

func TestRun_MissingSolverLeavesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	instance := filepath.Join(dir, "instance.cnf")
	require.NoError(t, os.WriteFile(instance, []byte("p cnf 1 1\n1 0\n"), 0644))

	w, path := newWriter(t)
	inv := solver.NewDefaultInvoker(filepath.Join(dir, "no-such-solver"), instance)

	summary, err := NewRunner(inv, w, Options{}).Run(context.Background(), Plan{Axes: grid.DefaultAxes(), WriteHeader: true})

	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrResourceUnavailable))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Zero(t, summary.Completed)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, results.Header+"\n", string(data))
}

func TestRun_ResourceFailureMidSweep(t *testing.T) {
	w, path := newWriter(t)
	mock := &solver.MockInvoker{
		InvokeFunc: func(ctx context.Context, p grid.Point) (*solver.Result, error) {
			if p.Temperature == 100 {
				return nil, &solver.ResourceError{Resource: solver.ResourceInstance, Path: "gone.cnf", Err: fs.ErrNotExist}
			}
			return oneLine(ctx, p)
		},
	}

	summary, err := NewRunner(mock, w, Options{}).Run(context.Background(), Plan{Axes: smallAxes(), WriteHeader: true})

	assert.ErrorIs(t, err, solver.ErrResourceUnavailable)
	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 4, mock.CallCount(), "no run after the fatal one")
	require.NoError(t, w.Close())
	assert.Len(t, readLines(t, path), 4)
}

type failingWriter struct {
	headerErr error
	rowErr    error
	rows      int
}

func (f *failingWriter) WriteHeader() error { return f.headerErr }

func (f *failingWriter) AppendRow(grid.Point, []byte) error {
	if f.rowErr != nil {
		return f.rowErr
	}
	f.rows++
	return nil
}

func TestRun_WriteFailuresAreFatal(t *testing.T) {
	diskFull := errors.New("no space left on device")

	t.Run("header", func(t *testing.T) {
		mock := &solver.MockInvoker{InvokeFunc: oneLine}
		_, err := NewRunner(mock, &failingWriter{headerErr: diskFull}, Options{}).
			Run(context.Background(), Plan{Axes: smallAxes(), WriteHeader: true})
		assert.ErrorIs(t, err, diskFull)
		assert.Zero(t, mock.CallCount())
	})

	t.Run("row", func(t *testing.T) {
		mock := &solver.MockInvoker{InvokeFunc: oneLine}
		summary, err := NewRunner(mock, &failingWriter{rowErr: diskFull}, Options{}).
			Run(context.Background(), Plan{Axes: smallAxes(), WriteHeader: true})
		assert.ErrorIs(t, err, diskFull)
		assert.Equal(t, 1, mock.CallCount())
		assert.Zero(t, summary.Completed)
	})
}

// =============================================================================
// Resume and Interruption
// =============================================================================

func TestRun_StartOffset(t *testing.T) {
	fw := &failingWriter{}
	mock := &solver.MockInvoker{InvokeFunc: oneLine}
	axes := smallAxes()

	summary, err := NewRunner(mock, fw, Options{}).Run(context.Background(), Plan{Axes: axes, Start: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, []grid.Point{axes.At(4), axes.At(5)}, mock.Calls)
}

func TestRun_StartBeyondGrid(t *testing.T) {
	mock := &solver.MockInvoker{InvokeFunc: oneLine}
	summary, err := NewRunner(mock, &failingWriter{}, Options{}).
		Run(context.Background(), Plan{Axes: smallAxes(), Start: 99})
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Skipped)
	assert.Zero(t, summary.Completed)
	assert.Zero(t, mock.CallCount())
}

func TestRun_InterruptFinishesCurrentRun(t *testing.T) {
	w, path := newWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := &solver.MockInvoker{
		InvokeFunc: func(c context.Context, p grid.Point) (*solver.Result, error) {
			if p.Trial == 2 {
				cancel()
			}
			return oneLine(c, p)
		},
	}

	summary, err := NewRunner(mock, w, Options{}).Run(ctx, Plan{Axes: smallAxes(), WriteHeader: true})

	assert.ErrorIs(t, err, ErrInterrupted)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 2, mock.CallCount())
	require.NoError(t, w.Close())
	assert.Len(t, readLines(t, path), 3, "header plus the two finished runs")
}

// =============================================================================
// Observability
// =============================================================================

func TestRun_ProgressAndLogs(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &logs})

	var progress []int
	mock := &solver.MockInvoker{
		InvokeFunc: func(ctx context.Context, p grid.Point) (*solver.Result, error) {
			if p.Trial == 3 {
				return &solver.Result{ExitCode: 2}, nil
			}
			return oneLine(ctx, p)
		},
	}

	_, err := NewRunner(mock, &failingWriter{}, Options{
		Logger:   logger,
		Progress: func(done, total int) { progress = append(progress, done*100+total) },
	}).Run(context.Background(), Plan{RunID: "r1", Axes: smallAxes(), Start: 1})
	require.NoError(t, err)

	assert.Equal(t, []int{206, 306, 406, 506, 606}, progress)

	out := logs.String()
	assert.Contains(t, out, "sweep started")
	assert.Contains(t, out, "run_id=r1")
	assert.Contains(t, out, "solver run")
	assert.Contains(t, out, "solver exited non-zero")
	assert.Contains(t, out, "solver wrote no diagnostic")
	assert.Contains(t, out, "sweep finished")
}

func TestRun_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	mock := &solver.MockInvoker{InvokeFunc: oneLine}
	_, err := NewRunner(mock, &failingWriter{}, Options{Tracer: tp.Tracer("test")}).
		Run(context.Background(), Plan{Axes: smallAxes(), WriteHeader: true})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 7)

	root := spans[len(spans)-1]
	assert.Equal(t, "sweep", root.Name())
	for _, s := range spans[:6] {
		assert.Equal(t, "solver.run", s.Name())
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}
}
