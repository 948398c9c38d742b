// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Invoker runs the solver once for a parameter tuple.
//
// # Description
//
// Implementations block until the solver has exited and return its
// diagnostic output untouched.
//
// # Inputs
//
//   - ctx: Carries tracing state. It is not used to cancel a running solver.
//   - p: The tuple to pass as flags. p.Trial is not passed.
//
// # Outputs
//
//   - *Result: Exit status, stderr blob, stdout size and duration
//   - error: A *ResourceError when the instance or the binary is unusable;
//     other errors only for failures of the harness itself
//
// # Examples
//
//	res, err := inv.Invoke(ctx, axes.At(0))
//	if errors.Is(err, solver.ErrResourceUnavailable) {
//	    return err // fatal, stop the sweep
//	}
//	writer.AppendRow(p, res.Diagnostic)
type Invoker interface {
	Invoke(ctx context.Context, p grid.Point) (*Result, error)
}

// Result is the outcome of one solver run.
type Result struct {
	// ExitCode is the process exit status, or -1 if it was killed by a signal.
	ExitCode int

	// Diagnostic is everything the solver wrote to stderr, byte for byte.
	// Empty when the solver wrote nothing.
	Diagnostic []byte

	// StdoutBytes is how many bytes of stdout were read and thrown away.
	StdoutBytes int64

	// Duration is the wall-clock time from launch to exit.
	Duration time.Duration
}

// Args returns the command-line arguments for tuple p.
//
// The result is always "-T <T> -c <C> -n <equ> -b <noimp> -e". The trailing
// -e takes no value.
func Args(p grid.Point) []string {
	params := p.Params()
	return []string{
		"-T", params[0],
		"-c", params[1],
		"-n", params[2],
		"-b", params[3],
		"-e",
	}
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultInvoker runs a real solver binary with os/exec.
//
// It holds no per-run state and may be reused for every tuple of a sweep.
type DefaultInvoker struct {
	solverPath   string
	instancePath string
}

// NewDefaultInvoker creates an Invoker for the given binary and instance.
//
// # Description
//
// Neither path is checked here. Problems surface on the first Invoke as a
// *ResourceError, after the caller has had a chance to write the results
// header.
//
// # Inputs
//
//   - solverPath: Path to the solver executable. A bare name is looked up in PATH.
//   - instancePath: Path to the DIMACS CNF file streamed to every run.
//
// # Outputs
//
//   - *DefaultInvoker: Ready-to-use invoker
func NewDefaultInvoker(solverPath, instancePath string) *DefaultInvoker {
	return &DefaultInvoker{
		solverPath:   solverPath,
		instancePath: instancePath,
	}
}

// SolverPath returns the configured binary path.
func (inv *DefaultInvoker) SolverPath() string {
	return inv.solverPath
}

// InstancePath returns the configured instance path.
func (inv *DefaultInvoker) InstancePath() string {
	return inv.instancePath
}

// Invoke runs the solver once for p.
//
// The instance file is opened fresh for each run and handed to the process
// as its stdin descriptor, so the solver sees EOF exactly at the end of the
// file. It is closed on every path, including launch failure. The solver is
// started in a new process group and does not receive signals sent to the
// harness's group.
func (inv *DefaultInvoker) Invoke(ctx context.Context, p grid.Point) (*Result, error) {
	instance, err := os.Open(inv.instancePath)
	if err != nil {
		return nil, &ResourceError{Resource: ResourceInstance, Path: inv.instancePath, Err: err}
	}
	defer instance.Close()

	// exec.Command, not CommandContext: a running solver is never killed.
	// Its own process group keeps a terminal Ctrl-C away from it, so the
	// run in flight finishes normally while the sweep winds down.
	cmd := exec.Command(inv.solverPath, Args(p)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = instance

	var stderr bytes.Buffer
	var stdout byteCounter
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ResourceError{Resource: ResourceSolver, Path: inv.solverPath, Err: err}
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wait for solver: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		ExitCode:    exitCode,
		Diagnostic:  stderr.Bytes(),
		StdoutBytes: int64(stdout),
		Duration:    time.Since(start),
	}, nil
}

// byteCounter is an io.Writer that only counts.
type byteCounter int64

func (c *byteCounter) Write(p []byte) (int, error) {
	*c += byteCounter(len(p))
	return len(p), nil
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockInvoker is a test double for Invoker.
//
// Configure it by setting InvokeFunc before use. If InvokeFunc is nil and
// Invoke is called, it panics.
//
// # Examples
//
//	mock := &solver.MockInvoker{
//	    InvokeFunc: func(ctx context.Context, p grid.Point) (*solver.Result, error) {
//	        return &solver.Result{Diagnostic: []byte("1;2;3;4;5;6\n")}, nil
//	    },
//	}
type MockInvoker struct {
	// InvokeFunc is called when Invoke is invoked.
	InvokeFunc func(ctx context.Context, p grid.Point) (*Result, error)

	// Calls records every tuple passed to Invoke, in order.
	Calls []grid.Point

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// Invoke records the call and delegates to InvokeFunc.
func (m *MockInvoker) Invoke(ctx context.Context, p grid.Point) (*Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, p)
	m.mu.Unlock()

	if m.InvokeFunc == nil {
		panic("MockInvoker.InvokeFunc not set")
	}
	return m.InvokeFunc(ctx, p)
}

// CallCount returns how many times Invoke was called.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
