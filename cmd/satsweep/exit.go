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
	"errors"
	"fmt"
	"io"

	"github.com/AleutianAI/satsweep/cmd/satsweep/config"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/infra/process"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/results"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/solver"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/sweep"
	"github.com/AleutianAI/satsweep/pkg/ux"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnavailable = 3
	ExitInterrupted = 130
)

// CommandError attaches an exit code to an error returned from a command.
type CommandError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// usageError marks err as a usage or configuration mistake.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Code: ExitUsage, Err: err}
}

// exitCodeFor maps an error returned by a command to a process exit code.
//
// # Description
//
// An explicit CommandError wins. Otherwise known sentinel errors from the
// sweep packages are mapped, and anything else is a generic failure.
//
// # Examples
//
//	exitCodeFor(nil)                           // 0
//	exitCodeFor(sweep.ErrInterrupted)          // 130
//	exitCodeFor(solver.ErrResourceUnavailable) // 3
func exitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}

	var lockErr *process.ErrLockHeld
	switch {
	case errors.Is(err, sweep.ErrInterrupted):
		return ExitInterrupted
	case errors.Is(err, solver.ErrResourceUnavailable), errors.As(err, &lockErr):
		return ExitUnavailable
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, results.ErrResultsExist),
		errors.Is(err, results.ErrHeaderMismatch),
		errors.Is(err, results.ErrGridMismatch):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// execute runs the root command and reports any error on stderr.
func execute(stderr io.Writer) int {
	err := rootCmd.Execute()
	code := exitCodeFor(err)
	if err != nil {
		p := ux.NewPrinter(stderr)
		if code == ExitInterrupted {
			p.Warning(err.Error())
		} else {
			p.Error(err.Error())
		}
	}
	return code
}
