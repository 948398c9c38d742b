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
	"errors"
	"fmt"
)

// ErrResourceUnavailable is matched by every error that stops a sweep because
// the solver binary or the instance file cannot be used.
var ErrResourceUnavailable = errors.New("resource unavailable")

// Resource names carried by ResourceError.
const (
	ResourceSolver   = "solver"
	ResourceInstance = "instance"
)

// ResourceError reports that the instance could not be opened or the solver
// could not be launched.
//
// It matches ErrResourceUnavailable with errors.Is and unwraps to the
// underlying OS error, so callers can also test for fs.ErrNotExist or
// fs.ErrPermission.
type ResourceError struct {
	// Resource is ResourceSolver or ResourceInstance.
	Resource string

	// Path is the file that could not be used.
	Path string

	// Err is the underlying error from os or os/exec.
	Err error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s unavailable (%s): %v", e.Resource, e.Path, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrResourceUnavailable.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResourceUnavailable
}
