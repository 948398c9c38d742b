// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package solver runs the external SAT solver for one parameter tuple.
//
// Each invocation opens the instance file, starts the solver with the tuple
// encoded as flags, streams the instance to its stdin and blocks until the
// process exits:
//
//	instance.cnf ──stdin──▶ solver -T 20 -c 0.9 -n 1 -b 1000 -e
//	                              │            │
//	                           stdout        stderr
//	                         (counted)   (returned verbatim)
//
// The stderr blob is never parsed or validated. A non-zero exit status is
// recorded in the Result and is not an error. Only failing to open the
// instance or to launch the binary is, and both match ErrResourceUnavailable.
//
// The harness never imposes a timeout and never kills a running solver.
package solver
