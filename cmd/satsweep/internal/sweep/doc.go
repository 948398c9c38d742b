// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep drives the solver over every tuple of a grid and records
// one row per run.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                          Runner.Run                          │
//	├──────────────────────────────────────────────────────────────┤
//	│                                                              │
//	│  ┌────────────┐    ┌────────────────┐    ┌────────────────┐  │
//	│  │ grid.Axes  │───▶│ solver.Invoker │───▶│   RowWriter    │  │
//	│  │  From(i)   │    │  Invoke(ctx,p) │    │ AppendRow(p,b) │  │
//	│  └────────────┘    └────────────────┘    └────────────────┘  │
//	│        ▲                                          │          │
//	│        └──────────── next tuple ◀─────────────────┘          │
//	│                                                              │
//	└──────────────────────────────────────────────────────────────┘
//
// Runs are strictly sequential: the next solver starts only after the
// previous one has exited and its row is on disk. A run that exits non-zero
// or prints nothing is still recorded. Only an unusable instance or solver
// binary, or a failing results file, stops the sweep.
//
// Cancellation of the context passed to Run is observed between runs. The
// solver that is running when it happens is allowed to finish and its row is
// written before Run returns ErrInterrupted.
package sweep
