// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grid enumerates the parameter tuples of a sweep.
//
// A sweep is the Cartesian product of four tuning axes and a trial counter.
// Enumeration order is fixed and nested, outermost first:
//
//	Temperature ─▶ Cooling ─▶ Equilibrium ─▶ NoImprove ─▶ Trial (1..N)
//
// Every tuple has a stable index in [0, Size()). At decodes an index
// directly, so a sweep can start at any offset without replaying the
// prefix, and enumerating twice always yields the same sequence.
//
// # Thread Safety
//
// Axes is a value type and is never mutated by this package. Sequences
// returned by All and From may be ranged over concurrently.
package grid
