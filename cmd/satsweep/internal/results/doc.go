// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results owns the append-only results file of a sweep.
//
// The file is semicolon-delimited text. Its first line is Header; every
// following line is one run:
//
//	T;C;equ;noimp;steps;last_change;last_improve;sat_cnt;clause_cnt;init_sat_cnt
//	20;0.9;1;1000;<solver stderr, verbatim>
//	20;0.9;1;1000;<solver stderr, verbatim>
//	...
//
// The writer only ever appends. It never truncates, rewrites or reorders, and
// it flushes each row to the operating system before returning so that a
// crash or interrupt loses at most the row being written.
//
// Next to the results file, "<file>.grid.yaml" records the axes the file was
// started with, so that a resume under a different grid is refused.
package results
