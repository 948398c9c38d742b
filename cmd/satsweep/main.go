// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Command satsweep runs a parameter sweep of an external SAT solver.

For every tuple of the grid (temperature, cooling ratio, equilibrium length,
no-improvement cutoff, trial) it starts the solver once, streams the CNF
instance to its stdin and appends the solver's stderr line to a
semicolon-delimited results file.

	satsweep run --solver ./gsat --instance uf100-430.cnf --output results.csv
	satsweep run --config sweep.yaml --resume
	satsweep grid --count
	satsweep inspect uf100-430.cnf --solve
	satsweep config init sweep.yaml

Exit codes: 0 success, 1 failure, 2 usage or configuration error,
3 solver, instance or results file unavailable, 130 interrupted.
*/
package main

import (
	"os"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	os.Exit(execute(os.Stderr))
}
