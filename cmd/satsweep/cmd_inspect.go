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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/instance"
	"github.com/AleutianAI/satsweep/pkg/ux"
)

func runInspect(cmd *cobra.Command, args []string) error {
	desc, err := instance.Describe(args[0], instance.Options{Solve: inspectSolve})
	if err != nil {
		return err
	}
	printInspection(ux.NewPrinter(cmd.OutOrStdout()), desc)
	return nil
}

func printInspection(p *ux.Printer, d *instance.Description) {
	fields := []ux.Field{
		{Key: "path", Label: "Path", Value: d.Path},
		{Key: "bytes", Label: "Size (bytes)", Value: strconv.FormatInt(d.Size, 10)},
		{Key: "declared_vars", Label: "Declared vars", Value: strconv.Itoa(d.DeclaredVars)},
		{Key: "declared_clauses", Label: "Declared clauses", Value: strconv.Itoa(d.DeclaredClauses)},
		{Key: "vars", Label: "Vars", Value: strconv.Itoa(d.Vars)},
		{Key: "clauses", Label: "Clauses", Value: strconv.Itoa(d.Clauses)},
		{Key: "units", Label: "Unit clauses", Value: strconv.Itoa(d.Units)},
		{Key: "trivially_unsat", Label: "Trivially UNSAT", Value: strconv.FormatBool(d.TriviallyUnsat)},
	}
	if d.Solved {
		status := "UNSAT"
		if d.Satisfiable {
			status = "SAT"
		}
		fields = append(fields, ux.Field{Key: "status", Label: "Status", Value: status})
	}
	p.Summary("Instance", fields)

	if d.Mismatch() {
		p.Warning("parsed counts differ from the problem line")
	}
}
