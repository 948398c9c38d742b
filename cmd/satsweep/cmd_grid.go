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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/satsweep/cmd/satsweep/config"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/results"
)

// runGrid prints the tuples a sweep with the same configuration would run.
func runGrid(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError(err)
	}
	if cmd.Flags().Changed("trials") {
		if trials < 1 {
			return usageError(fmt.Errorf("--trials must be at least 1, got %d", trials))
		}
		cfg.Trials = trials
	}
	return printGrid(cmd.OutOrStdout(), cfg.GridAxes(), gridCount)
}

// printGrid writes "index<TAB>trial<TAB>prefix" per tuple, or only the
// tuple count. The prefix is exactly what the results row starts with.
func printGrid(w io.Writer, axes grid.Axes, countOnly bool) error {
	if countOnly {
		_, err := fmt.Fprintln(w, axes.Size())
		return err
	}
	for i, p := range axes.All() {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\n", i, p.Trial, results.Prefix(p)); err != nil {
			return err
		}
	}
	return nil
}
