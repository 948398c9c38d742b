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
	"github.com/spf13/cobra"
)

var (
	// run flags
	configPath    string
	solverPath    string
	instancePath  string
	outputPath    string
	trials        int
	resume        bool
	logLevel      string
	logJSON       bool
	logDir        string
	quiet         bool
	metricsFile   string
	traceExporter string
	traceFile     string
	otlpEndpoint  string
	noPreflight   bool

	// grid flags
	gridCount bool

	// inspect flags
	inspectSolve bool
)

var (
	rootCmd = &cobra.Command{
		Use:   "satsweep",
		Short: "Sweep an external SAT solver across a parameter grid",
		Long: `satsweep runs a stochastic local-search SAT solver once per point of a
temperature x cooling x equilibrium x no-improvement grid, repeated for a
number of trials, and appends the solver's diagnostic line for every run to
a semicolon-delimited results file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the sweep and append one row per solver run",
		Args:  cobra.NoArgs,
		RunE:  runSweep, // Defined in cmd_run.go
	}

	gridCmd = &cobra.Command{
		Use:   "grid",
		Short: "Print the parameter tuples without running anything",
		Args:  cobra.NoArgs,
		RunE:  runGrid, // Defined in cmd_grid.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect <instance.cnf>",
		Short: "Parse a DIMACS CNF instance and report its dimensions",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect, // Defined in cmd_inspect.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage sweep configuration files",
	}
	configInitCmd = &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to a new file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
)

func init() {
	rootCmd.Version = Version

	rootCmd.AddCommand(runCmd)
	addConfigFlag(runCmd)
	addRunFlags(runCmd)

	rootCmd.AddCommand(gridCmd)
	addConfigFlag(gridCmd)
	gridCmd.Flags().IntVar(&trials, "trials", 0, "Override the number of trials per parameter tuple")
	gridCmd.Flags().BoolVar(&gridCount, "count", false, "Print only the number of tuples")

	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectSolve, "solve", false,
		"Also solve the instance with the built-in CDCL solver to report SAT/UNSAT")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML sweep configuration")
}

// addRunFlags registers the flags that override configuration values.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&solverPath, "solver", "", "Solver executable")
	f.StringVar(&instancePath, "instance", "", "DIMACS CNF instance streamed to every run")
	f.StringVarP(&outputPath, "output", "o", "", "Results file")
	f.IntVar(&trials, "trials", 0, "Trials per parameter tuple")
	f.BoolVar(&resume, "resume", false,
		"Continue an existing results file after its last row; the grid must match the one recorded in <output>.grid.yaml")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.BoolVar(&logJSON, "log-json", false, "Log JSON to stderr instead of text")
	f.StringVar(&logDir, "log-dir", "", "Also write JSON logs to a dated file in this directory")
	f.BoolVarP(&quiet, "quiet", "q", false, "Log only to --log-dir, not stderr")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when the sweep ends")
	f.StringVar(&traceExporter, "trace-exporter", "", "Trace exporter: none, stdout, otlp")
	f.StringVar(&traceFile, "trace-file", "", "File for the stdout trace exporter (default stderr)")
	f.StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP collector host:port for the otlp exporter")
	f.BoolVar(&noPreflight, "no-preflight", false, "Skip parsing the instance before the sweep")
}
