// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/telemetry"
)

// SupportedMajor is the configuration schema major version this build reads.
const SupportedMajor = "v1"

// SweepConfig is the on-disk configuration of a sweep.
type SweepConfig struct {
	// Version is the schema version, e.g. "v1.0.0".
	Version string `yaml:"version" validate:"required,schemaversion"`

	Solver   string `yaml:"solver" validate:"required"`   // e.g. ./gsat
	Instance string `yaml:"instance" validate:"required"` // e.g. uf100-430.cnf
	Output   string `yaml:"output" validate:"required"`   // e.g. results.csv
	Trials   int    `yaml:"trials" validate:"gte=1"`

	Axes    AxesConfig    `yaml:"axes"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Archive ArchiveConfig `yaml:"archive"`
}

// AxesConfig lists the values of each swept parameter, in sweep order.
type AxesConfig struct {
	Temperature   []int     `yaml:"temperature" validate:"required,min=1,dive,gt=0"`
	Cooling       []float64 `yaml:"cooling" validate:"required,min=1,dive,gt=0,lt=1"`
	Equilibrium   []int     `yaml:"equilibrium" validate:"required,min=1,dive,gt=0"`
	NoImprovement []int     `yaml:"no_improvement" validate:"required,min=1,dive,gt=0"`
}

// LoggingConfig controls the harness's own diagnostics. Solver output never
// goes through the logger.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn (or warning), error.
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`

	// JSON switches stderr logging from text to JSON.
	JSON bool `yaml:"json"`

	// Dir, when set, also receives a dated JSON log file.
	Dir string `yaml:"dir"`

	// Quiet silences stderr logging when Dir is set.
	Quiet bool `yaml:"quiet"`
}

// MetricsConfig controls the Prometheus textfile written at the end of a sweep.
type MetricsConfig struct {
	// Textfile is where the Prometheus textfile is written. Empty disables.
	Textfile string `yaml:"textfile"`
}

// TracingConfig selects where OpenTelemetry spans go.
type TracingConfig struct {
	// Exporter is none, stdout or otlp. "stdout" names the exporter; its
	// output goes to File, or stderr when File is empty.
	Exporter string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	File     string `yaml:"file"`

	// OTLPEndpoint is the collector's host:port, required for otlp.
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Exporter otlp"`
}

// ArchiveConfig uploads a finished sweep's files to Google Cloud Storage.
type ArchiveConfig struct {
	// Bucket enables archiving to gs://Bucket/Prefix/<run-id>/ when set.
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultConfig returns the reference sweep: 4x4x3x3 axes with 10 trials.
func DefaultConfig() SweepConfig {
	axes := grid.DefaultAxes()
	return SweepConfig{
		Version:  "v1.0.0",
		Solver:   "./solver",
		Instance: "instance.cnf",
		Output:   "results.csv",
		Trials:   axes.Trials,
		Axes: AxesConfig{
			Temperature:   axes.Temperatures,
			Cooling:       axes.CoolingRatios,
			Equilibrium:   axes.EquilibriumLengths,
			NoImprovement: axes.NoImproveCutoffs,
		},
		Logging: LoggingConfig{Level: "info"},
		Tracing: TracingConfig{Exporter: telemetry.ExporterNone},
	}
}

// GridAxes converts the configured axes into a grid.
func (c SweepConfig) GridAxes() grid.Axes {
	return grid.Axes{
		Temperatures:       c.Axes.Temperature,
		CoolingRatios:      c.Axes.Cooling,
		EquilibriumLengths: c.Axes.Equilibrium,
		NoImproveCutoffs:   c.Axes.NoImprovement,
		Trials:             c.Trials,
	}
}

// TelemetryConfig converts the tracing section for telemetry.Init.
func (c SweepConfig) TelemetryConfig(version string) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	tc.TraceExporter = c.Tracing.Exporter
	tc.TraceFile = c.Tracing.File
	if c.Tracing.OTLPEndpoint != "" {
		tc.OTLPEndpoint = c.Tracing.OTLPEndpoint
	}
	return tc
}
