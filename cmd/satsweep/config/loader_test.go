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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "satsweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 1440, cfg.GridAxes().Size())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
solver: /opt/gsat/gsat
trials: 2
axes:
  temperature: [50]
tracing:
  exporter: stdout
  file: spans.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/gsat/gsat", cfg.Solver)
	assert.Equal(t, 2, cfg.Trials)
	assert.Equal(t, []int{50}, cfg.Axes.Temperature)
	assert.Equal(t, []float64{0.9, 0.95, 0.99, 0.999}, cfg.Axes.Cooling, "untouched keys keep defaults")
	assert.Equal(t, "results.csv", cfg.Output)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
	assert.Equal(t, 1*4*3*3*2, cfg.GridAxes().Size())
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
		want    string
	}{
		{"unknown key", "trails: 10\n", false, "trails"},
		{"bad yaml", "axes: [1, 2\n", false, "parse"},
		{"cooling out of range", "axes:\n  cooling: [0.9, 1.0]\n", true, "Axes.Cooling[1]"},
		{"zero trials", "trials: 0\n", true, "Trials"},
		{"empty axis", "axes:\n  equilibrium: []\n", true, "Axes.Equilibrium"},
		{"negative temperature", "axes:\n  temperature: [-5]\n", true, "Axes.Temperature[0]"},
		{"bad exporter", "tracing:\n  exporter: zipkin\n", true, "Tracing.Exporter"},
		{"otlp without endpoint", "tracing:\n  exporter: otlp\n", true, "Tracing.OTLPEndpoint is required"},
		{"bad log level", "logging:\n  level: loud\n", true, "Logging.Level"},
		{"major version", "version: v2.0.0\n", true, "major v1"},
		{"not semver", "version: \"1.0\"\n", true, "Version"},
		{"empty solver", "solver: \"\"\n", true, "Solver is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NotErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_AcceptsPatchVersions(t *testing.T) {
	cfg, err := Load(writeConfig(t, "version: v1.4.2\n"))
	require.NoError(t, err)
	assert.Equal(t, "v1.4.2", cfg.Version)
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "satsweep.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "axes")
	assert.NotContains(t, raw, "no_improvement", "nested keys are not top level")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "trials: 3\n")

	err := WriteDefault(path)
	assert.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trials: 3\n", string(data))
}

func TestTelemetryConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing = TracingConfig{Exporter: "otlp", OTLPEndpoint: "collector:4317"}

	tc := cfg.TelemetryConfig("1.2.3")
	assert.Equal(t, "otlp", tc.TraceExporter)
	assert.Equal(t, "collector:4317", tc.OTLPEndpoint)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, "satsweep", tc.ServiceName)
}

func TestLoad_LoggingSection(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
  dir: /var/log/satsweep
  quiet: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, LoggingConfig{Level: "warn", Dir: "/var/log/satsweep", Quiet: true}, cfg.Logging)
}
