// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up OpenTelemetry tracing for a sweep.
//
// A sweep produces one "sweep" span with one "solver.run" child per tuple.
// Spans go nowhere by default; the stdout exporter writes them as JSON to a
// file or stderr, and the otlp exporter sends them to a collector over gRPC.
// Stdout is left to the run summary.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names accepted by Config.TraceExporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracerName is the instrumentation scope used by the sweep.
const TracerName = "github.com/AleutianAI/satsweep"

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unrecognised exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config controls tracing.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string

	// ServiceVersion is recorded as service.version.
	ServiceVersion string

	// TraceExporter is "none", "stdout" or "otlp". Empty means "none".
	TraceExporter string

	// TraceFile receives stdout-exporter output. Empty means TraceOutput.
	TraceFile string

	// TraceOutput receives stdout-exporter output when TraceFile is empty.
	// Nil means os.Stderr.
	TraceOutput io.Writer

	// OTLPEndpoint is the collector's host:port for the otlp exporter.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for the otlp exporter.
	OTLPInsecure bool
}

// DefaultConfig returns a configuration with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "satsweep",
		ServiceVersion: "1.0.0",
		TraceExporter:  ExporterNone,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

// Init installs a global TracerProvider for cfg.
//
// # Description
//
// With exporter "none" nothing is installed and otel's no-op provider stays
// in place. Otherwise a batching provider that samples every span is set as
// the global provider.
//
// # Inputs
//
//   - ctx: Used to create the otlp exporter
//   - cfg: Tracing configuration
//
// # Outputs
//
//   - shutdown: Flushes pending spans and releases the exporter. Always
//     non-nil on success and must be called.
//   - error: ErrNilContext, ErrUnknownExporter, or an exporter setup failure
//
// # Examples
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init tracing: %w", err)
//	}
//	defer shutdown(context.Background())
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	noop := func(context.Context) error { return nil }

	exporterName := cfg.TraceExporter
	if exporterName == "" {
		exporterName = ExporterNone
	}
	if exporterName == ExporterNone {
		return noop, nil
	}

	exporter, closer, err := newExporter(ctx, exporterName, cfg)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		errs := []error{tp.Shutdown(ctx)}
		if closer != nil {
			errs = append(errs, closer.Close())
		}
		return errors.Join(errs...)
	}, nil
}

// Tracer returns the sweep's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// newExporter builds the span exporter. closer is non-nil when the exporter
// owns a file that must be closed after the provider shuts down.
func newExporter(ctx context.Context, name string, cfg Config) (sdktrace.SpanExporter, io.Closer, error) {
	switch name {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		return exporter, nil, nil

	case ExporterStdout:
		out := cfg.TraceOutput
		if out == nil {
			out = os.Stderr
		}
		var closer io.Closer
		if cfg.TraceFile != "" {
			f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, nil, fmt.Errorf("open trace file: %w", err)
			}
			out, closer = f, f
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exporter, closer, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, name)
	}
}
