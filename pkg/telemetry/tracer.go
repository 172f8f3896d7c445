// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package telemetry provides opt-in OpenTelemetry tracing for pipeline runs.

Two implementations sit behind one interface:

  - NopTracer (default): no spans, no files, zero overhead
  - StdoutTracer: exports spans as JSON lines to a file in the run's
    output directory via the stdouttrace exporter

There is no collector assumption. A batch CLI run produces a local
span file that can be inspected directly or fed to tooling later.
Phase runners open one span per phase; the oracle gateway opens one
per request when a span context is present.
*/
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer abstracts span creation so phase code can trace without
// caring whether export is enabled.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
type Tracer interface {
	// StartSpan creates a span with the given name and attributes.
	// The returned finish function ends the span; pass nil for
	// success or an error to record a failure status.
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error))

	// TraceID returns the W3C trace ID from the context's span, or
	// "" when tracing is off or no span is active.
	TraceID(ctx context.Context) string

	// Shutdown flushes pending spans and releases resources.
	Shutdown(ctx context.Context) error
}

// =============================================================================
// NopTracer (default)
// =============================================================================

// NopTracer satisfies Tracer without producing anything.
type NopTracer struct{}

// NewNopTracer returns a tracer that discards all spans.
func NewNopTracer() *NopTracer {
	return &NopTracer{}
}

// StartSpan returns the context unchanged and a no-op finish.
func (t *NopTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// TraceID always returns "".
func (t *NopTracer) TraceID(ctx context.Context) string {
	return ""
}

// Shutdown has nothing to flush.
func (t *NopTracer) Shutdown(ctx context.Context) error {
	return nil
}

// =============================================================================
// StdoutTracer (enabled with --trace)
// =============================================================================

// StdoutTracer exports spans as JSON to a local writer.
type StdoutTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	closer   io.Closer
}

// Config configures the StdoutTracer.
type Config struct {
	// ServiceName is the service identifier in span resources.
	// Default: "diyrepair"
	ServiceName string

	// Path is the span output file. Created (truncated) on start.
	Path string

	// Writer overrides Path when non-nil; used by tests.
	Writer io.Writer
}

// NewStdoutTracer creates a tracer exporting spans to a local file.
func NewStdoutTracer(ctx context.Context, cfg Config) (*StdoutTracer, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "diyrepair"
	}

	var w io.Writer
	var closer io.Closer
	switch {
	case cfg.Writer != nil:
		w = cfg.Writer
	case cfg.Path != "":
		f, err := os.Create(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create span file: %w", err)
		}
		w = f
		closer = f
	default:
		w = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
		),
	)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &StdoutTracer{
		tracer:   provider.Tracer(cfg.ServiceName),
		provider: provider,
		closer:   closer,
	}, nil
}

// StartSpan creates an exported span carrying the given attributes.
func (t *StdoutTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(otelAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	finish := func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
	return ctx, finish
}

// TraceID extracts the trace ID from the span in context.
func (t *StdoutTracer) TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	id := span.SpanContext().TraceID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}

// Shutdown flushes spans and closes the span file.
func (t *StdoutTracer) Shutdown(ctx context.Context) error {
	err := t.provider.Shutdown(ctx)
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Compile-time interface compliance checks.
var _ Tracer = (*NopTracer)(nil)
var _ Tracer = (*StdoutTracer)(nil)
