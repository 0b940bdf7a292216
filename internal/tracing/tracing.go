// Package tracing provides OpenTelemetry span helpers for the tile server.
//
// Unlike a typical exporter-wired tracing package, there is no package-level
// global tracer here: callers hold their own trace.Tracer (normally one
// pulled from a *sdktrace.TracerProvider they built and registered) and pass
// it explicitly into StartSpan. NoopTracer is provided for callers that want
// tracing to compile away to nothing without special-casing a nil check at
// every call site.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/chartkit/enctiles"

// NoopTracer is a trace.Tracer whose spans never record, for callers that
// have not wired a real TracerProvider.
var NoopTracer trace.Tracer = noop.NewTracerProvider().Tracer(tracerName)

// NewTracerProvider builds a batching TracerProvider over exporter, always
// sampling. Which exporter to batch to (OTLP, stdout, a test collector) is a
// deployment choice left to the caller; this package only shapes the
// provider and hands back its Tracer plus a shutdown func.
func NewTracerProvider(exporter sdktrace.SpanExporter) (trace.Tracer, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp.Tracer(tracerName), tp.Shutdown
}

// StartSpan starts a new span on tracer, or on NoopTracer if tracer is nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = NoopTracer
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on the span carried by ctx, if any, and marks the
// span's status as an error.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatus sets the status of the span carried by ctx.
func SetStatus(ctx context.Context, code codes.Code, description string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(code, description)
	}
}

// AddEvent adds a named event to the span carried by ctx.
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, opts...)
	}
}

// SetAttributes sets attributes on the span carried by ctx.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}
