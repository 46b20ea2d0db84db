package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan creates a span for a CLI command execution.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "node.approve")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("commands")
	ctx, span := tracer.Start(ctx, "command."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)
	return ctx, span
}

// StartRequestSpan creates a client span for one REST call to the engine.
func StartRequestSpan(ctx context.Context, operation, method, path, requestID string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("api")
	ctx, span := tracer.Start(ctx, "api."+operation, trace.WithSpanKind(trace.SpanKindClient))

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.target", path),
		attribute.String("request_id", requestID),
		attribute.String("component", "api"),
	)
	return ctx, span
}

// StartResyncSpan creates a span for an event-triggered plan refresh.
func StartResyncSpan(ctx context.Context, planID, eventType string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("session")
	ctx, span := tracer.Start(ctx, "session.resync")

	span.SetAttributes(
		attribute.String("plan_id", planID),
		attribute.String("event", eventType),
		attribute.String("component", "session"),
	)
	return ctx, span
}

// RecordStatus attaches an HTTP status code and marks 4xx/5xx as errors.
func RecordStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}
