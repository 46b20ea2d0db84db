package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory exporter for the test.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		SetTracerProvider(nil)
	})
	return exporter
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartCommandSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartCommandSpan(context.Background(), "plans.kill")
	RecordSuccess(span, attribute.String("plan_id", "p-1"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "command.plans.kill" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if v, ok := attr(spans[0].Attributes, "plan_id"); !ok || v.AsString() != "p-1" {
		t.Errorf("plan_id attribute missing")
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestStartRequestSpanRecordsStatus(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartRequestSpan(context.Background(), "get_plan", "GET", "/api/plans/p", "req-1")
	RecordStatus(span, 503)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if v, _ := attr(spans[0].Attributes, "http.status_code"); v.AsInt64() != 503 {
		t.Errorf("status attribute = %v", v.AsInt64())
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status for 503")
	}
	if v, _ := attr(spans[0].Attributes, "request_id"); v.AsString() != "req-1" {
		t.Errorf("request_id = %q", v.AsString())
	}
}

func TestRecordError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartResyncSpan(context.Background(), "p", "node_started")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("status description = %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected 1 exception event, got %d", len(spans[0].Events))
	}
}
