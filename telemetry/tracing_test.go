package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := InitTracing("stream-bot", "test")
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	shutdown()
	if IsTracingEnabled() {
		t.Error("tracing should be disabled without endpoint")
	}
}

func TestStartSpanAddsCorrelation(t *testing.T) {
	rec := withRecorder(t)

	ctx := WithCorrelation(context.Background(), "corr-1")
	_, span := StartSpan(ctx, "command", CommandAttrs("chan", "!dice", "alice")...)
	RecordError(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	got := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	if got["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %q", got["correlation_id"])
	}
	if got["chat.command"] != "!dice" {
		t.Errorf("chat.command = %q", got["chat.command"])
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status().Code)
	}
}

func TestSetHTTPStatus(t *testing.T) {
	rec := withRecorder(t)

	_, ok := StartSpan(context.Background(), "ok", HTTPAttrs("GET", "/healthz")...)
	SetHTTPStatus(ok, 200)
	ok.End()
	_, bad := StartSpan(context.Background(), "bad", HTTPAttrs("GET", "/readyz")...)
	SetHTTPStatus(bad, 503)
	bad.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("200 response marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("503 response not marked as error")
	}
}
