// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service", ExporterType: "grpc"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of noop provider: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test-service", ExporterType: "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		desc := samplerFor(tt.rate).Description()
		if !strings.Contains(desc, tt.want) {
			t.Errorf("samplerFor(%v) = %q, want it to mention %q", tt.rate, desc, tt.want)
		}
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("t").Start(context.Background(), "op")

	RecordError(span, nil, "ignored")
	RecordError(span, errors.New("boom"), "NOT_FOUND")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	found := false
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key(ErrorTypeKey) && kv.Value.AsString() == "NOT_FOUND" {
			found = true
		}
	}
	if !found {
		t.Errorf("error.type attribute missing: %v", s.Attributes())
	}
}

func TestCatalogAttributes(t *testing.T) {
	attrs := CatalogAttributes("title", 0, 24, "")
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes without search, got %d", len(attrs))
	}
	attrs = CatalogAttributes("title", 0, 24, "heat")
	if len(attrs) != 4 {
		t.Fatalf("expected search flag attribute, got %d", len(attrs))
	}
}
