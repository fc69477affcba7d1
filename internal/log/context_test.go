// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			requestID: "req-456",
			want:      "req-456",
		},
		{
			name:      "empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileIDFromContext(t *testing.T) {
	if got := ProfileIDFromContext(nil); got != "" { //nolint:staticcheck
		t.Errorf("ProfileIDFromContext(nil) = %q, want empty", got)
	}
	if got := ProfileIDFromContext(context.WithValue(context.Background(), profileIDKey, 42)); got != "" {
		t.Errorf("wrong type should be ignored, got %q", got)
	}
	ctx := ContextWithProfileID(context.Background(), "p-1")
	if got := ProfileIDFromContext(ctx); got != "p-1" {
		t.Errorf("ProfileIDFromContext() = %q, want p-1", got)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithProfileID(ctx, "profile-9")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["profile_id"] != "profile-9" {
		t.Errorf("profile_id = %v", entry["profile_id"])
	}
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("unexpected request_id field")
	}
}

func TestFromContextPrefersAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	attached := zerolog.New(&buf).With().Str("marker", "attached").Logger()
	ctx := attached.WithContext(context.Background())

	FromContext(ctx).Info().Msg("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["marker"] != "attached" {
		t.Errorf("expected attached logger to be used, got %v", entry)
	}
}

func TestWithComponentFromContextChainsLevels(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "svc-test"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-77")
	WithComponentFromContext(ctx, "catalog").Warn().Str(FieldEvent, "catalog.test").Msg("chained")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["component"] != "catalog" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["request_id"] != "req-77" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v", entry["level"])
	}
}
