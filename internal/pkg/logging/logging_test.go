package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_StampsServiceAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "api", "info", "json")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.InfoContext(ctx, "map session opened", "session", "s1")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["service"] != "api" {
		t.Errorf("expected service api, got %v", rec["service"])
	}
	if rec["trace_id"] != sc.TraceID().String() {
		t.Errorf("expected trace_id %s, got %v", sc.TraceID(), rec["trace_id"])
	}
	if rec["session"] != "s1" {
		t.Errorf("expected session s1, got %v", rec["session"])
	}
}

func TestNew_NoSpanNoTraceID(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "tapsink", "debug", "json").Debug("idle")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Error("trace_id must be absent without a span")
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "api", "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn, got %q", buf.String())
	}
}
