package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	agenterrors "github.com/jllopis/spaceagent/pkg/errors"
)

func TestInitNone(t *testing.T) {
	shutdown, err := InitWithConfig("test-service", "v0.0.1", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitWithConfig("test-service", "v0.0.1", Config{Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := InitWithConfig("svc", "v0", Config{Exporter: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
	if _, err := InitWithConfig("svc", "v0", Config{Exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for otlp without endpoint")
	}
}

func TestLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("expected trace_id in record, got %v", record)
	}
	if record["span_id"] == nil {
		t.Fatalf("expected span_id in record")
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLogger(&buf, "warn", "text"), "planner")
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "component=planner") {
		t.Fatalf("expected component attribute, got %q", out)
	}
}

func TestLeveledLoggerFollowsLevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(ParseLevel("error"))
	logger := NewLeveledLogger(&buf, level, "json")
	logger.Warn("before")
	level.Set(ParseLevel("DEBUG"))
	logger.Debug("after")
	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("level change not applied, got %q", out)
	}
	if ParseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("unknown level should map to info")
	}
}

func TestExecutionMetricsNilSafe(t *testing.T) {
	var m *ExecutionMetrics
	ctx := context.Background()
	m.RecordPlan(ctx, true)
	m.RecordStep(ctx, "t", "succeeded", 1, true)
	m.RecordTurn(ctx, "plan")
	m.RecordError(ctx, errors.New("x"), "planner")
}

func TestExecutionMetricsRecord(t *testing.T) {
	m, err := NewExecutionMetrics()
	if err != nil {
		t.Fatalf("NewExecutionMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordPlan(ctx, false)
	m.RecordStep(ctx, "signal_decoder-decode_signal", "failed", 3.2, true)
	m.RecordStep(ctx, "space_calculator-calculate_gravity", "skipped", 0, false)
	m.RecordTurn(ctx, "answer")
	m.RecordError(ctx, agenterrors.New(agenterrors.CodeLLMError, "down", nil), "orchestrator")
	m.RecordError(ctx, nil, "orchestrator")
}

func TestAttributes(t *testing.T) {
	attrs := ToolResultAttributes(true, 12, strings.Repeat("x", 20), 10)
	found := false
	for _, a := range attrs {
		if a.Key == attribute.Key(AttrToolResult) {
			found = true
			if a.Value.AsString() != strings.Repeat("x", 10)+"..." {
				t.Fatalf("expected truncated result, got %q", a.Value.AsString())
			}
		}
	}
	if !found {
		t.Fatalf("expected result attribute")
	}
	for _, tt := range []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"unbounded", 0, "unbounded"},
		{"ñandú", 2, "ñ..."},
		{"ñandú", 1, "..."},
	} {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
	if got := len(LLMUsageAttributes(0, 0)); got != 0 {
		t.Fatalf("expected no usage attributes, got %d", got)
	}
	if got := len(PlanAttributes("", "run", 2)); got != 2 {
		t.Fatalf("expected plan id omitted, got %d attributes", got)
	}
}
