// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/spaceagent/pkg/errors"
)

// ExecutionMetrics tracks plan runs, step outcomes, tool latency, model calls
// and typed errors. A nil *ExecutionMetrics is valid and records nothing.
type ExecutionMetrics struct {
	// planCounter counts plan executions by completion
	planCounter metric.Int64Counter

	// stepCounter counts steps by tool and final status
	stepCounter metric.Int64Counter

	// toolDuration records tool latency in milliseconds
	toolDuration metric.Float64Histogram

	// turnCounter counts turns by response type
	turnCounter metric.Int64Counter

	// errorCounter counts typed errors by code and component
	errorCounter metric.Int64Counter
}

// NewExecutionMetrics creates the instruments on the global meter provider.
func NewExecutionMetrics() (*ExecutionMetrics, error) {
	meter := otel.Meter("spaceagent/execution")

	planCounter, err := meter.Int64Counter(
		"spaceagent.plans.total",
		metric.WithDescription("Plan executions by completion"),
	)
	if err != nil {
		return nil, err
	}

	stepCounter, err := meter.Int64Counter(
		"spaceagent.steps.total",
		metric.WithDescription("Plan steps by tool and status"),
	)
	if err != nil {
		return nil, err
	}

	toolDuration, err := meter.Float64Histogram(
		"spaceagent.tool.duration",
		metric.WithDescription("Tool dispatch latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	turnCounter, err := meter.Int64Counter(
		"spaceagent.turns.total",
		metric.WithDescription("Turns by response type"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"spaceagent.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &ExecutionMetrics{
		planCounter:  planCounter,
		stepCounter:  stepCounter,
		toolDuration: toolDuration,
		turnCounter:  turnCounter,
		errorCounter: errorCounter,
	}, nil
}

// RecordPlan counts one plan execution.
func (m *ExecutionMetrics) RecordPlan(ctx context.Context, completed bool) {
	if m == nil {
		return
	}
	m.planCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrPlanCompleted, completed)))
}

// RecordStep counts one step with its final status and, for executed steps,
// the tool latency.
func (m *ExecutionMetrics) RecordStep(ctx context.Context, tool, status string, durationMs float64, executed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrToolName, tool),
		attribute.String(AttrStepStatus, status),
	)
	m.stepCounter.Add(ctx, 1, attrs)
	if executed {
		m.toolDuration.Record(ctx, durationMs, attrs)
	}
}

// RecordTurn counts one turn by response type.
func (m *ExecutionMetrics) RecordTurn(ctx context.Context, responseType string) {
	if m == nil {
		return
	}
	m.turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTurnType, responseType)))
}

// RecordError counts err under component. Untyped errors are counted as UNKNOWN.
func (m *ExecutionMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	code := "UNKNOWN"
	recoverable := "unknown"
	if c := errors.CodeOf(err); c != "" {
		code = string(c)
		recoverable = errors.As(err).RecoverableString()
	}
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", code),
			attribute.String("component", component),
			attribute.String("recoverable", recoverable),
		),
	)
}
