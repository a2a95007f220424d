// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs conversational turns: the model either answers
// directly or returns a plan, which is executed and then turned into an
// answer together with a description of what ran.
package orchestrator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/spaceagent/pkg/errors"
	"github.com/jllopis/spaceagent/pkg/llm"
	"github.com/jllopis/spaceagent/pkg/planner"
	"github.com/jllopis/spaceagent/pkg/telemetry"
	"github.com/jllopis/spaceagent/pkg/tool"
)

// TurnState is a state of the turn state machine.
type TurnState string

const (
	StateReceived            TurnState = "received"
	StatePlanningOrAnswering TurnState = "planning_or_answering"
	StateAnswered            TurnState = "answered"
	StatePlanReceived        TurnState = "plan_received"
	StateExecuting           TurnState = "executing"
	StateSynthesizing        TurnState = "synthesizing"
)

// DefaultAgentName is used in prompts when WithAgentName is not given.
const DefaultAgentName = "Navigator"

// Executor runs a validated plan. *planner.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, plan *planner.Plan) (*planner.ExecutionResult, error)
}

// StateHook observes turn state transitions.
type StateHook func(ctx context.Context, turnID string, state TurnState)

// Orchestrator drives one turn at a time per call; it holds no per-turn
// state and may serve concurrent calls.
type Orchestrator struct {
	provider    llm.Provider
	catalog     *tool.Catalog
	executor    Executor
	synthesizer Synthesizer

	model       string
	temperature float64
	maxTokens   int
	agentName   string

	logger  *slog.Logger
	metrics *telemetry.ExecutionMetrics
	hook    StateHook
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel sets the model name sent with every request.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// WithMaxTokens bounds the model reply length.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithAgentName sets the name the model is told it has.
func WithAgentName(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.agentName = name
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records turn and error metrics.
func WithMetrics(m *telemetry.ExecutionMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSynthesizer replaces the model call that answers after a plan ran.
func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) { o.synthesizer = s }
}

// WithStateHook sets a hook called on every turn state transition.
func WithStateHook(h StateHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// WithClock sets the time source used for the prompt date.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an Orchestrator planning over catalog and running plans with
// executor.
func New(provider llm.Provider, catalog *tool.Catalog, executor Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		catalog:   catalog,
		executor:  executor,
		agentName: DefaultAgentName,
		logger:    slog.Default(),
		tracer:    otel.Tracer("spaceagent/orchestrator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.synthesizer == nil {
		o.synthesizer = modelSynthesizer{o: o}
	}
	o.logger = telemetry.Component(o.logger, "orchestrator")
	return o
}

// Predict runs a turn for the content of the first message.
func (o *Orchestrator) Predict(ctx context.Context, messages []llm.Message) *Response {
	var query string
	if len(messages) > 0 {
		query = messages[0].Content
	}
	return o.Process(ctx, query)
}

// Process runs one turn. It never fails: model and plan errors come back as
// answer responses whose message carries the error.
func (o *Orchestrator) Process(ctx context.Context, query string) *Response {
	turnID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Process",
		trace.WithAttributes(telemetry.TurnAttributes(turnID, query)...))
	defer span.End()
	t := &turn{o: o, id: turnID, span: span, logger: o.logger.With("turn_id", turnID)}

	resp := t.run(ctx, query)
	span.SetAttributes(attribute.String(telemetry.AttrTurnType, string(resp.Type)))
	o.metrics.RecordTurn(ctx, string(resp.Type))
	return resp
}

type turn struct {
	o      *Orchestrator
	id     string
	span   trace.Span
	logger *slog.Logger
}

func (t *turn) run(ctx context.Context, query string) *Response {
	o := t.o
	t.transition(ctx, StateReceived)

	t.transition(ctx, StatePlanningOrAnswering)
	var descriptions string
	if o.catalog != nil {
		descriptions = o.catalog.Describe()
	}
	resp, err := o.provider.Chat(ctx, o.request(PlanOrAnswerPrompt(o.agentName, o.now(), descriptions), query))
	if err != nil {
		return t.fail(ctx, errors.New(errors.CodeLLMError, "plan or answer", err))
	}
	reply, err := parseReply(resp.Content)
	if err != nil {
		return t.fail(ctx, err)
	}

	if reply.Type == TypeAnswer {
		content, err := reply.answer()
		if err != nil {
			return t.fail(ctx, err)
		}
		t.transition(ctx, StateAnswered)
		return &Response{Type: TypeAnswer, Content: content, Process: EmptyProcess()}
	}

	t.transition(ctx, StatePlanReceived)
	plan, err := reply.plan()
	if err != nil {
		return t.reject(ctx, err)
	}

	t.transition(ctx, StateExecuting)
	result, err := o.executor.Execute(ctx, plan)
	if err != nil {
		return t.reject(ctx, err)
	}
	process := BuildProcessInfo(result)
	if !result.Completed {
		t.logger.InfoContext(ctx, "turn.plan.failed", "plan_id", result.PlanID, "run_id", result.RunID)
	}

	t.transition(ctx, StateSynthesizing)
	content, err := o.synthesizer.Synthesize(ctx, query, process.ExecutionSummary)
	if err != nil {
		r := t.fail(ctx, err)
		r.Process = process
		return r
	}
	t.transition(ctx, StateAnswered)
	return &Response{Type: TypeAnswer, Content: content, Process: process}
}

func (t *turn) transition(ctx context.Context, state TurnState) {
	t.logger.DebugContext(ctx, "turn.transition", "state", string(state))
	t.span.AddEvent("turn.transition", trace.WithAttributes(attribute.String(telemetry.AttrTurnState, string(state))))
	if t.o.hook != nil {
		t.o.hook(ctx, t.id, state)
	}
}

func (t *turn) fail(ctx context.Context, err error) *Response {
	t.record(ctx, "turn.failed", err)
	t.transition(ctx, StateAnswered)
	return errorResponse(err)
}

// reject answers for a plan that never started executing.
func (t *turn) reject(ctx context.Context, err error) *Response {
	if !stderrors.Is(err, planner.ErrInvalidPlan) {
		return t.fail(ctx, err)
	}
	t.record(ctx, "turn.plan.rejected", err)
	t.transition(ctx, StateAnswered)
	return rejectedPlanResponse(err)
}

func (t *turn) record(ctx context.Context, event string, err error) {
	t.logger.WarnContext(ctx, event, "error", err, "error_code", string(errors.CodeOf(err)))
	t.span.RecordError(err)
	t.span.SetStatus(codes.Error, err.Error())
	t.o.metrics.RecordError(ctx, err, "orchestrator")
}

func (o *Orchestrator) request(system, query string) llm.ChatRequest {
	return llm.ChatRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: query},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		JSON:        true,
	}
}
