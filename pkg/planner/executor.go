package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/spaceagent/pkg/telemetry"
	"github.com/jllopis/spaceagent/pkg/tool"
)

// Dispatcher runs a single tool call. *tool.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, input any) tool.Result
}

// StepHook observes every step once it reaches a terminal state.
type StepHook func(ctx context.Context, outcome StepOutcome)

// Executor runs plans step by step through a Dispatcher. Steps run strictly
// in plan order; the first failing step halts dispatch and every later step
// is recorded as skipped.
type Executor struct {
	dispatcher Dispatcher
	audit      AuditStore
	hook       StepHook
	metrics    *telemetry.ExecutionMetrics
	logger     *slog.Logger
	tracer     trace.Tracer
	newRunID   func() string
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithAuditStore records one audit event per step.
func WithAuditStore(store AuditStore) Option {
	return func(e *Executor) { e.audit = store }
}

// WithStepHook sets a hook called after each step settles.
func WithStepHook(hook StepHook) Option {
	return func(e *Executor) { e.hook = hook }
}

// WithMetrics records plan and step metrics.
func WithMetrics(m *telemetry.ExecutionMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRunIDFunc overrides run id generation.
func WithRunIDFunc(fn func() string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// NewExecutor creates an executor dispatching through d.
func NewExecutor(d Dispatcher, opts ...Option) *Executor {
	e := &Executor{
		dispatcher: d,
		logger:     slog.Default(),
		tracer:     otel.Tracer("spaceagent/planner"),
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates and runs plan. The returned error is non-nil only for
// structural problems detected before the first dispatch; tool failures are
// reported through the ExecutionResult. plan is never modified.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*ExecutionResult, error) {
	if err := plan.Validate(); err != nil {
		e.logger.WarnContext(ctx, "plan.rejected", slog.String("error", err.Error()))
		e.metrics.RecordError(ctx, err, "planner")
		return nil, err
	}

	planID := plan.ID
	if planID == "" {
		planID = uuid.NewString()
	}
	runID := e.newRunID()

	ctx, span := e.tracer.Start(ctx, "Planner.Execute",
		trace.WithAttributes(telemetry.PlanAttributes(planID, runID, len(plan.Steps))...),
	)
	defer span.End()

	logger := e.logger.With(slog.String("plan_id", planID), slog.String("run_id", runID))
	logger.InfoContext(ctx, "plan.start", slog.Int("steps", len(plan.Steps)), slog.Any("tools", plan.Tools()))

	res := &ExecutionResult{
		Outputs: make([]string, 0, len(plan.Steps)),
		Tools:   []string{},
		PlanID:  planID,
		RunID:   runID,
		Steps:   make([]StepOutcome, len(plan.Steps)),
	}
	for i, step := range plan.Steps {
		res.Steps[i] = StepOutcome{
			Position: i + 1,
			Step:     step.Step,
			Tool:     step.Tool,
			Reason:   step.Reason,
			Required: step.RequiredForResponse,
			Input:    step.Input,
			State:    StatePending,
		}
	}

	var (
		required    []string
		stepOutputs = make(map[int]any, len(plan.Steps))
		failedAt    = 0
	)
	for i := range res.Steps {
		outcome := &res.Steps[i]
		if failedAt != 0 {
			outcome.State = StateSkipped
			outcome.Message = skipMessage(outcome.Step, failedAt)
		} else {
			e.runStep(ctx, logger, outcome, stepOutputs)
			if outcome.State == StateFailed {
				failedAt = outcome.Step
			} else {
				stepOutputs[outcome.Step] = outcome.Output
				res.Tools = append(res.Tools, outcome.Tool)
			}
		}

		res.Outputs = append(res.Outputs, outcome.Message)
		if outcome.Required {
			required = append(required, outcome.Message)
		}
		e.settle(ctx, logger, planID, runID, *outcome)
	}

	res.RequiredOutputs = required
	res.Completed = failedAt == 0
	if !res.Completed {
		n := failedAt
		res.FailureStep = &n
		span.SetAttributes(attribute.Int(telemetry.AttrPlanFailedAt, n))
		span.SetStatus(codes.Error, fmt.Sprintf("failed at step %d", n))
	} else {
		span.SetStatus(codes.Ok, "completed")
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrPlanCompleted, res.Completed))
	e.metrics.RecordPlan(ctx, res.Completed)
	logger.InfoContext(ctx, "plan.finish",
		slog.Bool("completed", res.Completed),
		slog.Int("tools", len(res.Tools)),
	)
	return res, nil
}

func (e *Executor) runStep(ctx context.Context, logger *slog.Logger, outcome *StepOutcome, stepOutputs map[int]any) {
	stepCtx, span := e.tracer.Start(ctx, "Planner.Step",
		trace.WithAttributes(telemetry.StepAttributes(outcome.Step, outcome.Tool)...),
	)
	defer span.End()

	outcome.State = StateRunning
	outcome.StartedAt = e.now()
	outcome.ResolvedInput = Resolve(outcome.Input, Visible(stepOutputs, outcome.Step))
	logger.DebugContext(stepCtx, "plan.step.start",
		slog.Int("step", outcome.Step),
		slog.String("tool", outcome.Tool),
	)

	var result tool.Result
	if err := ctx.Err(); err != nil {
		result = tool.Failure(tool.FailureExecution, fmt.Sprintf("Executing '%s' failed with: %v", outcome.Tool, err))
	} else {
		result = e.dispatcher.Dispatch(stepCtx, outcome.Tool, outcome.ResolvedInput)
	}
	outcome.FinishedAt = e.now()

	if result.Success {
		outcome.State = StateSucceeded
		outcome.Output = result.Data
		outcome.Message = successMessage(outcome.Step, tool.Format(result.Data))
		span.SetStatus(codes.Ok, "succeeded")
	} else {
		outcome.State = StateFailed
		outcome.Error = result.Error
		outcome.Message = failureMessage(outcome.Step, result.Error)
		span.SetStatus(codes.Error, result.Error)
		logger.WarnContext(stepCtx, "plan.step.failed",
			slog.Int("step", outcome.Step),
			slog.String("tool", outcome.Tool),
			slog.String("kind", string(result.Kind)),
			slog.String("error", result.Error),
		)
	}
	span.SetAttributes(telemetry.ToolResultAttributes(
		result.Success,
		float64(outcome.Duration().Microseconds())/1000,
		outcome.Message,
		0,
	)...)
}

func (e *Executor) settle(ctx context.Context, logger *slog.Logger, planID, runID string, outcome StepOutcome) {
	e.metrics.RecordStep(ctx, outcome.Tool, string(outcome.State),
		float64(outcome.Duration().Microseconds())/1000, outcome.State != StateSkipped)

	if outcome.State == StateSkipped {
		logger.DebugContext(ctx, "plan.step.skipped", slog.Int("step", outcome.Step), slog.String("tool", outcome.Tool))
	}

	if e.audit != nil {
		event := AuditEvent{
			PlanID:     planID,
			RunID:      runID,
			Step:       outcome.Step,
			Position:   outcome.Position,
			Tool:       outcome.Tool,
			Status:     string(outcome.State),
			Output:     outcome.Output,
			Error:      outcome.Error,
			StartedAt:  outcome.StartedAt,
			FinishedAt: outcome.FinishedAt,
		}
		if err := e.audit.Record(ctx, event); err != nil {
			logger.WarnContext(ctx, "plan.audit.failed",
				slog.Int("step", outcome.Step),
				slog.String("error", err.Error()),
			)
		}
	}

	if e.hook != nil {
		e.hook(ctx, outcome)
	}
}
