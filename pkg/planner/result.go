package planner

import (
	"fmt"
	"time"
)

// StepState is the lifecycle state of one plan step.
type StepState string

const (
	StatePending   StepState = "pending"
	StateRunning   StepState = "running"
	StateSucceeded StepState = "succeeded"
	StateFailed    StepState = "failed"
	StateSkipped   StepState = "skipped"
)

// StepOutcome is the executor's record of one step. It is the authoritative
// source of step status for anything built on top of an execution.
type StepOutcome struct {
	// Position is the 1-based index of the step in the plan.
	Position int
	Step     int
	Tool     string
	Reason   string
	Required bool

	Input         any
	ResolvedInput any
	// Output is the tool data on success, nil otherwise.
	Output any
	// Error is the tool error on failure.
	Error string
	// Message is the "Step <n>: ..." line recorded in ExecutionResult.Outputs.
	Message string
	State   StepState

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the time spent dispatching the step.
func (o StepOutcome) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// ExecutionResult is the outcome of running a whole plan.
type ExecutionResult struct {
	Outputs []string `json:"outputs"`
	// RequiredOutputs is nil when no step was marked required_for_response.
	RequiredOutputs []string `json:"required_outputs"`
	// Tools lists the tools that succeeded, in plan order, duplicates kept.
	Tools     []string `json:"tools"`
	Completed bool     `json:"completed"`
	// FailureStep is the number of the first failing step, nil when completed.
	FailureStep *int `json:"failure_step"`

	PlanID string        `json:"-"`
	RunID  string        `json:"-"`
	Steps  []StepOutcome `json:"-"`
}

// Outcome returns the outcome of the step numbered n.
func (r *ExecutionResult) Outcome(n int) (StepOutcome, bool) {
	for _, o := range r.Steps {
		if o.Step == n {
			return o, true
		}
	}
	return StepOutcome{}, false
}

func successMessage(n int, data string) string {
	return fmt.Sprintf("Step %d: %s", n, data)
}

func failureMessage(n int, err string) string {
	return fmt.Sprintf("Step %d: %s", n, err)
}

func skipMessage(n, failedAt int) string {
	return fmt.Sprintf("Step %d: Not executed due to previous failure at step %d", n, failedAt)
}
