package orchestrator

import (
	"fmt"
	"sort"

	"github.com/jllopis/spaceagent/pkg/planner"
)

// ResponseType tags a model response.
type ResponseType string

const (
	TypeAnswer ResponseType = "answer"
	TypePlan   ResponseType = "plan"
)

// Step record statuses.
const (
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusNotExecuted = "not_executed"
)

// Response is what a turn returns to the caller.
type Response struct {
	Type    ResponseType `json:"type"`
	Content Content      `json:"content"`
	Process ProcessInfo  `json:"process"`
}

// Content is {message, reason} for answers and {steps} for plans.
type Content struct {
	Message string         `json:"message,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Steps   []planner.Step `json:"steps,omitempty"`
}

// ProcessInfo describes what actually ran during a turn. Every field is
// present, even on direct answers.
type ProcessInfo struct {
	ToolsUsed        []string     `json:"tools_used"`
	Reasoning        string       `json:"reasoning"`
	StepsTaken       []StepRecord `json:"steps_taken"`
	ExecutionSummary []string     `json:"execution_summary"`
}

// StepRecord is one entry of ProcessInfo.StepsTaken.
type StepRecord struct {
	Step   int    `json:"step"`
	Tool   string `json:"tool"`
	Input  any    `json:"input"`
	Output any    `json:"output"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// EmptyProcess returns a ProcessInfo with empty, non-nil collections.
func EmptyProcess() ProcessInfo {
	return ProcessInfo{
		ToolsUsed:        []string{},
		StepsTaken:       []StepRecord{},
		ExecutionSummary: []string{},
	}
}

// BuildProcessInfo derives the process description from the executor's
// per-step outcomes. Steps are numbered by plan position.
func BuildProcessInfo(res *planner.ExecutionResult) ProcessInfo {
	info := EmptyProcess()
	info.Reasoning = "Plan executed with results"
	if res.Completed {
		info.ExecutionSummary = append(info.ExecutionSummary, "Plan execution completed successfully.")
	} else {
		failed := 0
		if res.FailureStep != nil {
			failed = *res.FailureStep
		}
		info.ExecutionSummary = append(info.ExecutionSummary, fmt.Sprintf("Plan execution failed at step %d.", failed))
	}

	used := map[string]struct{}{}
	for _, o := range res.Steps {
		rec := StepRecord{
			Step:   o.Position,
			Tool:   o.Tool,
			Input:  o.Input,
			Reason: o.Reason,
		}
		if rec.Input == nil {
			rec.Input = map[string]any{}
		}
		var line string
		switch o.State {
		case planner.StateSucceeded:
			rec.Status, rec.Output = StatusCompleted, o.Message
			line = fmt.Sprintf("Step %d (%s): %s", o.Position, o.Tool, o.Message)
		case planner.StateFailed:
			rec.Status, rec.Output = StatusFailed, o.Message
			line = fmt.Sprintf("Step %d (%s): %s (Failed)", o.Position, o.Tool, o.Message)
		default:
			rec.Status = StatusNotExecuted
			line = fmt.Sprintf("Step %d (%s): Not executed", o.Position, o.Tool)
		}
		if rec.Status != StatusNotExecuted {
			used[o.Tool] = struct{}{}
		}
		info.ExecutionSummary = append(info.ExecutionSummary, line)
		info.StepsTaken = append(info.StepsTaken, rec)
	}
	for name := range used {
		info.ToolsUsed = append(info.ToolsUsed, name)
	}
	sort.Strings(info.ToolsUsed)
	return info
}

func notExecutedProcess() ProcessInfo {
	info := EmptyProcess()
	info.Reasoning = "Plan execution failed or did not occur"
	info.ExecutionSummary = append(info.ExecutionSummary, "Plan execution failed or did not occur.")
	return info
}

// errorResponse is the answer-shaped response used when the model call fails.
func errorResponse(err error) *Response {
	return &Response{
		Type: TypeAnswer,
		Content: Content{
			Message: fmt.Sprintf("Error generating response: %v", err),
			Reason:  "Error during response generation",
		},
		Process: EmptyProcess(),
	}
}

func rejectedPlanResponse(err error) *Response {
	return &Response{
		Type: TypeAnswer,
		Content: Content{
			Message: fmt.Sprintf("Error executing plan: %v", err),
			Reason:  "Plan rejected before execution",
		},
		Process: notExecutedProcess(),
	}
}
