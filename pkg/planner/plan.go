// Package planner executes model-produced tool plans: an ordered list of steps
// whose inputs may reference earlier step outputs with {{N}} placeholders.
package planner

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/jllopis/spaceagent/pkg/errors"
)

// ErrInvalidPlan matches every structural plan error via errors.Is.
var ErrInvalidPlan = errors.New(errors.CodeStructural, "invalid plan", nil)

// Plan is an ordered sequence of tool-invocation steps.
type Plan struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Step is one tool invocation. Input may contain {{N}} placeholders that
// reference the output of an earlier step N.
type Step struct {
	Step                int    `json:"step" yaml:"step"`
	Tool                string `json:"tool" yaml:"tool"`
	Input               any    `json:"input" yaml:"input"`
	Reason              string `json:"reason,omitempty" yaml:"reason,omitempty"`
	RequiredForResponse bool   `json:"required_for_response" yaml:"required_for_response"`
}

// UnmarshalJSON accepts step numbers and flags the model sends as strings.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw struct {
		Step     any    `json:"step"`
		Tool     string `json:"tool"`
		Input    any    `json:"input"`
		Reason   string `json:"reason"`
		Required any    `json:"required_for_response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n, err := cast.ToIntE(raw.Step)
	if err != nil {
		return fmt.Errorf("step number: %w", err)
	}
	required, err := cast.ToBoolE(raw.Required)
	if err != nil {
		return fmt.Errorf("required_for_response: %w", err)
	}
	*s = Step{
		Step:                n,
		Tool:                raw.Tool,
		Input:               raw.Input,
		Reason:              raw.Reason,
		RequiredForResponse: required,
	}
	return nil
}

// Validate checks the plan is well formed before any step is dispatched: it
// has steps, step numbers are positive and unique, and every step names a tool.
func (p *Plan) Validate() error {
	if p == nil {
		return structural("plan is nil")
	}
	if len(p.Steps) == 0 {
		return structural("plan has no steps")
	}
	seen := make(map[int]int, len(p.Steps))
	for i, step := range p.Steps {
		if step.Step <= 0 {
			return structural(fmt.Sprintf("step at position %d has invalid number %d", i+1, step.Step)).
				WithContext("position", i+1)
		}
		if prev, dup := seen[step.Step]; dup {
			return structural(fmt.Sprintf("step number %d repeated at positions %d and %d", step.Step, prev, i+1)).
				WithContext("step", step.Step)
		}
		seen[step.Step] = i + 1
		if step.Tool == "" {
			return structural(fmt.Sprintf("step %d is missing tool", step.Step)).
				WithContext("step", step.Step)
		}
	}
	return nil
}

// Tools lists the tool of every step in plan order.
func (p *Plan) Tools() []string {
	out := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Tool)
	}
	return out
}

func structural(msg string) *errors.Error {
	return errors.New(errors.CodeStructural, msg, nil)
}
