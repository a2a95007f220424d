package planner

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/spaceagent/pkg/errors"
)

// ParseJSON loads a plan from JSON and validates it.
func ParseJSON(data []byte) (*Plan, error) {
	if len(data) == 0 {
		return nil, structural("empty JSON payload")
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, errors.New(errors.CodeStructural, "parse json plan", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ParseYAML loads a plan from YAML and validates it.
func ParseYAML(data []byte) (*Plan, error) {
	if len(data) == 0 {
		return nil, structural("empty YAML payload")
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, errors.New(errors.CodeStructural, "parse yaml plan", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FromContent builds a plan from the decoded content object of a model
// response, e.g. {"steps": [...]}.
func FromContent(content any) (*Plan, error) {
	if content == nil {
		return nil, structural("plan content is empty")
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, errors.New(errors.CodeStructural, "encode plan content", err)
	}
	return ParseJSON(raw)
}

// MarshalJSON serializes a plan to JSON. Use pretty for indented output.
func MarshalJSON(plan *Plan, pretty bool) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if pretty {
		return json.MarshalIndent(plan, "", "  ")
	}
	return json.Marshal(plan)
}

// MarshalYAML serializes a plan to YAML.
func MarshalYAML(plan *Plan) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml plan: %w", err)
	}
	return out, nil
}
