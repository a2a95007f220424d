package planner

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		plan *Plan
		ok   bool
	}{
		{"nil", nil, false},
		{"empty", &Plan{}, false},
		{"zero step number", &Plan{Steps: []Step{{Step: 0, Tool: "a-b"}}}, false},
		{"duplicate numbers", &Plan{Steps: []Step{{Step: 1, Tool: "a-b"}, {Step: 1, Tool: "a-c"}}}, false},
		{"missing tool", &Plan{Steps: []Step{{Step: 1}}}, false},
		{"non contiguous", &Plan{Steps: []Step{{Step: 1, Tool: "a-b"}, {Step: 5, Tool: "a-c"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected validation error")
				}
				if !stderrors.Is(err, ErrInvalidPlan) {
					t.Fatalf("expected ErrInvalidPlan, got %v", err)
				}
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	payload := []byte(`{
  "steps": [
    {"step": 1, "tool": "stellar_locator-search_by_name", "input": {"name": "Vega"}, "reason": "find it", "required_for_response": true},
    {"step": "2", "tool": "space_calculator-calculate_distance", "input": "{{1}}", "required_for_response": "false"}
  ]
}`)
	plan, err := ParseJSON(payload)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[1].Step != 2 || plan.Steps[1].RequiredForResponse {
		t.Fatalf("unexpected lenient decode: %+v", plan.Steps[1])
	}
	if !plan.Steps[0].RequiredForResponse || plan.Steps[0].Reason != "find it" {
		t.Fatalf("unexpected first step: %+v", plan.Steps[0])
	}
}

func TestParseRejectsMalformedSteps(t *testing.T) {
	for _, payload := range []string{
		`{"steps": []}`,
		`{"steps": ["not a step"]}`,
		`{"steps": [{"step": 1, "tool": 7}]}`,
		`{"steps": [{"step": 1}]}`,
		`not json`,
	} {
		if _, err := ParseJSON([]byte(payload)); !stderrors.Is(err, ErrInvalidPlan) {
			t.Errorf("payload %s: expected ErrInvalidPlan, got %v", payload, err)
		}
	}
}

func TestParseYAML(t *testing.T) {
	payload := []byte(`
id: plan-yaml
steps:
  - step: 1
    tool: signal_decoder-decode_signal
    input:
      encoded_signal: "48656c6c6f"
      signal_type: hex
    required_for_response: true
`)
	plan, err := ParseYAML(payload)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if plan.ID != "plan-yaml" {
		t.Fatalf("unexpected plan id: %q", plan.ID)
	}
	input, ok := plan.Steps[0].Input.(map[string]any)
	if !ok || input["signal_type"] != "hex" {
		t.Fatalf("unexpected input: %#v", plan.Steps[0].Input)
	}
}

func TestFromContent(t *testing.T) {
	content := map[string]any{
		"steps": []any{
			map[string]any{"step": float64(1), "tool": "a-b", "input": nil, "required_for_response": true},
		},
	}
	plan, err := FromContent(content)
	if err != nil {
		t.Fatalf("FromContent: %v", err)
	}
	if plan.Steps[0].Tool != "a-b" {
		t.Fatalf("unexpected tool %q", plan.Steps[0].Tool)
	}
	if _, err := FromContent(nil); !stderrors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan for nil content, got %v", err)
	}
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(jsonPath, []byte(`{"steps":[{"step":1,"tool":"a-b"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "plan.txt")
	if err := os.WriteFile(yamlPath, []byte("steps:\n  - step: 1\n    tool: a-b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{jsonPath, yamlPath} {
		plan, err := LoadPlan(path)
		if err != nil {
			t.Fatalf("LoadPlan(%s): %v", path, err)
		}
		if plan.Steps[0].Tool != "a-b" {
			t.Fatalf("unexpected plan from %s", path)
		}
	}
	if _, err := LoadPlan(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	plan := &Plan{ID: "rt", Steps: []Step{{Step: 1, Tool: "a-b", Input: "x", RequiredForResponse: true}}}
	raw, err := MarshalJSON(plan, true)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	back, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if back.Steps[0].Input != "x" || !back.Steps[0].RequiredForResponse {
		t.Fatalf("unexpected round trip: %+v", back.Steps[0])
	}
	if _, err := MarshalYAML(&Plan{}); err == nil {
		t.Fatalf("expected error marshaling empty plan")
	}
}
