// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	e := New(CodeTimeout, "tool execution timed out", cause)

	if e.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", e.Code)
	}
	if e.Message != "tool execution timed out" {
		t.Errorf("expected message 'tool execution timed out', got %q", e.Message)
	}
	if e.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(e, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContextAndAttributes(t *testing.T) {
	e := New(CodeToolFailure, "tool failed", nil)
	e.WithContext("tool", "space_calculator-calculate_distance").
		WithContext("step", 2).
		WithAttribute("tool.name", "space_calculator-calculate_distance")

	if e.Context["tool"] != "space_calculator-calculate_distance" {
		t.Errorf("expected context tool to be set")
	}
	if e.Context["step"] != 2 {
		t.Errorf("expected context step to be set")
	}
	if e.Attributes["tool.name"] != "space_calculator-calculate_distance" {
		t.Errorf("expected attribute tool.name")
	}
}

func TestWithRecoverable(t *testing.T) {
	e := New(CodeLLMError, "model unavailable", nil)
	if e.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}
	e.WithRecoverable(true)
	if !e.Recoverable || e.RecoverableString() != "true" {
		t.Errorf("expected recoverable to be true after WithRecoverable")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "with cause",
			err:      New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			err:      New(CodeStructural, "plan has no steps", nil),
			expected: "[STRUCTURAL] plan has no steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeStructural, "invalid plan", nil)
	err := fmt.Errorf("execute: %w", New(CodeStructural, "step 2 missing tool", nil))

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped structural error to match sentinel")
	}
	if errors.Is(New(CodeLLMError, "boom", nil), sentinel) {
		t.Fatalf("expected different codes not to match")
	}
}

func TestAs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "typed error", err: New(CodeToolFailure, "failed", nil), expected: CodeToolFailure},
		{name: "wrapped typed error", err: fmt.Errorf("ctx: %w", New(CodeNotFound, "x", nil)), expected: CodeNotFound},
		{name: "generic error", err: errors.New("generic error"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := As(tt.err)
			if tt.expected == "" {
				if e != nil {
					t.Errorf("expected nil for nil error")
				}
				return
			}
			if e == nil {
				t.Fatalf("expected non-nil error")
			}
			if e.Code != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, e.Code)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
	if got := CodeOf(New(CodeTimeout, "slow", nil)); got != CodeTimeout {
		t.Fatalf("expected TIMEOUT, got %q", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	e := New(CodeToolFailure, "tool failed", errors.New("network error"))
	e.WithContext("tool", "signal_decoder-decode_signal").WithRecoverable(true)

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}
	if result["code"] != "TOOL_FAILURE" {
		t.Errorf("expected code 'TOOL_FAILURE', got %v", result["code"])
	}
	if result["error"] != "network error" {
		t.Errorf("expected cause text, got %v", result["error"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}
