// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool holds the tool catalog, the statically registered capability
// table and the dispatcher that turns a tool identifier plus an input payload
// into a uniform Result.
package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

const errorPrefix = "Error: "

// FailureKind records which stage produced a failed Result.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureToolNotFound     FailureKind = "tool_not_found"
	FailureModuleNotFound   FailureKind = "module_not_found"
	FailureFunctionNotFound FailureKind = "function_not_found"
	FailureExecution        FailureKind = "execution"
	FailureTool             FailureKind = "tool"
)

// Result is the success/data/error envelope returned by every capability.
// Data is meaningful only when Success is true, Error only when it is false.
type Result struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
}

// OK builds a successful result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Err builds a failed result reported by the tool itself.
func Err(msg string) Result {
	return Failure(FailureTool, msg)
}

// Errf is Err with formatting.
func Errf(format string, args ...any) Result {
	return Err(fmt.Sprintf(format, args...))
}

// Failure builds a failed result of the given kind. The message is prefixed
// with "Error: " unless it already carries the prefix.
func Failure(kind FailureKind, msg string) Result {
	return Result{Success: false, Error: normalizeError(msg), Kind: kind}
}

func normalizeError(msg string) string {
	if strings.HasPrefix(msg, errorPrefix) {
		return msg
	}
	return errorPrefix + msg
}

// String renders the result as {"status":"success","data":...} or
// {"status":"error","error":...}.
func (r Result) String() string {
	var payload map[string]any
	if r.Success {
		payload = map[string]any{"status": "success", "data": r.Data}
	} else {
		payload = map[string]any{"status": "error", "error": r.Error}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(raw)
}

// Format renders a tool output the way it appears in execution summaries and
// placeholder substitutions: strings verbatim, everything else as JSON.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return string(t)
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
