// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry and slog setup plus the attribute
// names and metrics shared by the planner, the dispatcher and the turn
// controller.
package telemetry

import (
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute names used on spans and metrics.
const (
	// Turn attributes
	AttrTurnID    = "spaceagent.turn.id"
	AttrTurnState = "spaceagent.turn.state"
	AttrTurnQuery = "spaceagent.turn.query"
	AttrTurnType  = "spaceagent.turn.response_type"

	// Plan attributes
	AttrPlanID        = "spaceagent.plan.id"
	AttrPlanRunID     = "spaceagent.plan.run_id"
	AttrPlanSteps     = "spaceagent.plan.steps"
	AttrPlanCompleted = "spaceagent.plan.completed"
	AttrPlanFailedAt  = "spaceagent.plan.failure_step"

	// Step attributes
	AttrStepNumber = "spaceagent.step.number"
	AttrStepStatus = "spaceagent.step.status"

	// Tool attributes
	AttrToolName       = "spaceagent.tool.name"
	AttrToolSuccess    = "spaceagent.tool.success"
	AttrToolDurationMs = "spaceagent.tool.duration_ms"
	AttrToolResult     = "spaceagent.tool.result"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"

	// Knowledge attributes
	AttrKnowledgeCollection = "spaceagent.knowledge.collection"
	AttrKnowledgeTopK       = "spaceagent.knowledge.top_k"
	AttrKnowledgeHits       = "spaceagent.knowledge.hits"
)

// TurnAttributes returns attributes for a turn span.
func TurnAttributes(turnID, query string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrTurnID, turnID)}
	if query != "" {
		attrs = append(attrs, attribute.String(AttrTurnQuery, truncate(query, 200)))
	}
	return attrs
}

// PlanAttributes returns attributes for a plan execution span.
func PlanAttributes(planID, runID string, steps int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPlanRunID, runID),
		attribute.Int(AttrPlanSteps, steps),
	}
	if planID != "" {
		attrs = append(attrs, attribute.String(AttrPlanID, planID))
	}
	return attrs
}

// StepAttributes returns attributes for a plan step span.
func StepAttributes(step int, tool string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrStepNumber, step),
		attribute.String(AttrToolName, tool),
	}
}

// ToolResultAttributes returns the outcome attributes of a tool call. The
// rendered result is truncated to maxLen bytes (500 when maxLen <= 0).
func ToolResultAttributes(success bool, durationMs float64, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrToolSuccess, success),
		attribute.Float64(AttrToolDurationMs, durationMs),
	}
	if result != "" {
		attrs = append(attrs, attribute.String(AttrToolResult, truncate(result, maxLen)))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model, provider string, msgCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	return attrs
}

// KnowledgeAttributes returns attributes for a knowledge search span.
func KnowledgeAttributes(collection string, topK, hits int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrKnowledgeCollection, collection),
		attribute.Int(AttrKnowledgeTopK, topK),
		attribute.Int(AttrKnowledgeHits, hits),
	}
}

// truncate shortens s to at most maxLen bytes without splitting a rune,
// appending "..." when cut.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
