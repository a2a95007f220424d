package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/spaceagent/pkg/telemetry"
)

// TracedProvider opens a span around every call of the wrapped Provider.
type TracedProvider struct {
	next     Provider
	provider string
	tracer   trace.Tracer
}

// NewTracedProvider wraps next; provider names the backend on spans.
func NewTracedProvider(next Provider, provider string) *TracedProvider {
	return &TracedProvider{next: next, provider: provider, tracer: otel.Tracer("spaceagent/llm")}
}

// Chat implements Provider.
func (p *TracedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := p.tracer.Start(ctx, "LLM.Chat",
		trace.WithAttributes(telemetry.LLMAttributes(req.Model, p.provider, len(req.Messages))...),
	)
	defer span.End()

	resp, err := p.next.Chat(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)...)
	span.SetStatus(codes.Ok, "ok")
	return resp, nil
}
