package orchestrator

import (
	"context"
	"strings"

	"github.com/jllopis/spaceagent/pkg/errors"
	"github.com/jllopis/spaceagent/pkg/llm"
)

// Synthesizer produces the final answer of a planned turn from the original
// query and the execution summary.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, summary []string) (Content, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, query string, summary []string) (Content, error)

// Synthesize implements Synthesizer.
func (f SynthesizerFunc) Synthesize(ctx context.Context, query string, summary []string) (Content, error) {
	return f(ctx, query, summary)
}

// modelSynthesizer asks the planning model again, with the results in the
// system prompt, and expects an answer reply.
type modelSynthesizer struct {
	o *Orchestrator
}

func (s modelSynthesizer) Synthesize(ctx context.Context, query string, summary []string) (Content, error) {
	o := s.o
	resp, err := o.provider.Chat(ctx, o.request(AnswerWithResultsPrompt(o.agentName, o.now(), summary), query))
	if err != nil {
		return Content{}, errors.New(errors.CodeLLMError, "answer with results", err)
	}
	reply, err := parseReply(resp.Content)
	if err != nil {
		return Content{}, err
	}
	if reply.Type != TypeAnswer {
		return Content{}, errors.New(errors.CodeLLMError, "expected an answer after plan execution", nil)
	}
	return reply.answer()
}

// NewTextSynthesizer returns a Synthesizer for answer models that reply in
// plain text. The user message carries the question followed by the
// execution results; the whole reply becomes the answer message.
func NewTextSynthesizer(provider llm.Provider, model string) Synthesizer {
	return SynthesizerFunc(func(ctx context.Context, query string, summary []string) (Content, error) {
		prompt := "Question: " + query + "\n\nContext:\n" + formatSummary(summary)
		resp, err := provider.Chat(ctx, llm.ChatRequest{
			Model:    model,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		})
		if err != nil {
			return Content{}, errors.New(errors.CodeLLMError, "answer with results", err)
		}
		return Content{
			Message: strings.TrimSpace(resp.Content),
			Reason:  "Answer generated from plan results",
		}, nil
	})
}
