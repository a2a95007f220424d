package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jllopis/spaceagent/pkg/errors"
	"github.com/jllopis/spaceagent/pkg/llm"
	"github.com/jllopis/spaceagent/pkg/planner"
)

// modelReply is the decoded model output, before the plan is validated.
type modelReply struct {
	Type    ResponseType    `json:"type"`
	Content json.RawMessage `json:"content"`
}

type answerContent struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// parseReply decodes a model response. Both {"result": {...}} and the bare
// {"type": ..., "content": ...} object are accepted.
func parseReply(content string) (*modelReply, error) {
	raw := []byte(llm.ExtractJSON(content))
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.New(errors.CodeLLMError, "decode model response", err)
	}
	if len(envelope.Result) > 0 && !bytes.Equal(envelope.Result, []byte("null")) {
		raw = envelope.Result
	}
	var reply modelReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, errors.New(errors.CodeLLMError, "decode model response", err)
	}
	switch reply.Type {
	case TypeAnswer, TypePlan:
	default:
		return nil, errors.New(errors.CodeLLMError, fmt.Sprintf("unknown response type %q", reply.Type), nil)
	}
	return &reply, nil
}

func (r *modelReply) answer() (Content, error) {
	var c answerContent
	if len(r.Content) > 0 {
		if err := json.Unmarshal(r.Content, &c); err != nil {
			// Some models put the answer text directly in content.
			var text string
			if json.Unmarshal(r.Content, &text) != nil {
				return Content{}, errors.New(errors.CodeLLMError, "decode answer content", err)
			}
			c.Message = text
		}
	}
	return Content{Message: c.Message, Reason: c.Reason}, nil
}

// plan validates the content of a plan reply. Errors are structural.
func (r *modelReply) plan() (*planner.Plan, error) {
	if len(r.Content) == 0 {
		return nil, errors.New(errors.CodeStructural, "plan content is empty", nil)
	}
	return planner.ParseJSON(r.Content)
}
