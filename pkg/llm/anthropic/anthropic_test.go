// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jllopis/spaceagent/pkg/llm"
)

func TestNewProviderDefaults(t *testing.T) {
	p := New()
	if p.model != defaultModel {
		t.Errorf("expected model %s, got %s", defaultModel, p.model)
	}
	if p.maxTokens != defaultMaxTokens {
		t.Errorf("expected maxTokens %d, got %d", defaultMaxTokens, p.maxTokens)
	}
	p = New(WithModel("claude-opus-4-20250514"), WithMaxTokens(8192), WithModel(""))
	if p.model != "claude-opus-4-20250514" || p.maxTokens != 8192 {
		t.Errorf("unexpected options: %s %d", p.model, p.maxTokens)
	}
}

func TestChat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "{\"type\":\"answer\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hello"},
		},
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != `{"type":"answer"}` {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 17 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if got["model"] != defaultModel {
		t.Fatalf("expected default model in request, got %v", got["model"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("system message must not be sent as a turn, got %d messages", len(msgs))
	}
	if got["system"] == nil {
		t.Fatalf("expected system prompt in request")
	}
}
