package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jllopis/spaceagent/pkg/errors"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", resp.Content)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	boom := stderrors.New("boom")
	mock := NewScriptedMockProvider("first", "second")
	mock.Errs = []error{nil, boom}

	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil || resp.Content != "first" {
		t.Fatalf("unexpected first call: %v %v", resp, err)
	}
	if _, err := mock.Chat(context.Background(), ChatRequest{}); !stderrors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	resp, err = mock.Chat(context.Background(), ChatRequest{})
	if err != nil || resp.Content != "second" {
		t.Fatalf("unexpected third call: %v %v", resp, err)
	}
	if _, err := mock.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if mock.CallCount != 4 {
		t.Fatalf("expected 4 calls, got %d", mock.CallCount)
	}
}

func TestRecordingProvider(t *testing.T) {
	rec := NewRecordingProvider(&MockProvider{Response: "ok"})
	_, _ = rec.Chat(context.Background(), ChatRequest{Model: "m1"})
	_, _ = rec.Chat(context.Background(), ChatRequest{Model: "m2"})
	reqs := rec.Requests()
	if len(reqs) != 2 || reqs[1].Model != "m2" {
		t.Fatalf("unexpected recorded requests: %+v", reqs)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose then json fence", "Here you go:\n\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		{"generic fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"leading prose", "Sure! {\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1} hope this helps", `{"a":1}`},
		{"no json", "  nothing here  ", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOllamaChat(t *testing.T) {
	var req ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "pong"},
			"done":              true,
			"prompt_eval_count": 7,
			"eval_count":        3,
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL + "/")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:       "llama3",
		Messages:    []Message{{Role: RoleUser, Content: "ping"}},
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "pong" || resp.Usage.TotalTokens != 10 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if req.Format != "json" || req.Stream {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Options["temperature"] != 0.1 {
		t.Fatalf("expected temperature option, got %v", req.Options)
	}
}

func TestOllamaStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL).Chat(context.Background(), ChatRequest{Model: "x"})
	var status *StatusError
	if !stderrors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !status.Temporary() || status.Body != "model not loaded" {
		t.Fatalf("unexpected status error %+v", status)
	}
}

func TestRetryingProvider(t *testing.T) {
	var calls atomic.Int32
	flaky := ProviderFunc(func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		if calls.Add(1) < 3 {
			return nil, &StatusError{Provider: "test", StatusCode: 503}
		}
		return &ChatResponse{Content: "ok"}, nil
	})
	p := NewRetryingProvider(flaky, 3, nil).WithInitialDelay(time.Millisecond)
	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 3 {
		t.Fatalf("expected success on third call, got %q after %d", resp.Content, calls.Load())
	}
}

func TestRetryingProviderStopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	bad := ProviderFunc(func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		calls.Add(1)
		return nil, &StatusError{Provider: "test", StatusCode: 400}
	})
	p := NewRetryingProvider(bad, 5, nil).WithInitialDelay(time.Millisecond)
	_, err := p.Chat(context.Background(), ChatRequest{})
	if errors.CodeOf(err) != errors.CodeLLMError {
		t.Fatalf("expected LLM_ERROR, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestTracedProvider(t *testing.T) {
	p := NewTracedProvider(&MockProvider{Response: "ok"}, "mock")
	resp, err := p.Chat(context.Background(), ChatRequest{Model: "m"})
	if err != nil || resp.Content != "ok" {
		t.Fatalf("unexpected result %v %v", resp, err)
	}
	failing := NewTracedProvider(&FailingMockProvider{}, "mock")
	if _, err := failing.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatalf("expected error")
	}
}
