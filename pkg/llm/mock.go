package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}

// RecordingProvider wraps a Provider and keeps every request it forwards.
type RecordingProvider struct {
	Next Provider

	mu       sync.Mutex
	requests []ChatRequest
}

// NewRecordingProvider wraps next.
func NewRecordingProvider(next Provider) *RecordingProvider {
	return &RecordingProvider{Next: next}
}

// Chat records req and forwards it.
func (r *RecordingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.Next.Chat(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (r *RecordingProvider) Requests() []ChatRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChatRequest(nil), r.requests...)
}
