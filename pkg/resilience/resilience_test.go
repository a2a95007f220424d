// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/jllopis/spaceagent/pkg/errors"
)

func fastRetry() RetryConfig {
	return DefaultRetryConfig().WithInitialDelay(time.Millisecond)
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := fastRetry().WithMaxAttempts(2).Do(context.Background(), func(context.Context) error {
		attempts++
		return stderrors.New("always fails")
	})
	if err == nil {
		t.Fatalf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRecoverableTypedError(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", errors.New(errors.CodeInvalidInput, "bad request", nil)
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryReturnsValue(t *testing.T) {
	attempts := 0
	value, err := Retry(context.Background(), fastRetry(), func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New(errors.CodeLLMError, "busy", nil).WithRecoverable(true)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 42 {
		t.Fatalf("expected 42, got %d", value)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig().WithInitialDelay(200 * time.Millisecond)

	attempts := 0
	err := cfg.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return stderrors.New("transient error")
	})
	if errors.CodeOf(err) != errors.CodeContextLost {
		t.Fatalf("expected CONTEXT_LOST, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithTimeoutResult(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), time.Second, func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || value != "done" {
		t.Fatalf("unexpected result %q, %v", value, err)
	}
}

func TestWithTimeoutResultTimeout(t *testing.T) {
	_, err := WithTimeoutResult(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return "late", nil
	})
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestWithTimeoutZeroDurationRunsInline(t *testing.T) {
	called := false
	err := WithTimeout(context.Background(), 0, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected inline call, got called=%v err=%v", called, err)
	}
}
