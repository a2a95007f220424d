package llm

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/jllopis/spaceagent/pkg/errors"
	"github.com/jllopis/spaceagent/pkg/resilience"
)

// RetryingProvider retries transient failures of the wrapped Provider.
type RetryingProvider struct {
	next   Provider
	config resilience.RetryConfig
	logger *slog.Logger
}

// NewRetryingProvider wraps next. Attempts below 1 are treated as 1.
func NewRetryingProvider(next Provider, attempts int, logger *slog.Logger) *RetryingProvider {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := resilience.DefaultRetryConfig().
		WithMaxAttempts(attempts).
		WithIsRecoverable(isTransient)
	return &RetryingProvider{next: next, config: cfg, logger: logger}
}

// WithInitialDelay sets the first backoff delay.
func (p *RetryingProvider) WithInitialDelay(d time.Duration) *RetryingProvider {
	p.config = p.config.WithInitialDelay(d)
	return p
}

// Chat implements Provider. The final error is typed as LLM_ERROR.
func (p *RetryingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	attempt := 0
	resp, err := resilience.Retry(ctx, p.config, func(ctx context.Context) (*ChatResponse, error) {
		attempt++
		resp, err := p.next.Chat(ctx, req)
		if err != nil && attempt < p.config.MaxAttempts && isTransient(err) {
			p.logger.WarnContext(ctx, "llm.retry",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return resp, err
	})
	if err != nil {
		if errors.CodeOf(err) != "" && errors.CodeOf(err) != errors.CodeLLMError {
			return nil, err
		}
		return nil, errors.New(errors.CodeLLMError, "model call failed", err).
			WithContext("attempts", attempt).
			WithAttribute("gen_ai.request.model", req.Model)
	}
	return resp, nil
}

func isTransient(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if stderrors.As(err, &status) {
		return status.Temporary()
	}
	if e := errors.As(err); e.Code != errors.CodeInternal {
		return e.Recoverable
	}
	return true
}
