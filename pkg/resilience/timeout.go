// SPDX-License-Identifier: Apache-2.0
// Package resilience provides timeout and retry helpers used around tool
// dispatch and model calls.
package resilience

import (
	"context"
	"time"

	"github.com/jllopis/spaceagent/pkg/errors"
)

// WithTimeoutResult runs fn under a deadline derived from ctx. A zero
// duration runs fn without a deadline. When the deadline passes before fn
// returns, an errors.CodeTimeout error is returned and fn is left to observe
// the cancelled context on its own goroutine.
func WithTimeoutResult[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		code := errors.CodeTimeout
		msg := "operation exceeded timeout"
		if ctx.Err() == context.Canceled {
			code = errors.CodeContextLost
			msg = "operation cancelled"
		}
		return zero, errors.New(code, msg, ctx.Err()).
			WithContext("timeout", d.String()).
			WithRecoverable(true)
	case res := <-done:
		return res.value, res.err
	}
}

// WithTimeout is WithTimeoutResult for functions without a value.
func WithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := WithTimeoutResult(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
