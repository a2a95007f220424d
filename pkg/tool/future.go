package tool

import (
	"context"
	"fmt"
)

// Future is a pending tool computation. Await blocks until the computation
// completes or ctx is done.
type Future interface {
	Await(ctx context.Context) (Result, error)
}

// FutureFunc adapts a function to Future. The function runs on Await.
type FutureFunc func(ctx context.Context) (Result, error)

// Await implements Future.
func (f FutureFunc) Await(ctx context.Context) (Result, error) {
	return f(ctx)
}

type readyFuture struct {
	res Result
	err error
}

// Ready returns an already completed Future.
func Ready(res Result, err error) Future {
	return readyFuture{res: res, err: err}
}

func (f readyFuture) Await(context.Context) (Result, error) {
	return f.res, f.err
}

type goFuture struct {
	done chan struct{}
	res  Result
	err  error
}

// Go starts fn on its own goroutine and returns a Future for its result.
// A panic inside fn is reported as an error from Await.
func Go(ctx context.Context, fn func(context.Context) (Result, error)) Future {
	f := &goFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = panicError(r)
			}
		}()
		f.res, f.err = fn(ctx)
	}()
	return f
}

func (f *goFuture) Await(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
