package tool

import "context"

// Capability is one callable inside a tool group. Every capability returns a
// Future, so synchronous and asynchronous implementations share one calling
// convention.
type Capability interface {
	Invoke(ctx context.Context, args Args) Future
}

// Func is a synchronous capability. It runs when the returned Future is awaited.
type Func func(ctx context.Context, args Args) (Result, error)

// Invoke implements Capability.
func (f Func) Invoke(_ context.Context, args Args) Future {
	return FutureFunc(func(ctx context.Context) (res Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
		}()
		return f(ctx, args)
	})
}

// AsyncFunc is a capability that starts its own pending computation, usually
// with Go.
type AsyncFunc func(ctx context.Context, args Args) Future

// Invoke implements Capability.
func (f AsyncFunc) Invoke(ctx context.Context, args Args) (fut Future) {
	defer func() {
		if r := recover(); r != nil {
			fut = Ready(Result{}, panicError(r))
		}
	}()
	fut = f(ctx, args)
	if fut == nil {
		fut = Ready(Result{}, errNilFuture)
	}
	return fut
}

type constError string

func (e constError) Error() string { return string(e) }

const errNilFuture = constError("capability returned no pending computation")
