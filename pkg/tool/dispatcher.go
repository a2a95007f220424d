// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jllopis/spaceagent/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher resolves tool ids against the catalog and the registry and runs
// the matching capability. It never returns an error: every failure becomes
// a failed Result.
type Dispatcher struct {
	catalog  *Catalog
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds every capability invocation. Zero disables the bound.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(disp *Dispatcher) {
		if l != nil {
			disp.logger = l
		}
	}
}

// NewDispatcher builds a dispatcher over catalog and registry. A nil catalog
// defaults to the registry's full catalog.
func NewDispatcher(catalog *Catalog, registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		registry, _ = NewRegistry()
	}
	if catalog == nil {
		catalog = registry.Catalog()
	}
	d := &Dispatcher{
		catalog:  catalog,
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("spaceagent/tool"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the catalog the dispatcher validates against.
func (d *Dispatcher) Catalog() *Catalog { return d.catalog }

// Dispatch runs the named tool with input and waits for its Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, input any) Result {
	// Await on a dispatch future never fails; errors are folded into the Result.
	res, _ := d.Start(ctx, name, input).Await(ctx)
	return res
}

// Start resolves the named tool and starts it, handing back the pending
// computation. Lookup failures come back as an already completed Future.
func (d *Dispatcher) Start(ctx context.Context, name string, input any) Future {
	capability, failure, ok := d.resolve(name)
	if !ok {
		d.logger.WarnContext(ctx, "tool lookup failed",
			slog.String("tool", name),
			slog.String("kind", string(failure.Kind)),
			slog.String("error", failure.Error),
		)
		return Ready(failure, nil)
	}

	args := ArgsFrom(input)
	d.logger.DebugContext(ctx, "tool dispatch",
		slog.String("tool", name),
		slog.String("shape", args.Shape().String()),
	)
	// runCtx ends with the dispatch timeout or when Await returns.
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if d.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	return &dispatchFuture{
		name:    name,
		inner:   capability.Invoke(runCtx, args),
		cancel:  cancel,
		timeout: d.timeout,
		disp:    d,
	}
}

func (d *Dispatcher) resolve(name string) (Capability, Result, bool) {
	if _, ok := d.catalog.Lookup(name); !ok {
		return nil, Failure(FailureToolNotFound, fmt.Sprintf("Tool '%s' not found", name)), false
	}
	namespace, capName, ok := SplitName(name)
	if !ok {
		namespace, _, _ = strings.Cut(name, Separator)
		return nil, Failure(FailureModuleNotFound, fmt.Sprintf("Module '%s' not found", namespace)), false
	}
	group, ok := d.registry.Group(namespace)
	if !ok {
		return nil, Failure(FailureModuleNotFound, fmt.Sprintf("Module '%s' not found", namespace)), false
	}
	capability, ok := group.Capability(capName)
	if !ok {
		return nil, Failure(FailureFunctionNotFound,
			fmt.Sprintf("Function '%s' not found in module '%s'", capName, namespace)), false
	}
	return capability, Result{}, true
}

type dispatchFuture struct {
	name    string
	inner   Future
	cancel  context.CancelFunc
	timeout time.Duration
	disp    *Dispatcher
}

func (f *dispatchFuture) Await(ctx context.Context) (Result, error) {
	defer f.cancel()
	ctx, span := f.disp.tracer.Start(ctx, "Tool.Dispatch",
		trace.WithAttributes(attribute.String("tool.name", f.name)),
	)
	defer span.End()

	start := time.Now()
	res, err := resilience.WithTimeoutResult(ctx, f.timeout, f.inner.Await)
	switch {
	case err != nil:
		res = Failure(FailureExecution, fmt.Sprintf("Executing '%s' failed with: %s", f.name, err.Error()))
	case !res.Success:
		res.Error = normalizeError(res.Error)
		res.Data = nil
		if res.Kind == FailureNone {
			res.Kind = FailureTool
		}
	default:
		res.Error = ""
		res.Kind = FailureNone
	}

	span.SetAttributes(
		attribute.Bool("tool.success", res.Success),
		attribute.Int64("tool.duration_ms", time.Since(start).Milliseconds()),
	)
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		f.disp.logger.WarnContext(ctx, "tool failed",
			slog.String("tool", f.name),
			slog.String("kind", string(res.Kind)),
			slog.String("error", res.Error),
		)
	} else {
		span.SetStatus(codes.Ok, "completed")
	}
	return res, nil
}
