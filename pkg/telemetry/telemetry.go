package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	spanBatchTimeout = time.Second
	metricInterval   = time.Minute
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

// Config selects where turn, plan and step telemetry is exported.
type Config struct {
	// Exporter is one of "none", "stdout" or "otlp".
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	// Output receives stdout exporter data. Defaults to os.Stdout.
	Output io.Writer
}

type exporters struct {
	spans   sdktrace.SpanExporter
	metrics sdkmetric.Exporter
}

// InitWithConfig installs global tracer and meter providers for the agent.
// With the "none" exporter the global no-op providers stay in place and the
// returned ShutdownFunc does nothing.
func InitWithConfig(serviceName, version string, cfg Config) (ShutdownFunc, error) {
	if cfg.Exporter == "none" {
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exp, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.spans, sdktrace.WithBatchTimeout(spanBatchTimeout)),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metrics, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, cfg Config) (exporters, error) {
	switch cfg.Exporter {
	case "", "stdout":
		spanOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		var metricOpts []stdoutmetric.Option
		if cfg.Output != nil {
			spanOpts = append(spanOpts, stdouttrace.WithWriter(cfg.Output))
			metricOpts = append(metricOpts, stdoutmetric.WithWriter(cfg.Output))
		}
		spans, err := stdouttrace.New(spanOpts...)
		if err != nil {
			return exporters{}, fmt.Errorf("stdout span exporter: %w", err)
		}
		metrics, err := stdoutmetric.New(metricOpts...)
		if err != nil {
			return exporters{}, fmt.Errorf("stdout metric exporter: %w", err)
		}
		return exporters{spans: spans, metrics: metrics}, nil

	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return exporters{}, fmt.Errorf("otlp endpoint is required")
		}
		spanOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			spanOpts = append(spanOpts, otlptracegrpc.WithInsecure())
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		}
		spans, err := otlptracegrpc.New(ctx, spanOpts...)
		if err != nil {
			return exporters{}, fmt.Errorf("otlp span exporter: %w", err)
		}
		metrics, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			_ = spans.Shutdown(ctx)
			return exporters{}, fmt.Errorf("otlp metric exporter: %w", err)
		}
		return exporters{spans: spans, metrics: metrics}, nil

	default:
		return exporters{}, fmt.Errorf("unknown telemetry exporter: %s", cfg.Exporter)
	}
}
