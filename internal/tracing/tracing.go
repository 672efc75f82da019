package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// Options configures the tracer provider.
type Options struct {
	Enabled    bool
	Endpoint   string  // host:port of an OTLP HTTP collector
	SampleRate float64 // 0.0 to 1.0
	Version    string
}

// Init initializes OpenTelemetry tracing. When disabled it returns a no-op
// shutdown function and spans go to the global no-op provider.
func Init(serviceName string, opts Options) (func(context.Context) error, error) {
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()

	// WithEndpoint expects "host:port" without a scheme
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(clampRate(opts.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(serviceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

func clampRate(r float64) float64 {
	switch {
	case r != r || r < 0: // NaN or negative
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("noop")
	}
	return tracer
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, spanName, opts...)
}

// StepAttributes describes one simulation tick on a span.
func StepAttributes(step, bodies, nodes, depth int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("sim.step", step),
		attribute.Int("sim.bodies", bodies),
		attribute.Int("quadtree.nodes", nodes),
		attribute.Int("quadtree.depth", depth),
	}
}

// RunAttributes describes a simulation run on a span.
func RunAttributes(runID string, bodies int, theta, dt float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("sim.run_id", runID),
		attribute.Int("sim.bodies", bodies),
		attribute.Float64("sim.theta", theta),
		attribute.Float64("sim.dt", dt),
	}
}
