// Package observability wires OpenTelemetry tracing for objectdag.
package observability

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName names the tracer when the configuration leaves it empty.
const DefaultServiceName = "objectdag"

var (
	mu          sync.RWMutex
	serviceName = DefaultServiceName
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// TracingOption customizes InitTracing.
type TracingOption func(*tracingOptions)

type tracingOptions struct {
	exporter sdktrace.SpanExporter
	sync     bool
}

// WithExporter replaces the stdout exporter.
func WithExporter(exporter sdktrace.SpanExporter) TracingOption {
	return func(o *tracingOptions) {
		o.exporter = exporter
	}
}

// WithSyncExport exports each span as it ends instead of batching.
func WithSyncExport() TracingOption {
	return func(o *tracingOptions) {
		o.sync = true
	}
}

// InitTracing installs a global tracer provider. When tracing is disabled
// the global no-op provider stays in place and the returned ShutdownFunc
// does nothing.
func InitTracing(cfg config.TracingConfig, opts ...TracingOption) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	o := &tracingOptions{}
	for _, opt := range opts {
		opt(o)
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(name)),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return noop, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	var processor sdktrace.TracerProviderOption
	if o.sync {
		processor = sdktrace.WithSyncer(exporter)
	} else {
		processor = sdktrace.WithBatcher(exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		processor,
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mu.Lock()
	serviceName = name
	mu.Unlock()

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the current global provider.
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return otel.Tracer(serviceName)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SaveEvent adds a transport save event to the span in ctx.
func SaveEvent(ctx context.Context, transport, id string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("transport", transport),
		attribute.String("record.id", id),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	span.AddEvent("save", trace.WithAttributes(attrs...))
}

// InjectHeaders writes the trace context of ctx into headers.
func InjectHeaders(ctx context.Context, headers map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
}

// ExtractHeaders returns ctx extended with the trace context in headers.
func ExtractHeaders(ctx context.Context, headers map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}
