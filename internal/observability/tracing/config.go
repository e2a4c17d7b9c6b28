// Package tracing records OpenTelemetry spans for xorcrackd RPCs.
package tracing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/RowanDark/xorcrack/internal/observability/tracing"

// Config controls how tracing is initialised for the process.
type Config struct {
	// ServiceName is recorded on exported spans to identify the emitting service.
	ServiceName string
	// SampleRatio controls probabilistic sampling for root spans. Values outside
	// [0,1] are clamped; 0 disables tracing.
	SampleRatio float64
	// FilePath receives a JSONL copy of every sampled span. When empty, spans
	// are sampled but not persisted.
	FilePath string
}

// Tracer owns the span pipeline of the process.
type Tracer struct {
	provider    trace.TracerProvider
	shutdown    func(context.Context) error
	serviceName string
}

// Setup builds a Tracer for cfg. A zero sample ratio yields a no-op tracer.
// Shutdown must be called to flush spans.
func Setup(ctx context.Context, cfg Config) (*Tracer, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "xorcrackd"
	}

	ratio := math.Max(0, math.Min(1, cfg.SampleRatio))
	if ratio == 0 {
		return &Tracer{
			provider:    noop.NewTracerProvider(),
			shutdown:    func(context.Context) error { return nil },
			serviceName: serviceName,
		}, nil
	}

	resource, err := sdkresource.New(ctx,
		sdkresource.WithTelemetrySDK(),
		sdkresource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	if path := strings.TrimSpace(cfg.FilePath); path != "" {
		exp, err := newFileExporter(path)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exp))
	}

	provider := sdktrace.NewTracerProvider(providerOpts...)
	return &Tracer{provider: provider, shutdown: provider.Shutdown, serviceName: serviceName}, nil
}

// NewWithProvider wraps an existing provider, for tests and embedding.
func NewWithProvider(provider trace.TracerProvider) *Tracer {
	return &Tracer{provider: provider, shutdown: func(context.Context) error { return nil }}
}

// Shutdown flushes exporters and releases resources.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.shutdown(shutdownCtx)
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	if t == nil {
		return ""
	}
	return t.serviceName
}

func (t *Tracer) tracer() trace.Tracer {
	if t == nil || t.provider == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return t.provider.Tracer(instrumentationName)
}
