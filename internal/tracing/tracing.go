// Package tracing wires OpenTelemetry into the scoring service: a tracer
// provider exporting over OTLP, plus span helpers for the rank and score
// paths.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter types accepted in Config.ExporterType. An empty value selects
// ExporterOTLPHTTP.
const (
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// exporterDialTimeout bounds exporter construction.
const exporterDialTimeout = 10 * time.Second

var (
	// ErrServiceName is returned when tracing is enabled without a service name.
	ErrServiceName = errors.New("tracing: service name is required")
	// ErrSamplingRate is returned for a sampling rate outside [0, 1].
	ErrSamplingRate = errors.New("tracing: sampling rate must be between 0 and 1")
	// ErrExporterType is returned for an unknown exporter.
	ErrExporterType = errors.New("tracing: unsupported exporter type")
)

// Config configures the tracer provider. Build it with
// config.Config.TracingConfig.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Environment is recorded as deployment.environment.
	Environment string
	Enabled     bool
	// ExporterType is ExporterOTLPHTTP or ExporterOTLPGRPC.
	ExporterType string
	// OTLPEndpoint is host:port of the collector; empty uses the exporter default.
	OTLPEndpoint string
	// SamplingRate is the fraction of root traces kept. Child spans follow
	// their parent's decision.
	SamplingRate float64
	// InsecureMode disables TLS to the collector.
	InsecureMode bool
	Logger       *slog.Logger
}

func (c Config) validate() error {
	if c.ServiceName == "" {
		return ErrServiceName
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("%w, got %g", ErrSamplingRate, c.SamplingRate)
	}
	switch c.ExporterType {
	case "", ExporterOTLPHTTP, ExporterOTLPGRPC:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrExporterType, c.ExporterType)
	}
}

// Provider owns the SDK tracer provider. A disabled Provider hands out the
// global no-op tracer.
type Provider struct {
	tp       *sdktrace.TracerProvider
	resource *resource.Resource
	config   Config
}

// NewProvider validates cfg, builds the OTLP exporter and installs the
// provider and W3C propagators globally. With tracing disabled it only
// returns an inert Provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !cfg.Enabled {
		cfg.Logger.Info("tracing disabled")
		return &Provider{config: cfg}, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
	defer cancel()
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cfg.Logger.Info("tracing initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"exporter", exporterName(cfg.ExporterType),
		"endpoint", cfg.OTLPEndpoint,
		"sampling_rate", cfg.SamplingRate)

	return &Provider{tp: tp, resource: res, config: cfg}, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.ExporterType == ExporterOTLPGRPC {
		var opts []otlptracegrpc.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.InsecureMode {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	var opts []otlptracehttp.Option
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
	}
	if cfg.InsecureMode {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// newSampler samples root spans at rate and lets children inherit the
// parent's decision, so a sampled rank request keeps its provider spans.
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

func exporterName(t string) string {
	if t == "" {
		return ExporterOTLPHTTP
	}
	return t
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	p.config.Logger.Info("shutting down tracer provider")
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

// Tracer returns a named tracer from this provider, or the global one when
// tracing is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Resource describes the service spans are attributed to. Nil when
// disabled.
func (p *Provider) Resource() *resource.Resource {
	return p.resource
}

// IsEnabled reports whether spans are exported.
func (p *Provider) IsEnabled() bool {
	return p.config.Enabled
}
