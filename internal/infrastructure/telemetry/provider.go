// Package telemetry provides OpenTelemetry traces, metrics and logs for the reverse charge engine.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config holds telemetry configuration
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	ExportInterval    time.Duration // metrics, default 60s
	LogsEnabled       bool
}

// Providers owns the SDK providers for all three signals.
// When telemetry is disabled every accessor returns a no-op implementation.
type Providers struct {
	config Config
	logger *zap.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
}

// ProviderOption customizes how signals are exported
type ProviderOption func(*providerOptions)

type providerOptions struct {
	spanProcessors []sdktrace.SpanProcessor
	metricReaders  []sdkmetric.Reader
	logProcessors  []sdklog.Processor
	setGlobal      bool
}

// WithSpanProcessor exports spans through sp instead of the OTLP exporter
func WithSpanProcessor(sp sdktrace.SpanProcessor) ProviderOption {
	return func(o *providerOptions) {
		o.spanProcessors = append(o.spanProcessors, sp)
	}
}

// WithMetricReader collects metrics through r instead of the OTLP exporter
func WithMetricReader(r sdkmetric.Reader) ProviderOption {
	return func(o *providerOptions) {
		o.metricReaders = append(o.metricReaders, r)
	}
}

// WithLogProcessor exports log records through p instead of the OTLP exporter
func WithLogProcessor(p sdklog.Processor) ProviderOption {
	return func(o *providerOptions) {
		o.logProcessors = append(o.logProcessors, p)
	}
}

// WithoutGlobal leaves the global otel providers untouched
func WithoutGlobal() ProviderOption {
	return func(o *providerOptions) {
		o.setGlobal = false
	}
}

// NewProviders creates the trace, metric and log providers described by cfg
// and installs them as the global otel providers.
func NewProviders(ctx context.Context, cfg Config, logger *zap.Logger, opts ...ProviderOption) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{config: cfg, logger: logger}

	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op providers")
		return p, nil
	}

	options := &providerOptions{setGlobal: true}
	for _, opt := range opts {
		opt(options)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	if p.tracerProvider, err = newTracerProvider(ctx, cfg, res, options.spanProcessors); err != nil {
		return nil, err
	}
	if p.meterProvider, err = newMeterProvider(ctx, cfg, res, options.metricReaders); err != nil {
		return nil, errors.Join(err, p.tracerProvider.Shutdown(ctx))
	}
	if cfg.LogsEnabled {
		if p.loggerProvider, err = newLoggerProvider(ctx, cfg, res, options.logProcessors); err != nil {
			return nil, errors.Join(err, p.tracerProvider.Shutdown(ctx), p.meterProvider.Shutdown(ctx))
		}
	}

	if options.setGlobal {
		otel.SetTracerProvider(p.tracerProvider)
		otel.SetMeterProvider(p.meterProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		if p.loggerProvider != nil {
			global.SetLoggerProvider(p.loggerProvider)
		}
	}

	logger.Info("OpenTelemetry providers initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("logs_enabled", p.loggerProvider != nil),
	)
	return p, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "1.0.0"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource, processors []sdktrace.SpanProcessor) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	}
	if len(processors) == 0 {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	for _, sp := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(sp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource, readers []sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if len(readers) == 0 {
		interval := cfg.ExportInterval
		if interval == 0 {
			interval = 60 * time.Second
		}
		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = []sdkmetric.Reader{sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))}
	}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, cfg Config, res *resource.Resource, processors []sdklog.Processor) (*sdklog.LoggerProvider, error) {
	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if len(processors) == 0 {
		exporterOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlploggrpc.WithInsecure())
		}
		exporter, err := otlploggrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
		}
		processors = []sdklog.Processor{sdklog.NewBatchProcessor(exporter)}
	}
	for _, p := range processors {
		opts = append(opts, sdklog.WithProcessor(p))
	}
	return sdklog.NewLoggerProvider(opts...), nil
}

// IsEnabled returns whether the SDK providers are running
func (p *Providers) IsEnabled() bool {
	return p.tracerProvider != nil
}

// GetConfig returns a copy of the telemetry configuration
func (p *Providers) GetConfig() Config {
	return p.config
}

// Tracer returns a named tracer, no-op when disabled
func (p *Providers) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracerProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(name, opts...)
	}
	return p.tracerProvider.Tracer(name, opts...)
}

// Meter returns a named meter, no-op when disabled
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.meterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name, opts...)
	}
	return p.meterProvider.Meter(name, opts...)
}

// LoggerProvider returns the log provider, nil unless logs are enabled
func (p *Providers) LoggerProvider() *sdklog.LoggerProvider {
	return p.loggerProvider
}

// ForceFlush exports everything recorded so far
func (p *Providers) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.ForceFlush(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.ForceFlush(ctx))
	}
	if p.loggerProvider != nil {
		errs = append(errs, p.loggerProvider.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every provider
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() {
		return nil
	}
	p.logger.Info("Shutting down OpenTelemetry providers...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if err := p.tracerProvider.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	if p.loggerProvider != nil {
		if err := p.loggerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown logger provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Error shutting down telemetry", zap.Error(err))
		return err
	}
	return nil
}
