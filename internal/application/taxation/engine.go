package taxation

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/cache"
	"github.com/erp/reversecharge/internal/infrastructure/config"
	"github.com/erp/reversecharge/internal/infrastructure/event"
	"github.com/erp/reversecharge/internal/infrastructure/logger"
	"github.com/erp/reversecharge/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Engine is the reverse charge pipeline assembled from configuration
type Engine struct {
	Config     *config.Config
	Logger     *zap.Logger
	Telemetry  *telemetry.Providers
	Bus        *event.InMemoryEventBus
	Locker     shared.Locker
	Applicator *taxation.ReverseChargeApplicator
	Processor  *OrderTaxesProcessor
}

// EngineOption is a functional option for configuring NewEngine
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger           *zap.Logger
	nominal          []taxation.OrderTaxesApplicator
	collaborators    Collaborators
	locker           shared.Locker
	telemetryOptions []telemetry.ProviderOption
	serviceVersion   string
}

// WithEngineLogger uses l instead of building a logger from the log section
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithNominalApplicators sets the applicators run before reverse charge
func WithNominalApplicators(applicators ...taxation.OrderTaxesApplicator) EngineOption {
	return func(o *engineOptions) {
		o.nominal = append(o.nominal, applicators...)
	}
}

// WithCollaborators overrides the reverse charge ports
func WithCollaborators(c Collaborators) EngineOption {
	return func(o *engineOptions) {
		o.collaborators = c
	}
}

// WithEngineLocker uses locker instead of building one from the lock section
func WithEngineLocker(locker shared.Locker) EngineOption {
	return func(o *engineOptions) {
		o.locker = locker
	}
}

// WithTelemetryOptions passes options to the telemetry providers
func WithTelemetryOptions(opts ...telemetry.ProviderOption) EngineOption {
	return func(o *engineOptions) {
		o.telemetryOptions = append(o.telemetryOptions, opts...)
	}
}

// WithServiceVersion sets the version reported in telemetry resources
func WithServiceVersion(version string) EngineOption {
	return func(o *engineOptions) {
		o.serviceVersion = version
	}
}

// TelemetryConfig converts the telemetry section into provider settings
func TelemetryConfig(cfg *config.Config, serviceVersion string) telemetry.Config {
	return telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}
}

// NewEngine builds logger, telemetry, event bus, locker and processor from cfg.
// The reverse charge step always runs last.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", shared.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	base := options.logger
	if base == nil {
		var err error
		base, err = logger.New(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	providers, err := telemetry.NewProviders(ctx, TelemetryConfig(cfg, options.serviceVersion), base, options.telemetryOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log := telemetry.BridgeLogger(base, providers, level).Named(cfg.App.Name)

	applicator, err := NewReverseChargeApplicatorFromConfig(cfg.ReverseCharge, options.collaborators)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}

	metrics, err := telemetry.NewReverseChargeMetrics(providers.Meter(telemetry.TracerName))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to register metrics: %w", err), providers.Shutdown(ctx))
	}

	locker := options.locker
	if locker == nil {
		locker, err = cache.NewLockerFactory(cfg.Lock, cache.WithLogger(log)).CreateLocker()
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(ctx))
		}
	}

	bus := event.NewInMemoryEventBus(log.Named("events"))
	bus.Subscribe(event.NewReverseChargeAuditHandler(log))

	step := NewReverseChargeStep(applicator, WithStepLogger(log), WithStepMetrics(metrics))
	pipeline := append(append([]taxation.OrderTaxesApplicator(nil), options.nominal...), step)

	processor := NewOrderTaxesProcessor(pipeline,
		WithLocker(locker),
		WithLockTimeout(cfg.Lock.Timeout),
		WithEventPublisher(bus),
		WithMetrics(metrics),
		WithLogger(log),
	)

	log.Info("reverse charge engine ready",
		zap.String("strategy", applicator.Strategy().String()),
		zap.String("zone_match_mode", cfg.ReverseCharge.ZoneMatchMode),
		zap.String("lock_backend", cfg.Lock.Backend),
		zap.Int("nominal_applicators", len(options.nominal)),
	)

	return &Engine{
		Config:     cfg,
		Logger:     log,
		Telemetry:  providers,
		Bus:        bus,
		Locker:     locker,
		Applicator: applicator,
		Processor:  processor,
	}, nil
}

// Start starts the event bus
func (e *Engine) Start(ctx context.Context) error {
	return e.Bus.Start(ctx)
}

// Shutdown stops the bus, releases the locker and flushes telemetry
func (e *Engine) Shutdown(ctx context.Context) error {
	var errs []error
	if err := e.Bus.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop event bus: %w", err))
	}
	if err := e.Locker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close locker: %w", err))
	}
	if err := e.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down telemetry: %w", err))
	}
	_ = logger.Sync(e.Logger)
	return errors.Join(errs...)
}
