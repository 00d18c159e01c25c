package taxation

import (
	"context"
	"testing"
	"time"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/cache"
	"github.com/erp/reversecharge/internal/infrastructure/config"
	"github.com/erp/reversecharge/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEngineConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "reverse-charge", Env: "testing"},
		Log: config.LogConfig{Level: "debug", Format: "console", Output: "stdout"},
		ReverseCharge: config.ReverseChargeConfig{
			Strategy:              "aggregate",
			ZoneMatchMode:         "channel_identity",
			RoundedCurrencies:     []string{"HUF", "RON"},
			RoundingUnit:          100,
			AdjustmentLabel:       "0% VAT",
			EuropeanZoneCode:      "EU",
			EuropeanZoneCountries: []string{"AT", "DE", "FR", "HU", "PL"},
		},
		Lock: config.LockConfig{
			Backend:       "memory",
			KeyPrefix:     "test:lock:",
			TTL:           time.Second,
			RetryInterval: time.Millisecond,
			Redis:         config.RedisConfig{Host: "localhost", Port: 6379},
		},
		Telemetry: config.TelemetryConfig{
			CollectorEndpoint: "localhost:4317",
			SamplingRatio:     1,
			ServiceName:       "reverse-charge",
			ExportInterval:    time.Second,
		},
	}
}

func TestNewEngine(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewEngine(context.Background(), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := newEngineConfig()
		cfg.ReverseCharge.Strategy = "split"
		_, err := NewEngine(context.Background(), cfg, WithEngineLogger(zap.NewNop()))
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("processes orders end to end", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		engine, err := NewEngine(context.Background(), newEngineConfig(),
			WithEngineLogger(zap.New(core)),
			WithNominalApplicators(newNominal(t)),
		)
		require.NoError(t, err)
		require.NoError(t, engine.Start(context.Background()))
		defer func() { assert.NoError(t, engine.Shutdown(context.Background())) }()

		assert.False(t, engine.Telemetry.IsEnabled())
		assert.IsType(t, &cache.InMemoryLocker{}, engine.Locker)
		assert.Equal(t, taxation.NeutralizationAggregate, engine.Applicator.Strategy())

		zone := NewEuropeanZone(engine.Config.ReverseCharge)
		order := newOrder(t, zone, "DE", "DE123456789", valueobject.EUR)

		result, err := engine.Processor.Process(context.Background(), order, zone)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.TaxTotal)
		assert.Empty(t, order.GetDomainEvents())

		audit := logs.FilterLoggerName("reverse-charge.audit").FilterMessage("reverse charge applied").All()
		require.Len(t, audit, 1)
		assert.Equal(t, "ORD-1001", audit[0].ContextMap()["order_number"])
		assert.Equal(t, 1, logs.FilterMessage("reverse charge engine ready").Len())
	})

	t.Run("custom locker is used", func(t *testing.T) {
		locker := cache.NewInMemoryLocker()
		engine, err := NewEngine(context.Background(), newEngineConfig(),
			WithEngineLogger(zap.NewNop()),
			WithEngineLocker(locker),
		)
		require.NoError(t, err)
		defer func() { _ = engine.Shutdown(context.Background()) }()

		assert.Same(t, locker, engine.Locker)
	})
}

func TestNewEngine_TelemetryEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := newEngineConfig()
	cfg.Telemetry.Enabled = true

	reader := sdkmetric.NewManualReader()
	engine, err := NewEngine(ctx, cfg,
		WithEngineLogger(zap.NewNop()),
		WithNominalApplicators(newNominal(t)),
		WithServiceVersion("1.2.3"),
		WithTelemetryOptions(
			telemetry.WithSpanProcessor(tracetest.NewSpanRecorder()),
			telemetry.WithMetricReader(reader),
			telemetry.WithoutGlobal(),
		),
	)
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Shutdown(ctx)) }()

	assert.True(t, engine.Telemetry.IsEnabled())
	assert.Equal(t, "1.2.3", engine.Telemetry.GetConfig().ServiceVersion)

	zone := NewEuropeanZone(cfg.ReverseCharge)
	order := newOrder(t, zone, "DE", "DE123456789", valueobject.EUR)
	_, err = engine.Processor.Process(ctx, order, zone)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{telemetry.OutcomeApplied: 1}, evaluationCounts(t, reader))
}

func TestTelemetryConfig(t *testing.T) {
	cfg := newEngineConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.LogsEnabled = true
	cfg.Telemetry.Insecure = true

	tc := TelemetryConfig(cfg, "v1")
	assert.True(t, tc.Enabled)
	assert.True(t, tc.LogsEnabled)
	assert.True(t, tc.Insecure)
	assert.Equal(t, "localhost:4317", tc.CollectorEndpoint)
	assert.Equal(t, "reverse-charge", tc.ServiceName)
	assert.Equal(t, "v1", tc.ServiceVersion)
	assert.Equal(t, 1.0, tc.SamplingRatio)
	assert.Equal(t, time.Second, tc.ExportInterval)
}
