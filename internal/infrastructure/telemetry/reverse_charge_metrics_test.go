package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/reversecharge/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	result := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			result[m.Name] = m.Data
		}
	}
	return result
}

func sumByAttribute(t *testing.T, data metricdata.Aggregation, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)

	result := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		result[v.AsString()] += dp.Value
	}
	return result
}

func TestNewReverseChargeMetrics(t *testing.T) {
	m, err := telemetry.NewReverseChargeMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordEvaluation(ctx, telemetry.OutcomeApplied, "", "aggregate")
		m.RecordNeutralized(ctx, "EUR", "aggregate", -100, 1)
		m.RecordDuration(ctx, time.Millisecond, telemetry.OutcomeApplied)
	})
}

func TestNewReverseChargeMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewReverseChargeMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewReverseChargeMetrics: meter cannot be nil", err.Error())
}

func TestReverseChargeMetrics_Recording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewReverseChargeMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEvaluation(ctx, telemetry.OutcomeApplied, "eligible", "aggregate")
	m.RecordEvaluation(ctx, telemetry.OutcomeApplied, "eligible", "aggregate")
	m.RecordEvaluation(ctx, telemetry.OutcomeIneligible, "domestic_order", "aggregate")
	m.RecordNeutralized(ctx, "HUF", "aggregate", -1200, 3)
	m.RecordNeutralized(ctx, "EUR", "aggregate", -100, 1)
	m.RecordDuration(ctx, 2*time.Millisecond, telemetry.OutcomeApplied)

	data := collect(t, reader)

	assert.Equal(t, map[string]int64{"applied": 2, "ineligible": 1},
		sumByAttribute(t, data["vat_reverse_charge_evaluations_total"], telemetry.AttrOutcome))
	assert.Equal(t, map[string]int64{"HUF": 1200, "EUR": 100},
		sumByAttribute(t, data["vat_reverse_charge_substracted_amount_total"], telemetry.AttrCurrency))
	assert.Equal(t, map[string]int64{"HUF": 3, "EUR": 1},
		sumByAttribute(t, data["vat_reverse_charge_neutralized_adjustments_total"], telemetry.AttrCurrency))

	hist, ok := data["vat_reverse_charge_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{Op: "Record", Err: "failed"}
	assert.Equal(t, "Record: failed", err.Error())
}
