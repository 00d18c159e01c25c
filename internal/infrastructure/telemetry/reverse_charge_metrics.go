package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	AttrOutcome  = attribute.Key("outcome")
	AttrReason   = attribute.Key("reason")
	AttrStrategy = attribute.Key("strategy")
	AttrCurrency = attribute.Key("currency")
)

// Evaluation outcomes
const (
	OutcomeApplied    = "applied"
	OutcomeIneligible = "ineligible"
	OutcomeRevoked    = "revoked"
)

// ReverseChargeMetrics records what reverse charge reconciliation does to orders
type ReverseChargeMetrics struct {
	evaluationsTotal      *Counter
	substractedAmount     *Counter
	neutralizedAdjustment *Counter
	duration              *Histogram
}

// NewReverseChargeMetrics registers the reverse charge instruments on meter
func NewReverseChargeMetrics(meter metric.Meter) (*ReverseChargeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ReverseChargeMetrics{}
	var err error

	m.evaluationsTotal, err = NewCounter(meter,
		"vat_reverse_charge_evaluations_total",
		"Number of orders reconciled for reverse charge",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	// counters are monotonic, so the absolute substracted amount is recorded
	m.substractedAmount, err = NewCounter(meter,
		"vat_reverse_charge_substracted_amount_total",
		"VAT neutralized by reverse charge in minor currency units",
		"{minor_units}",
	)
	if err != nil {
		return nil, err
	}

	m.neutralizedAdjustment, err = NewCounter(meter,
		"vat_reverse_charge_neutralized_adjustments_total",
		"Tax adjustments offset, replaced or superseded",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "vat_reverse_charge_duration_seconds",
		Description: "Time spent running the taxation pipeline for one order",
		Unit:        "s",
		Boundaries:  []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordEvaluation counts one reconciled order
func (m *ReverseChargeMetrics) RecordEvaluation(ctx context.Context, outcome, reason, strategy string) {
	m.evaluationsTotal.Inc(ctx,
		AttrOutcome.String(outcome),
		AttrReason.String(reason),
		AttrStrategy.String(strategy),
	)
}

// RecordNeutralized records the VAT removed from an order
func (m *ReverseChargeMetrics) RecordNeutralized(ctx context.Context, currency, strategy string, substracted int64, adjustments int) {
	if substracted < 0 {
		substracted = -substracted
	}
	attrs := []attribute.KeyValue{AttrCurrency.String(currency), AttrStrategy.String(strategy)}
	m.substractedAmount.Add(ctx, substracted, attrs...)
	m.neutralizedAdjustment.Add(ctx, int64(adjustments), attrs...)
}

// RecordDuration records how long processing one order took
func (m *ReverseChargeMetrics) RecordDuration(ctx context.Context, d time.Duration, outcome string) {
	m.duration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}
