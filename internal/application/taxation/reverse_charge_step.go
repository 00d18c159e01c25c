package taxation

import (
	"context"

	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/logger"
	"github.com/erp/reversecharge/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReverseChargeStep runs reverse charge reconciliation as a pipeline step,
// adding logs, span attributes and metrics around the domain applicator
type ReverseChargeStep struct {
	applicator *taxation.ReverseChargeApplicator
	metrics    *telemetry.ReverseChargeMetrics
	logger     *zap.Logger
}

// StepOption is a functional option for configuring ReverseChargeStep
type StepOption func(*ReverseChargeStep)

// WithStepLogger sets the fallback logger, used when ctx carries none
func WithStepLogger(l *zap.Logger) StepOption {
	return func(s *ReverseChargeStep) {
		s.logger = l
	}
}

// WithStepMetrics sets the metrics recorder
func WithStepMetrics(m *telemetry.ReverseChargeMetrics) StepOption {
	return func(s *ReverseChargeStep) {
		s.metrics = m
	}
}

// NewReverseChargeStep wraps applicator
func NewReverseChargeStep(applicator *taxation.ReverseChargeApplicator, opts ...StepOption) *ReverseChargeStep {
	s := &ReverseChargeStep{applicator: applicator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply implements taxation.OrderTaxesApplicator
func (s *ReverseChargeStep) Apply(ctx context.Context, order *taxation.Order, zone *taxation.Zone) {
	s.Reconcile(ctx, order, zone)
}

// Reconcile runs the applicator and reports what it did
func (s *ReverseChargeStep) Reconcile(ctx context.Context, order *taxation.Order, zone *taxation.Zone) taxation.ReconciliationResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "reverse_charge", "apply")
	defer span.End()

	result := s.applicator.Reconcile(order, zone)

	outcome := outcomeOf(result)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEligible, result.Verdict.Eligible,
		telemetry.SpanAttrReason, result.Verdict.Reason.String(),
		telemetry.SpanAttrStrategy, result.Strategy.String(),
		telemetry.SpanAttrSubstracted, result.SubstractedTotal,
	)
	if zone != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrZoneCode, zone.Code)
	}

	log := s.contextLogger(ctx)
	log.Debug("reverse charge evaluated",
		zap.Bool("eligible", result.Verdict.Eligible),
		zap.String("reason", result.Verdict.Reason.String()),
	)

	var currency string
	if order != nil {
		currency = order.GetCurrencyCode().String()
	}

	switch outcome {
	case telemetry.OutcomeApplied:
		log.Info("reverse charge applied",
			zap.String("strategy", result.Strategy.String()),
			zap.String("vat_prefix", result.Verdict.VatPrefix),
			zap.Int("adjustments_neutralized", result.Neutralized),
			zap.Int("adjustments_removed", result.Removed),
			zap.Int64("substracted_total", result.SubstractedTotal),
		)
		telemetry.AddEvent(span, "reverse_charge.applied")
		if s.metrics != nil {
			s.metrics.RecordNeutralized(ctx, currency, result.Strategy.String(), result.SubstractedTotal, result.Neutralized)
		}
	case telemetry.OutcomeRevoked:
		log.Info("reverse charge revoked",
			zap.String("reason", result.Verdict.Reason.String()),
			zap.Int("adjustments_removed", result.Removed),
			zap.Int("adjustments_restored", result.Restored),
		)
		telemetry.AddEvent(span, "reverse_charge.revoked",
			telemetry.SpanAttrReason, result.Verdict.Reason.String(),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordEvaluation(ctx, outcome, result.Verdict.Reason.String(), result.Strategy.String())
	}
	telemetry.SetOK(span)
	return result
}

func (s *ReverseChargeStep) contextLogger(ctx context.Context) *logger.ContextLogger {
	if s.logger != nil {
		if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); !ok {
			return logger.WithLogger(ctx, s.logger)
		}
	}
	return logger.L(ctx)
}

func outcomeOf(result taxation.ReconciliationResult) string {
	switch {
	case result.Applied:
		return telemetry.OutcomeApplied
	case result.Revoked():
		return telemetry.OutcomeRevoked
	default:
		return telemetry.OutcomeIneligible
	}
}

var _ taxation.OrderTaxesApplicator = (*ReverseChargeStep)(nil)
