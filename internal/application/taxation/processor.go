package taxation

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/cache"
	"github.com/erp/reversecharge/internal/infrastructure/logger"
	"github.com/erp/reversecharge/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNilOrder is returned when Process is called without an order
var ErrNilOrder = shared.NewDomainError("INVALID_ORDER", "Order cannot be nil")

// ProcessResult summarizes one run of the taxation pipeline
type ProcessResult struct {
	OrderID  uuid.UUID            `json:"order_id"`
	TaxTotal int64                `json:"tax_total"`
	Total    int64                `json:"total"`
	Events   []shared.DomainEvent `json:"-"`
	Duration time.Duration        `json:"duration"`
}

// OrderTaxesProcessor runs the taxation pipeline on an order.
// Applicators run in order, so nominal tax applicators go before reverse charge.
// Runs on the same order are serialized through the locker.
type OrderTaxesProcessor struct {
	applicators []taxation.OrderTaxesApplicator
	locker      shared.Locker
	lockTimeout time.Duration
	publisher   shared.EventPublisher
	metrics     *telemetry.ReverseChargeMetrics
	logger      *zap.Logger
}

// ProcessorOption is a functional option for configuring OrderTaxesProcessor
type ProcessorOption func(*OrderTaxesProcessor)

// WithLocker sets the per-order locker
func WithLocker(locker shared.Locker) ProcessorOption {
	return func(p *OrderTaxesProcessor) {
		if locker != nil {
			p.locker = locker
		}
	}
}

// WithLockTimeout bounds the wait for a busy order; zero waits as long as ctx allows
func WithLockTimeout(timeout time.Duration) ProcessorOption {
	return func(p *OrderTaxesProcessor) {
		p.lockTimeout = timeout
	}
}

// WithEventPublisher sets where the order's domain events are published after a run
func WithEventPublisher(publisher shared.EventPublisher) ProcessorOption {
	return func(p *OrderTaxesProcessor) {
		p.publisher = publisher
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.ReverseChargeMetrics) ProcessorOption {
	return func(p *OrderTaxesProcessor) {
		p.metrics = m
	}
}

// WithLogger sets the logger used when the context carries none
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *OrderTaxesProcessor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewOrderTaxesProcessor creates a processor running applicators in the given order.
// It locks orders in memory unless WithLocker is given.
func NewOrderTaxesProcessor(applicators []taxation.OrderTaxesApplicator, opts ...ProcessorOption) *OrderTaxesProcessor {
	p := &OrderTaxesProcessor{
		applicators: make([]taxation.OrderTaxesApplicator, 0, len(applicators)),
		logger:      zap.NewNop(),
	}
	for _, a := range applicators {
		if a != nil {
			p.applicators = append(p.applicators, a)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.locker == nil {
		p.locker = cache.NewInMemoryLocker()
	}
	return p
}

// Process runs every applicator on order for zone, then publishes and clears the order's
// pending domain events. Events stay on the order when no publisher is set.
func (p *OrderTaxesProcessor) Process(ctx context.Context, order *taxation.Order, zone *taxation.Zone) (*ProcessResult, error) {
	if order == nil {
		return nil, ErrNilOrder
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "order_taxes", "process")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrOrderNumber, order.Number,
		telemetry.SpanAttrCurrency, order.GetCurrencyCode().String(),
	)

	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); !ok {
		ctx = logger.WithContext(ctx, p.logger)
	}
	ctx = logger.WithOrderID(ctx, order.ID.String())
	if channel := order.GetChannel(); channel != nil {
		ctx = logger.WithChannelCode(ctx, channel.Code)
	}
	log := logger.L(ctx)

	unlock, err := p.lock(ctx, order.ID.String())
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("order is busy, taxes not processed", zap.Error(err))
		return nil, err
	}
	defer unlock()

	start := time.Now()

	for _, applicator := range p.applicators {
		applicator.Apply(ctx, order, zone)
	}

	result := &ProcessResult{
		OrderID:  order.ID,
		TaxTotal: order.TaxTotal(),
		Total:    order.Total(),
		Duration: time.Since(start),
	}
	if events := order.GetDomainEvents(); len(events) > 0 {
		result.Events = append([]shared.DomainEvent(nil), events...)
	}

	if p.metrics != nil {
		p.metrics.RecordDuration(ctx, result.Duration, outcomeOfEvents(result.Events))
	}

	if p.publisher != nil && len(result.Events) > 0 {
		if err := p.publisher.Publish(ctx, result.Events...); err != nil {
			telemetry.RecordError(span, err)
			log.Error("failed to publish order tax events", zap.Error(err))
			return result, fmt.Errorf("failed to publish order tax events: %w", err)
		}
		order.ClearDomainEvents()
	}

	log.Debug("order taxes processed",
		zap.Int64("tax_total", result.TaxTotal),
		zap.Int64("total", result.Total),
		zap.Int("events", len(result.Events)),
		zap.Duration("duration", result.Duration),
	)
	telemetry.SetOK(span)
	return result, nil
}

func (p *OrderTaxesProcessor) lock(ctx context.Context, key string) (shared.Unlock, error) {
	if p.lockTimeout <= 0 {
		return p.locker.Lock(ctx, key)
	}
	lockCtx, cancel := context.WithTimeout(ctx, p.lockTimeout)
	defer cancel()
	return p.locker.Lock(lockCtx, key)
}

func outcomeOfEvents(events []shared.DomainEvent) string {
	outcome := telemetry.OutcomeIneligible
	for _, e := range events {
		switch e.EventType() {
		case taxation.EventTypeReverseChargeApplied:
			return telemetry.OutcomeApplied
		case taxation.EventTypeReverseChargeRevoked:
			outcome = telemetry.OutcomeRevoked
		}
	}
	return outcome
}
