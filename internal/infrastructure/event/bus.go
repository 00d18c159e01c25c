package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"go.uber.org/zap"
)

// DeliveryStats counts handler invocations for one event type
type DeliveryStats struct {
	Delivered int64
	Failed    int64
}

// InMemoryEventBus dispatches order events synchronously to in-process handlers.
// Handler failures are logged and counted, never returned to the publisher.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool

	mu    sync.Mutex
	stats map[string]DeliveryStats
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		stats:    make(map[string]DeliveryStats),
	}
}

// Publish delivers events in order. Nil events are skipped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			err := b.dispatch(ctx, handler, event)
			b.record(event.EventType(), err)
			if err != nil {
				b.logger.Error("handler failed to process event", append(eventFields(event), zap.Error(err))...)
			}
		}
	}
	return nil
}

// Subscribe routes eventTypes to handler, defaulting to the handler's own EventTypes
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Strings("routed_event_types", b.registry.EventTypes()))
	return nil
}

// Stop marks the bus as stopped. Dispatch is synchronous so nothing is in flight.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped", zap.Int64("failures", b.Failures()))
	return nil
}

// IsRunning reports whether Start was called without a later Stop
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

// Stats returns the delivery counts for eventType
func (b *InMemoryEventBus) Stats(eventType string) DeliveryStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats[eventType]
}

// Failures returns how many handler invocations failed or panicked
func (b *InMemoryEventBus) Failures() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var failed int64
	for _, s := range b.stats {
		failed += s.Failed
	}
	return failed
}

func (b *InMemoryEventBus) record(eventType string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats[eventType]
	if err != nil {
		s.Failed++
	} else {
		s.Delivered++
	}
	b.stats[eventType] = s
}

// dispatch turns a handler panic into an error
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// eventFields identifies event in logs, naming the order for reverse charge events
func eventFields(event shared.DomainEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}
	switch e := event.(type) {
	case *taxation.ReverseChargeAppliedEvent:
		fields = append(fields, zap.String("order_number", e.OrderNumber), zap.String("strategy", e.Strategy.String()))
	case *taxation.ReverseChargeRevokedEvent:
		fields = append(fields, zap.String("order_number", e.OrderNumber), zap.String("reason", e.Reason.String()))
	}
	return fields
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
