package event

import (
	"context"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"go.uber.org/zap"
)

// ReverseChargeAuditHandler writes reverse charge events to the audit log
type ReverseChargeAuditHandler struct {
	logger *zap.Logger
}

// NewReverseChargeAuditHandler creates a new audit handler
func NewReverseChargeAuditHandler(logger *zap.Logger) *ReverseChargeAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReverseChargeAuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns the reverse charge event types
func (h *ReverseChargeAuditHandler) EventTypes() []string {
	return []string{
		taxation.EventTypeReverseChargeApplied,
		taxation.EventTypeReverseChargeRevoked,
	}
}

// Handle logs the event; other event types are ignored
func (h *ReverseChargeAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *taxation.ReverseChargeAppliedEvent:
		h.logger.Info("reverse charge applied",
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
			zap.String("billing_country", e.BillingCountry),
			zap.String("vat_prefix", e.VatPrefix),
			zap.String("strategy", e.Strategy.String()),
			zap.String("currency", e.Currency),
			zap.Int64("substracted_total", e.SubstractedTotal),
			zap.Int("neutralized", e.Neutralized),
		)
	case *taxation.ReverseChargeRevokedEvent:
		h.logger.Info("reverse charge revoked",
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
			zap.String("reason", e.Reason.String()),
			zap.Int("removed", e.Removed),
			zap.Int("restored", e.Restored),
		)
	}
	return nil
}

var _ shared.EventHandler = (*ReverseChargeAuditHandler)(nil)
