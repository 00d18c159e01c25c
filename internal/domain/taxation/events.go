package taxation

import (
	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeReverseChargeApplied = "ReverseChargeApplied"
	EventTypeReverseChargeRevoked = "ReverseChargeRevoked"
)

// ReverseChargeAppliedEvent is raised when an order's VAT has been neutralized
type ReverseChargeAppliedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID              `json:"order_id"`
	OrderNumber      string                 `json:"order_number"`
	BillingCountry   string                 `json:"billing_country"`
	VatPrefix        string                 `json:"vat_prefix"`
	Strategy         NeutralizationStrategy `json:"strategy"`
	Currency         string                 `json:"currency"`
	SubstractedTotal int64                  `json:"substracted_total"`
	Neutralized      int                    `json:"neutralized"`
}

// NewReverseChargeAppliedEvent creates a new ReverseChargeAppliedEvent
func NewReverseChargeAppliedEvent(order *Order, result ReconciliationResult) *ReverseChargeAppliedEvent {
	var billingCountry string
	if order.BillingAddress != nil {
		billingCountry = order.BillingAddress.CountryCode()
	}
	return &ReverseChargeAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReverseChargeApplied, AggregateTypeOrder, order.ID),
		OrderID:          order.ID,
		OrderNumber:      order.Number,
		BillingCountry:   billingCountry,
		VatPrefix:        result.Verdict.VatPrefix,
		Strategy:         result.Strategy,
		Currency:         order.CurrencyCode.String(),
		SubstractedTotal: result.SubstractedTotal,
		Neutralized:      result.Neutralized,
	}
}

// EventType returns the event type name
func (e *ReverseChargeAppliedEvent) EventType() string {
	return EventTypeReverseChargeApplied
}

// ReverseChargeRevokedEvent is raised when an order that had reverse charge applied
// no longer qualifies and its nominal tax has been reinstated
type ReverseChargeRevokedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	Reason      IneligibilityReason `json:"reason"`
	Removed     int                 `json:"removed"`
	Restored    int                 `json:"restored"`
}

// NewReverseChargeRevokedEvent creates a new ReverseChargeRevokedEvent
func NewReverseChargeRevokedEvent(order *Order, result ReconciliationResult) *ReverseChargeRevokedEvent {
	return &ReverseChargeRevokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReverseChargeRevoked, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.Number,
		Reason:          result.Verdict.Reason,
		Removed:         result.Removed,
		Restored:        result.Restored,
	}
}

// EventType returns the event type name
func (e *ReverseChargeRevokedEvent) EventType() string {
	return EventTypeReverseChargeRevoked
}
