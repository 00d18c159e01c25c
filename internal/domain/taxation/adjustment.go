package taxation

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentKind tags what an adjustment represents
type AdjustmentKind string

const (
	// AdjustmentKindTax is nominal VAT computed by the taxation pipeline
	AdjustmentKindTax            AdjustmentKind = "tax"
	// AdjustmentKindSubstractedTax is the synthetic kind written by reverse-charge reconciliation.
	// The spelling is kept for compatibility with stored orders.
	AdjustmentKindSubstractedTax AdjustmentKind = "substracted_tax"
	AdjustmentKindShipping       AdjustmentKind = "shipping"
	AdjustmentKindPromotion      AdjustmentKind = "order_promotion"
)

// String returns the string representation of the kind
func (k AdjustmentKind) String() string {
	return string(k)
}

// IsValid returns true for the kinds known to the order model
func (k AdjustmentKind) IsValid() bool {
	switch k {
	case AdjustmentKindTax, AdjustmentKindSubstractedTax, AdjustmentKindShipping, AdjustmentKindPromotion:
		return true
	}
	return false
}

// Adjustment is a signed monetary entry attached to exactly one Adjustable.
// Amounts are in minor currency units. Neutral adjustments are informational
// (e.g. VAT already included in the unit price) and do not change the payable total.
//
// An adjustment is never edited after it is attached: it is removed and a new one is added.
type Adjustment struct {
	ID         uuid.UUID
	Kind       AdjustmentKind
	Label      string
	Amount     int64
	Neutral    bool
	OriginCode string
	CreatedAt  time.Time

	adjustable Adjustable
}

// NewAdjustment creates a detached adjustment
func NewAdjustment(kind AdjustmentKind, label string, amount int64, neutral bool) *Adjustment {
	return &Adjustment{
		ID:        uuid.New(),
		Kind:      kind,
		Label:     label,
		Amount:    amount,
		Neutral:   neutral,
		CreatedAt: time.Now(),
	}
}

// GetAdjustable returns the owner of the adjustment, nil when detached
func (a *Adjustment) GetAdjustable() Adjustable {
	return a.adjustable
}

// IsAttached returns true if the adjustment currently belongs to an adjustable
func (a *Adjustment) IsAttached() bool {
	return a.adjustable != nil
}

// IsCharge returns true for positive amounts
func (a *Adjustment) IsCharge() bool {
	return a.Amount > 0
}

// IsCredit returns true for negative amounts
func (a *Adjustment) IsCredit() bool {
	return a.Amount < 0
}

// adjustmentFactory is the default AdjustmentFactory
type adjustmentFactory struct{}

// NewAdjustmentFactory returns the default AdjustmentFactory
func NewAdjustmentFactory() AdjustmentFactory {
	return adjustmentFactory{}
}

// CreateWithData creates a detached adjustment with the given data
func (adjustmentFactory) CreateWithData(kind AdjustmentKind, label string, amount int64, neutral bool) *Adjustment {
	return NewAdjustment(kind, label, amount, neutral)
}
