package taxation

import (
	"context"

	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
)

// AdjustmentFactory creates detached adjustments
type AdjustmentFactory interface {
	CreateWithData(kind AdjustmentKind, label string, amount int64, neutral bool) *Adjustment
}

// ZoneMatcher returns every zone that contains the address
type ZoneMatcher interface {
	MatchAll(address valueobject.Address) []*Zone
}

// VatNumberParser splits a VAT number into its two-letter country prefix and the rest.
// ok is false when the number cannot be split.
type VatNumberParser interface {
	Split(vatNumber string) (prefix, remainder string, ok bool)
}

// OrderTaxesApplicator is a step of the taxation pipeline run against an order for a tax zone
type OrderTaxesApplicator interface {
	Apply(ctx context.Context, order *Order, zone *Zone)
}
