package taxation

import (
	"context"
	"fmt"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/shopspring/decimal"
)

// TaxRate is the VAT rate charged on orders taxed in one zone
type TaxRate struct {
	ZoneCode string
	Label    string
	Rate     decimal.Decimal
	// IncludedInPrice marks the tax as already part of the unit price, which makes it neutral
	IncludedInPrice bool
}

// TaxFor returns the tax on one unit priced at unitPrice minor units, rounded half away from zero
func (r TaxRate) TaxFor(unitPrice int64) int64 {
	price := decimal.NewFromInt(unitPrice)
	if r.IncludedInPrice {
		// price * rate / (1 + rate)
		return price.Mul(r.Rate).DivRound(decimal.NewFromInt(1).Add(r.Rate), 8).Round(0).IntPart()
	}
	return price.Mul(r.Rate).Round(0).IntPart()
}

// UnitTaxApplicator computes nominal VAT per order item unit.
// Every run replaces the tax adjustments of the previous run.
type UnitTaxApplicator struct {
	rates   map[string]TaxRate
	factory taxation.AdjustmentFactory
}

// NewUnitTaxApplicator creates an applicator for the given zone rates
func NewUnitTaxApplicator(rates ...TaxRate) (*UnitTaxApplicator, error) {
	a := &UnitTaxApplicator{
		rates:   make(map[string]TaxRate, len(rates)),
		factory: taxation.NewAdjustmentFactory(),
	}
	for _, r := range rates {
		if r.ZoneCode == "" {
			return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate zone code cannot be empty")
		}
		if r.Rate.IsNegative() {
			return nil, shared.NewDomainError("INVALID_TAX_RATE",
				fmt.Sprintf("Tax rate for zone %s cannot be negative", r.ZoneCode))
		}
		if _, exists := a.rates[r.ZoneCode]; exists {
			return nil, shared.NewDomainError("DUPLICATE_TAX_RATE",
				fmt.Sprintf("Tax rate for zone %s is defined twice", r.ZoneCode))
		}
		a.rates[r.ZoneCode] = r
	}
	return a, nil
}

// Apply implements taxation.OrderTaxesApplicator.
// Orders taxed in a zone without a rate end up with no tax.
func (a *UnitTaxApplicator) Apply(_ context.Context, order *taxation.Order, zone *taxation.Zone) {
	if order == nil {
		return
	}

	order.RemoveAdjustmentsRecursively(taxation.AdjustmentKindTax)
	defer order.RecalculateAdjustmentsTotal()

	if zone == nil {
		return
	}
	rate, ok := a.rates[zone.Code]
	if !ok {
		return
	}

	for _, item := range order.Items {
		amount := rate.TaxFor(item.UnitPrice)
		if amount == 0 {
			continue
		}
		for _, unit := range item.Units {
			unit.AddAdjustment(a.factory.CreateWithData(taxation.AdjustmentKindTax, rate.Label, amount, rate.IncludedInPrice))
		}
	}
}

var _ taxation.OrderTaxesApplicator = (*UnitTaxApplicator)(nil)
