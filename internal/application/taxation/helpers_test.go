package taxation

import (
	"testing"

	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/addressing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newEUZone() *taxation.Zone {
	return taxation.NewZone("EU", "European Union", "AT", "DE", "FR", "HU", "PL")
}

// newOrder builds an order placed in a French channel, billed to country with vatNumber
func newOrder(t *testing.T, zone *taxation.Zone, country, vatNumber string, currency valueobject.Currency) *taxation.Order {
	t.Helper()
	channel := taxation.NewChannel("WEB-FR", taxation.WithBaseCountry("FR"), taxation.WithEuropeanZone(zone))
	address := valueobject.MustNewAddress(country, valueobject.WithVatNumber(vatNumber))
	order, err := taxation.NewOrder("ORD-1001", currency, taxation.WithChannel(channel), taxation.WithBillingAddress(address))
	require.NoError(t, err)

	item, err := taxation.NewOrderItem("SKU-1", 1200, 2)
	require.NoError(t, err)
	order.AddItem(item)
	return order
}

func euRate() TaxRate {
	return TaxRate{
		ZoneCode:        "EU",
		Label:           "VAT 20%",
		Rate:            decimal.RequireFromString("0.20"),
		IncludedInPrice: true,
	}
}

func newTestApplicator(strategy taxation.NeutralizationStrategy) *taxation.ReverseChargeApplicator {
	return taxation.NewReverseChargeApplicator(
		taxation.NewEligibilityEvaluator(addressing.NewPrefixVatNumberParser()),
		taxation.WithNeutralizationStrategy(strategy),
	)
}

func newNominal(t *testing.T) *UnitTaxApplicator {
	t.Helper()
	a, err := NewUnitTaxApplicator(euRate())
	require.NoError(t, err)
	return a
}

type adjustmentView struct {
	Kind    taxation.AdjustmentKind
	Amount  int64
	Neutral bool
}

func adjustmentViews(order *taxation.Order) []adjustmentView {
	var views []adjustmentView
	for _, a := range order.GetAdjustmentsRecursively("") {
		views = append(views, adjustmentView{Kind: a.Kind, Amount: a.Amount, Neutral: a.Neutral})
	}
	return views
}
