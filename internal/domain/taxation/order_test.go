package taxation

import (
	"testing"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func newTestOrder(t *testing.T, opts ...OrderOption) *Order {
	t.Helper()
	order, err := NewOrder("ORD-0001", valueobject.EUR, opts...)
	require.NoError(t, err)
	return order
}

func addTestItem(t *testing.T, order *Order, productCode string, unitPrice int64, quantity int) *OrderItem {
	t.Helper()
	item, err := NewOrderItem(productCode, unitPrice, quantity)
	require.NoError(t, err)
	order.AddItem(item)
	return item
}

func taxAdjustment(amount int64, neutral bool) *Adjustment {
	return NewAdjustment(AdjustmentKindTax, "VAT", amount, neutral)
}

// ============================================
// Order construction
// ============================================

func TestNewOrder(t *testing.T) {
	t.Run("valid order", func(t *testing.T) {
		channel := NewChannel("WEB")
		address := valueobject.MustNewAddress("de", valueobject.WithVatNumber("DE123456789"))

		order, err := NewOrder("ORD-1", valueobject.HUF, WithChannel(channel), WithBillingAddress(address))
		require.NoError(t, err)

		assert.Equal(t, "ORD-1", order.Number)
		assert.Equal(t, valueobject.HUF, order.GetCurrencyCode())
		assert.Same(t, channel, order.GetChannel())
		require.NotNil(t, order.GetBillingAddress())
		assert.Equal(t, "DE", order.GetBillingAddress().CountryCode())
		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.Empty(t, order.GetDomainEvents())
	})

	t.Run("without optional parts", func(t *testing.T) {
		order := newTestOrder(t)
		assert.Nil(t, order.GetChannel())
		assert.Nil(t, order.GetBillingAddress())
	})

	t.Run("empty number", func(t *testing.T) {
		_, err := NewOrder("", valueobject.EUR)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ORDER_NUMBER", domainErr.Code)
	})

	t.Run("invalid currency", func(t *testing.T) {
		_, err := NewOrder("ORD-1", valueobject.Currency("euro"))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CURRENCY", domainErr.Code)
	})
}

func TestNewOrderItem(t *testing.T) {
	tests := []struct {
		name        string
		productCode string
		unitPrice   int64
		quantity    int
		errCode     string
	}{
		{"valid", "SKU-1", 1000, 3, ""},
		{"free item", "SKU-1", 0, 1, ""},
		{"empty product", "", 1000, 1, "INVALID_PRODUCT"},
		{"negative price", "SKU-1", -1, 1, "INVALID_PRICE"},
		{"zero quantity", "SKU-1", 1000, 0, "INVALID_QUANTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewOrderItem(tt.productCode, tt.unitPrice, tt.quantity)
			if tt.errCode != "" {
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.errCode, domainErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.quantity, item.Quantity())
			assert.Equal(t, tt.unitPrice*int64(tt.quantity), item.Subtotal())
			for _, unit := range item.Units {
				assert.Same(t, item, unit.Item())
			}
		})
	}
}

// ============================================
// Recursive adjustments
// ============================================

func TestOrder_Adjustables(t *testing.T) {
	order := newTestOrder(t)
	first := addTestItem(t, order, "SKU-1", 1000, 2)
	second := addTestItem(t, order, "SKU-2", 500, 1)
	order.AddItem(nil)

	adjustables := order.Adjustables()
	expected := []Adjustable{order, first, first.Units[0], first.Units[1], second, second.Units[0]}
	require.Len(t, adjustables, len(expected))
	for i := range expected {
		assert.Same(t, expected[i], adjustables[i])
	}
}

func TestOrder_GetAdjustmentsRecursively(t *testing.T) {
	order := newTestOrder(t)
	item := addTestItem(t, order, "SKU-1", 1000, 2)

	order.AddAdjustment(taxAdjustment(1, true))
	item.Units[1].AddAdjustment(taxAdjustment(4, true))
	item.AddAdjustment(taxAdjustment(2, true))
	item.Units[0].AddAdjustment(taxAdjustment(3, true))
	item.AddAdjustment(NewAdjustment(AdjustmentKindPromotion, "Promo", -100, false))

	assert.Equal(t, []int64{1, 2, 3, 4}, adjustmentAmounts(order.GetAdjustmentsRecursively(AdjustmentKindTax)))
	assert.Len(t, order.GetAdjustmentsRecursively(""), 5)

	order.RemoveAdjustmentsRecursively(AdjustmentKindTax)
	assert.Empty(t, order.GetAdjustmentsRecursively(AdjustmentKindTax))
	assert.Len(t, order.GetAdjustmentsRecursively(""), 1)
}

func TestOrder_RecalculateAdjustmentsTotal(t *testing.T) {
	order := newTestOrder(t)
	item := addTestItem(t, order, "SKU-1", 1000, 2)

	item.Units[0].AddAdjustment(taxAdjustment(100, true))
	item.Units[1].AddAdjustment(taxAdjustment(100, true))
	order.AddAdjustment(taxAdjustment(30, false))
	order.AddAdjustment(NewAdjustment(AdjustmentKindShipping, "Shipping", 500, false))

	// totals are cached until recalculated
	assert.Zero(t, order.TaxTotal())

	order.RecalculateAdjustmentsTotal()
	assert.Equal(t, int64(230), order.TaxTotal())
	assert.Equal(t, int64(500), order.AdjustmentsTotal(AdjustmentKindShipping))
	assert.Zero(t, order.AdjustmentsTotal(AdjustmentKindSubstractedTax))
	assert.Equal(t, int64(530), order.PayableAdjustmentsTotal())
	assert.Equal(t, int64(2000), order.ItemsTotal())
	assert.Equal(t, int64(2530), order.Total())
}
