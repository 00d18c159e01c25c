package taxation

import (
	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregateTypeOrder is the aggregate type used in domain events
const AggregateTypeOrder = "Order"

// OrderItemUnit is a single unit of an order item; unit-level tax lives here
type OrderItemUnit struct {
	ID          uuid.UUID
	item        *OrderItem
	adjustments adjustmentCollection
}

// GetAdjustments implements Adjustable
func (u *OrderItemUnit) GetAdjustments(kind AdjustmentKind) []*Adjustment {
	return u.adjustments.list(kind)
}

// AddAdjustment implements Adjustable
func (u *OrderItemUnit) AddAdjustment(a *Adjustment) {
	u.adjustments.add(u, a)
}

// RemoveAdjustment implements Adjustable
func (u *OrderItemUnit) RemoveAdjustment(a *Adjustment) {
	u.adjustments.remove(a)
}

// RemoveAdjustments implements Adjustable
func (u *OrderItemUnit) RemoveAdjustments(kind AdjustmentKind) {
	u.adjustments.removeKind(kind)
}

// SupersedeAdjustment implements Adjustable
func (u *OrderItemUnit) SupersedeAdjustment(a *Adjustment) {
	u.adjustments.supersede(a)
}

// RestoreSupersededAdjustments implements Adjustable
func (u *OrderItemUnit) RestoreSupersededAdjustments() int {
	return u.adjustments.restore(u)
}

// SupersededAdjustments implements Adjustable
func (u *OrderItemUnit) SupersededAdjustments() []*Adjustment {
	return u.adjustments.supersededList()
}

// Item returns the owning order item
func (u *OrderItemUnit) Item() *OrderItem {
	return u.item
}

// OrderItem is an order line; it owns its units
type OrderItem struct {
	ID          uuid.UUID
	ProductCode string
	UnitPrice   int64
	Units       []*OrderItemUnit
	adjustments adjustmentCollection
}

// NewOrderItem creates an item with quantity units priced at unitPrice minor units
func NewOrderItem(productCode string, unitPrice int64, quantity int) (*OrderItem, error) {
	if productCode == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product code cannot be empty")
	}
	if unitPrice < 0 {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	item := &OrderItem{
		ID:          uuid.New(),
		ProductCode: productCode,
		UnitPrice:   unitPrice,
		Units:       make([]*OrderItemUnit, 0, quantity),
	}
	for range quantity {
		item.Units = append(item.Units, &OrderItemUnit{ID: uuid.New(), item: item})
	}
	return item, nil
}

// Quantity returns the number of units
func (i *OrderItem) Quantity() int {
	return len(i.Units)
}

// Subtotal returns unit price times quantity
func (i *OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(len(i.Units))
}

// GetAdjustments implements Adjustable
func (i *OrderItem) GetAdjustments(kind AdjustmentKind) []*Adjustment {
	return i.adjustments.list(kind)
}

// AddAdjustment implements Adjustable
func (i *OrderItem) AddAdjustment(a *Adjustment) {
	i.adjustments.add(i, a)
}

// RemoveAdjustment implements Adjustable
func (i *OrderItem) RemoveAdjustment(a *Adjustment) {
	i.adjustments.remove(a)
}

// RemoveAdjustments implements Adjustable
func (i *OrderItem) RemoveAdjustments(kind AdjustmentKind) {
	i.adjustments.removeKind(kind)
}

// SupersedeAdjustment implements Adjustable
func (i *OrderItem) SupersedeAdjustment(a *Adjustment) {
	i.adjustments.supersede(a)
}

// RestoreSupersededAdjustments implements Adjustable
func (i *OrderItem) RestoreSupersededAdjustments() int {
	return i.adjustments.restore(i)
}

// SupersededAdjustments implements Adjustable
func (i *OrderItem) SupersededAdjustments() []*Adjustment {
	return i.adjustments.supersededList()
}

// Order is the aggregate root reconciled by reverse charge.
// It owns every adjustment in its tree: order-level, item-level and unit-level.
type Order struct {
	shared.BaseAggregateRoot
	Number         string
	CurrencyCode   valueobject.Currency
	BillingAddress *valueobject.Address
	Channel        *Channel
	Items          []*OrderItem

	adjustments      adjustmentCollection
	totalsByKind     map[AdjustmentKind]int64
	adjustmentsTotal int64
}

// OrderOption is a functional option for configuring Order
type OrderOption func(*Order)

// WithBillingAddress sets the billing address
func WithBillingAddress(address valueobject.Address) OrderOption {
	return func(o *Order) {
		o.BillingAddress = &address
	}
}

// WithChannel sets the sales channel
func WithChannel(channel *Channel) OrderOption {
	return func(o *Order) {
		o.Channel = channel
	}
}

// NewOrder creates an empty order
func NewOrder(number string, currency valueobject.Currency, opts ...OrderOption) (*Order, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be an ISO 4217 code")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		CurrencyCode:      currency,
		Items:             make([]*OrderItem, 0),
		totalsByKind:      make(map[AdjustmentKind]int64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// GetChannel returns the channel, nil when absent
func (o *Order) GetChannel() *Channel {
	return o.Channel
}

// GetBillingAddress returns the billing address, nil when absent
func (o *Order) GetBillingAddress() *valueobject.Address {
	return o.BillingAddress
}

// GetCurrencyCode returns the order currency
func (o *Order) GetCurrencyCode() valueobject.Currency {
	return o.CurrencyCode
}

// AddItem appends an item to the order
func (o *Order) AddItem(item *OrderItem) {
	if item == nil {
		return
	}
	o.Items = append(o.Items, item)
	o.Touch()
}

// GetAdjustments implements Adjustable for order-level adjustments
func (o *Order) GetAdjustments(kind AdjustmentKind) []*Adjustment {
	return o.adjustments.list(kind)
}

// AddAdjustment implements Adjustable for order-level adjustments
func (o *Order) AddAdjustment(a *Adjustment) {
	o.adjustments.add(o, a)
}

// RemoveAdjustment implements Adjustable for order-level adjustments
func (o *Order) RemoveAdjustment(a *Adjustment) {
	o.adjustments.remove(a)
}

// RemoveAdjustments implements Adjustable for order-level adjustments
func (o *Order) RemoveAdjustments(kind AdjustmentKind) {
	o.adjustments.removeKind(kind)
}

// SupersedeAdjustment implements Adjustable for order-level adjustments
func (o *Order) SupersedeAdjustment(a *Adjustment) {
	o.adjustments.supersede(a)
}

// RestoreSupersededAdjustments implements Adjustable for order-level adjustments
func (o *Order) RestoreSupersededAdjustments() int {
	return o.adjustments.restore(o)
}

// SupersededAdjustments implements Adjustable for order-level adjustments
func (o *Order) SupersededAdjustments() []*Adjustment {
	return o.adjustments.supersededList()
}

// Adjustables returns the order followed by each item and that item's units,
// which is the traversal order used by every recursive operation
func (o *Order) Adjustables() []Adjustable {
	result := []Adjustable{o}
	for _, item := range o.Items {
		result = append(result, item)
		for _, unit := range item.Units {
			result = append(result, unit)
		}
	}
	return result
}

// GetAdjustmentsRecursively returns active adjustments of the kind across the whole tree.
// An empty kind returns all active adjustments.
func (o *Order) GetAdjustmentsRecursively(kind AdjustmentKind) []*Adjustment {
	var result []*Adjustment
	for _, adjustable := range o.Adjustables() {
		result = append(result, adjustable.GetAdjustments(kind)...)
	}
	return result
}

// RemoveAdjustmentsRecursively removes adjustments of the kind across the whole tree
func (o *Order) RemoveAdjustmentsRecursively(kind AdjustmentKind) {
	for _, adjustable := range o.Adjustables() {
		adjustable.RemoveAdjustments(kind)
	}
}

// RecalculateAdjustmentsTotal refreshes the cached totals from the active adjustments
func (o *Order) RecalculateAdjustmentsTotal() {
	totals := make(map[AdjustmentKind]int64)
	var payable int64
	for _, a := range o.GetAdjustmentsRecursively("") {
		totals[a.Kind] += a.Amount
		if !a.Neutral {
			payable += a.Amount
		}
	}
	o.totalsByKind = totals
	o.adjustmentsTotal = payable
	o.Touch()
}

// AdjustmentsTotal returns the last recalculated total of a kind, neutral entries included
func (o *Order) AdjustmentsTotal(kind AdjustmentKind) int64 {
	return o.totalsByKind[kind]
}

// TaxTotal returns the last recalculated VAT reported on the order
func (o *Order) TaxTotal() int64 {
	return o.totalsByKind[AdjustmentKindTax]
}

// PayableAdjustmentsTotal returns the last recalculated sum of non-neutral adjustments
func (o *Order) PayableAdjustmentsTotal() int64 {
	return o.adjustmentsTotal
}

// ItemsTotal returns the sum of item subtotals
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// Total returns what the customer pays: items plus non-neutral adjustments
func (o *Order) Total() int64 {
	return o.ItemsTotal() + o.adjustmentsTotal
}

// Ensure the order tree implements Adjustable
var (
	_ Adjustable = (*Order)(nil)
	_ Adjustable = (*OrderItem)(nil)
	_ Adjustable = (*OrderItemUnit)(nil)
)
