package taxation

import "context"

// DefaultAdjustmentLabel is the label of adjustments written by reverse charge
const DefaultAdjustmentLabel = "0% VAT"

// ReverseChargeOriginCode marks adjustments written by reverse charge that keep the tax kind
const ReverseChargeOriginCode = "reverse_charge"

// ReconciliationResult describes what a reconciliation pass did to an order
type ReconciliationResult struct {
	Verdict  Verdict
	Strategy NeutralizationStrategy
	// Removed counts adjustments of a previous pass that were taken off the order
	Removed int
	// Restored counts superseded tax adjustments put back on the order
	Restored int
	// Neutralized counts tax adjustments offset, replaced or superseded by this pass
	Neutralized int
	// SubstractedTotal is the sum of the amounts written by this pass
	SubstractedTotal int64
	// Applied is true when the order ends the pass with reverse charge in effect
	Applied bool
}

// CleanedUp returns true if a previous pass was undone
func (r ReconciliationResult) CleanedUp() bool {
	return r.Removed > 0 || r.Restored > 0
}

// Revoked returns true if a previous pass was undone and the order no longer qualifies
func (r ReconciliationResult) Revoked() bool {
	return !r.Applied && r.CleanedUp()
}

// ReverseChargeApplicator neutralizes VAT on orders that qualify for reverse charge.
// It keeps no state between calls and is safe to share across goroutines,
// but a single order must not be reconciled concurrently.
type ReverseChargeApplicator struct {
	evaluator *EligibilityEvaluator
	factory   AdjustmentFactory
	strategy  NeutralizationStrategy
	rounding  CurrencyRounding
	label     string
}

// ApplicatorOption is a functional option for configuring ReverseChargeApplicator
type ApplicatorOption func(*ReverseChargeApplicator)

// WithNeutralizationStrategy sets the strategy; unknown values keep the default
func WithNeutralizationStrategy(strategy NeutralizationStrategy) ApplicatorOption {
	return func(a *ReverseChargeApplicator) {
		if strategy.IsValid() {
			a.strategy = strategy
		}
	}
}

// WithCurrencyRounding sets the rounding policy used by the aggregate strategy
func WithCurrencyRounding(rounding CurrencyRounding) ApplicatorOption {
	return func(a *ReverseChargeApplicator) {
		a.rounding = rounding
	}
}

// WithAdjustmentLabel sets the label of written adjustments
func WithAdjustmentLabel(label string) ApplicatorOption {
	return func(a *ReverseChargeApplicator) {
		if label != "" {
			a.label = label
		}
	}
}

// WithAdjustmentFactory sets the factory used to create adjustments
func WithAdjustmentFactory(factory AdjustmentFactory) ApplicatorOption {
	return func(a *ReverseChargeApplicator) {
		if factory != nil {
			a.factory = factory
		}
	}
}

// NewReverseChargeApplicator creates an applicator deciding eligibility with evaluator
func NewReverseChargeApplicator(evaluator *EligibilityEvaluator, opts ...ApplicatorOption) *ReverseChargeApplicator {
	a := &ReverseChargeApplicator{
		evaluator: evaluator,
		factory:   NewAdjustmentFactory(),
		strategy:  DefaultNeutralizationStrategy,
		rounding:  DefaultCurrencyRounding(),
		label:     DefaultAdjustmentLabel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Strategy returns the configured neutralization strategy
func (a *ReverseChargeApplicator) Strategy() NeutralizationStrategy {
	return a.strategy
}

// Apply implements OrderTaxesApplicator
func (a *ReverseChargeApplicator) Apply(_ context.Context, order *Order, zone *Zone) {
	a.Reconcile(order, zone)
}

// Reconcile undoes any previous pass, then neutralizes the order's tax if it qualifies.
// Running it again on an unchanged order leaves the adjustments as they are.
func (a *ReverseChargeApplicator) Reconcile(order *Order, zone *Zone) ReconciliationResult {
	result := ReconciliationResult{Strategy: a.strategy}
	if order == nil {
		result.Verdict = ineligible(ReasonMissingOrder)
		return result
	}

	result.Removed, result.Restored = a.cleanup(order)

	var billingCountry string
	if address := order.GetBillingAddress(); address != nil {
		billingCountry = address.CountryCode()
	}
	if a.evaluator == nil {
		result.Verdict = ineligible(ReasonUnparsableVatNumber)
	} else {
		result.Verdict = a.evaluator.Evaluate(order.GetBillingAddress(), billingCountry, zone, order.GetChannel())
	}

	if !result.Verdict.Eligible {
		if result.CleanedUp() {
			order.RecalculateAdjustmentsTotal()
			order.AddDomainEvent(NewReverseChargeRevokedEvent(order, result))
		}
		return result
	}

	switch a.strategy {
	case NeutralizationOffset:
		a.offset(order, &result)
	case NeutralizationReplace:
		a.replace(order, &result)
	default:
		a.aggregate(order, &result)
	}
	result.Applied = true

	order.RecalculateAdjustmentsTotal()
	order.AddDomainEvent(NewReverseChargeAppliedEvent(order, result))
	return result
}

// cleanup removes what a previous pass wrote and reinstates the tax it superseded
func (a *ReverseChargeApplicator) cleanup(order *Order) (removed, restored int) {
	for _, adjustable := range order.Adjustables() {
		for _, adj := range adjustable.GetAdjustments("") {
			if adj.Kind == AdjustmentKindSubstractedTax || adj.OriginCode == ReverseChargeOriginCode {
				adjustable.RemoveAdjustment(adj)
				removed++
			}
		}
	}
	for _, adjustable := range order.Adjustables() {
		restored += adjustable.RestoreSupersededAdjustments()
	}
	return removed, restored
}

func (a *ReverseChargeApplicator) create(kind AdjustmentKind, amount int64, neutral bool) *Adjustment {
	adj := a.factory.CreateWithData(kind, a.label, amount, neutral)
	adj.OriginCode = ReverseChargeOriginCode
	return adj
}

// offset books every counter entry as non-neutral: it cancels included tax out of the
// price and charged tax out of the total alike
func (a *ReverseChargeApplicator) offset(order *Order, result *ReconciliationResult) {
	for _, tax := range order.GetAdjustmentsRecursively(AdjustmentKindTax) {
		counter := a.create(AdjustmentKindTax, -tax.Amount, false)
		tax.GetAdjustable().AddAdjustment(counter)
		result.Neutralized++
		result.SubstractedTotal += counter.Amount
	}
}

func (a *ReverseChargeApplicator) replace(order *Order, result *ReconciliationResult) {
	for _, tax := range order.GetAdjustmentsRecursively(AdjustmentKindTax) {
		owner := tax.GetAdjustable()
		substracted := a.create(AdjustmentKindSubstractedTax, -tax.Amount, !tax.Neutral)
		owner.AddAdjustment(substracted)
		owner.SupersedeAdjustment(tax)
		result.Neutralized++
		result.SubstractedTotal += substracted.Amount
	}
}

// aggregate only counts neutral tax: non-neutral tax was never part of the price
// and disappears from the total once superseded. Nothing is booked when the sum rounds to zero.
func (a *ReverseChargeApplicator) aggregate(order *Order, result *ReconciliationResult) {
	var neutralTax int64
	for _, tax := range order.GetAdjustmentsRecursively(AdjustmentKindTax) {
		if tax.Neutral {
			neutralTax += tax.Amount
		}
		tax.GetAdjustable().SupersedeAdjustment(tax)
		result.Neutralized++
	}

	amount := a.rounding.Round(order.GetCurrencyCode(), -neutralTax)
	if amount == 0 {
		return
	}
	order.AddAdjustment(a.create(AdjustmentKindSubstractedTax, amount, false))
	result.SubstractedTotal = amount
}

var _ OrderTaxesApplicator = (*ReverseChargeApplicator)(nil)
