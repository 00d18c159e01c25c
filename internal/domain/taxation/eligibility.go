package taxation

import (
	"fmt"

	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
)

// ZoneMatchMode selects how the European zone requirement is checked
type ZoneMatchMode string

const (
	// ZoneMatchChannelIdentity requires the zone being taxed to be the channel's European zone
	ZoneMatchChannelIdentity ZoneMatchMode = "channel_identity"
	// ZoneMatchGeographic requires the ZoneMatcher to place the billing address in the channel's European zone
	ZoneMatchGeographic      ZoneMatchMode = "geographic"
)

// DefaultZoneMatchMode is used when no mode is configured
const DefaultZoneMatchMode = ZoneMatchChannelIdentity

// String returns the string representation of the mode
func (m ZoneMatchMode) String() string {
	return string(m)
}

// IsValid returns true if the mode is known
func (m ZoneMatchMode) IsValid() bool {
	switch m {
	case ZoneMatchChannelIdentity, ZoneMatchGeographic:
		return true
	}
	return false
}

// ParseZoneMatchMode parses a mode name, empty selects the default
func ParseZoneMatchMode(s string) (ZoneMatchMode, error) {
	if s == "" {
		return DefaultZoneMatchMode, nil
	}
	m := ZoneMatchMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown zone match mode %q", s)
	}
	return m, nil
}

// IneligibilityReason explains why an order does not qualify for zero VAT
type IneligibilityReason string

const (
	ReasonNone                  IneligibilityReason = ""
	ReasonMissingOrder          IneligibilityReason = "missing_order"
	ReasonChannelNotConfigured  IneligibilityReason = "channel_not_configured"
	ReasonMissingBillingAddress IneligibilityReason = "missing_billing_address"
	ReasonMissingVatNumber      IneligibilityReason = "missing_vat_number"
	ReasonUnparsableVatNumber   IneligibilityReason = "unparsable_vat_number"
	ReasonOutsideEuropeanZone   IneligibilityReason = "outside_european_zone"
	ReasonMissingBillingCountry IneligibilityReason = "missing_billing_country"
	ReasonDomesticOrder         IneligibilityReason = "domestic_order"
	ReasonVatCountryMismatch    IneligibilityReason = "vat_country_mismatch"
)

// String returns the string representation of the reason
func (r IneligibilityReason) String() string {
	if r == ReasonNone {
		return "eligible"
	}
	return string(r)
}

// Verdict is the outcome of an eligibility evaluation
type Verdict struct {
	Eligible  bool
	Reason    IneligibilityReason
	VatPrefix string
}

func ineligible(reason IneligibilityReason) Verdict {
	return Verdict{Reason: reason}
}

// EligibilityEvaluator decides whether an order qualifies for zero-rated intra-EU VAT.
// It is a pure predicate: missing or malformed input yields an ineligible verdict, never an error.
type EligibilityEvaluator struct {
	parser      VatNumberParser
	zoneMatcher ZoneMatcher
	mode        ZoneMatchMode
}

// EvaluatorOption is a functional option for configuring EligibilityEvaluator
type EvaluatorOption func(*EligibilityEvaluator)

// WithZoneMatchMode selects the zone check; unknown modes fall back to the default
func WithZoneMatchMode(mode ZoneMatchMode) EvaluatorOption {
	return func(e *EligibilityEvaluator) {
		if mode.IsValid() {
			e.mode = mode
		}
	}
}

// WithZoneMatcher sets the collaborator used by ZoneMatchGeographic
func WithZoneMatcher(matcher ZoneMatcher) EvaluatorOption {
	return func(e *EligibilityEvaluator) {
		e.zoneMatcher = matcher
	}
}

// NewEligibilityEvaluator creates an evaluator using parser to extract VAT prefixes
func NewEligibilityEvaluator(parser VatNumberParser, opts ...EvaluatorOption) *EligibilityEvaluator {
	e := &EligibilityEvaluator{
		parser: parser,
		mode:   DefaultZoneMatchMode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured zone match mode
func (e *EligibilityEvaluator) Mode() ZoneMatchMode {
	return e.mode
}

// IsEligibleForZeroVAT reports whether the billing data qualifies for reverse charge in zone
func (e *EligibilityEvaluator) IsEligibleForZeroVAT(billingAddress *valueobject.Address, billingCountryCode string, zone *Zone, channel *Channel) bool {
	return e.Evaluate(billingAddress, billingCountryCode, zone, channel).Eligible
}

// Evaluate applies the reverse-charge rule and reports the first failing condition:
//  1. the channel has a base country and a European zone
//  2. the billing address has a VAT number
//  3. the VAT number splits into a country prefix and a remainder
//  4. the European zone check passes for the configured mode
//  5. the billing country differs from the channel's base country
//  6. the billing country equals the VAT number prefix
func (e *EligibilityEvaluator) Evaluate(billingAddress *valueobject.Address, billingCountryCode string, zone *Zone, channel *Channel) Verdict {
	if !channel.IsEuropeanConfigured() {
		return ineligible(ReasonChannelNotConfigured)
	}
	if billingAddress == nil {
		return ineligible(ReasonMissingBillingAddress)
	}
	if !billingAddress.HasVatNumber() {
		return ineligible(ReasonMissingVatNumber)
	}

	if e.parser == nil {
		return ineligible(ReasonUnparsableVatNumber)
	}
	prefix, _, ok := e.parser.Split(billingAddress.VatNumber())
	if !ok || len(prefix) != 2 {
		return ineligible(ReasonUnparsableVatNumber)
	}

	if !e.inEuropeanZone(*billingAddress, zone, channel.GetEuropeanZone()) {
		return ineligible(ReasonOutsideEuropeanZone)
	}

	billingCountryCode = valueobject.NormalizeCountryCode(billingCountryCode)
	if billingCountryCode == "" {
		return ineligible(ReasonMissingBillingCountry)
	}
	if valueobject.NormalizeCountryCode(channel.GetBaseCountry()) == billingCountryCode {
		return ineligible(ReasonDomesticOrder)
	}
	if billingCountryCode != prefix {
		return Verdict{Reason: ReasonVatCountryMismatch, VatPrefix: prefix}
	}

	return Verdict{Eligible: true, VatPrefix: prefix}
}

func (e *EligibilityEvaluator) inEuropeanZone(address valueobject.Address, zone, euZone *Zone) bool {
	switch e.mode {
	case ZoneMatchGeographic:
		if e.zoneMatcher == nil {
			return false
		}
		for _, matched := range e.zoneMatcher.MatchAll(address) {
			if matched.Equals(euZone) {
				return true
			}
		}
		return false
	default:
		return zone.Equals(euZone)
	}
}
