package taxation

import (
	"strings"
	"testing"

	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVatParser splits on the first two characters when both are upper-case letters
type stubVatParser struct{}

func (stubVatParser) Split(vatNumber string) (string, string, bool) {
	vatNumber = strings.TrimSpace(vatNumber)
	if len(vatNumber) < 3 {
		return "", "", false
	}
	for _, r := range vatNumber[:2] {
		if r < 'A' || r > 'Z' {
			return "", "", false
		}
	}
	return vatNumber[:2], vatNumber[2:], true
}

// stubZoneMatcher returns the zones that list the address country
type stubZoneMatcher struct {
	zones []*Zone
	calls int
}

func (m *stubZoneMatcher) MatchAll(address valueobject.Address) []*Zone {
	m.calls++
	var matched []*Zone
	for _, z := range m.zones {
		if z.Contains(address.CountryCode()) {
			matched = append(matched, z)
		}
	}
	return matched
}

func newEUZone() *Zone {
	return NewZone("EUZONE", "European Union", "AT", "BE", "DE", "FR", "HU", "IT", "PL", "RO", "SK")
}

func newEUChannel(zone *Zone) *Channel {
	return NewChannel("WEB", WithBaseCountry("FR"), WithEuropeanZone(zone))
}

func billingAddress(t *testing.T, country, vatNumber string) *valueobject.Address {
	t.Helper()
	address, err := valueobject.NewAddress(country, valueobject.WithVatNumber(vatNumber))
	require.NoError(t, err)
	return &address
}

func TestZoneMatchMode(t *testing.T) {
	assert.True(t, ZoneMatchChannelIdentity.IsValid())
	assert.True(t, ZoneMatchGeographic.IsValid())
	assert.False(t, ZoneMatchMode("nearest").IsValid())

	mode, err := ParseZoneMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, ZoneMatchChannelIdentity, mode)

	mode, err = ParseZoneMatchMode("geographic")
	require.NoError(t, err)
	assert.Equal(t, ZoneMatchGeographic, mode)

	_, err = ParseZoneMatchMode("nearest")
	assert.Error(t, err)
}

func TestEligibilityEvaluator_Evaluate(t *testing.T) {
	euZone := newEUZone()
	otherZone := NewZone("WORLD", "Rest of world", "US")
	channel := newEUChannel(euZone)

	tests := []struct {
		name           string
		address        *valueobject.Address
		billingCountry string
		zone           *Zone
		channel        *Channel
		eligible       bool
		reason         IneligibilityReason
	}{
		{
			name:           "cross-border business customer",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			eligible:       true,
		},
		{
			name:           "lower-case billing country",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "de",
			zone:           euZone,
			channel:        channel,
			eligible:       true,
		},
		{
			name:           "zone equal by code",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           NewZone("EUZONE", "EU copy"),
			channel:        channel,
			eligible:       true,
		},
		{
			name:           "nil channel",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           euZone,
			reason:         ReasonChannelNotConfigured,
		},
		{
			name:           "channel without base country",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           euZone,
			channel:        NewChannel("WEB", WithEuropeanZone(euZone)),
			reason:         ReasonChannelNotConfigured,
		},
		{
			name:           "channel without european zone",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           euZone,
			channel:        NewChannel("WEB", WithBaseCountry("FR")),
			reason:         ReasonChannelNotConfigured,
		},
		{
			name:           "nil address",
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonMissingBillingAddress,
		},
		{
			name:           "no vat number",
			address:        billingAddress(t, "DE", ""),
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonMissingVatNumber,
		},
		{
			name:           "blank vat number",
			address:        billingAddress(t, "DE", "   "),
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonMissingVatNumber,
		},
		{
			name:           "unparsable vat number",
			address:        billingAddress(t, "DE", "123456789"),
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonUnparsableVatNumber,
		},
		{
			name:           "zone is not the european zone",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			zone:           otherZone,
			channel:        channel,
			reason:         ReasonOutsideEuropeanZone,
		},
		{
			name:           "nil zone",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "DE",
			channel:        channel,
			reason:         ReasonOutsideEuropeanZone,
		},
		{
			name:           "missing billing country",
			address:        billingAddress(t, "DE", "DE123456789"),
			billingCountry: "",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonMissingBillingCountry,
		},
		{
			name:           "domestic order",
			address:        billingAddress(t, "FR", "FR123456789"),
			billingCountry: "FR",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonDomesticOrder,
		},
		{
			name:           "vat prefix differs from billing country",
			address:        billingAddress(t, "DE", "FR123456789"),
			billingCountry: "DE",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonVatCountryMismatch,
		},
		{
			name:           "greek prefix is compared literally",
			address:        billingAddress(t, "GR", "EL123456789"),
			billingCountry: "GR",
			zone:           euZone,
			channel:        channel,
			reason:         ReasonVatCountryMismatch,
		},
	}

	evaluator := NewEligibilityEvaluator(stubVatParser{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := evaluator.Evaluate(tt.address, tt.billingCountry, tt.zone, tt.channel)
			assert.Equal(t, tt.eligible, verdict.Eligible)
			assert.Equal(t, tt.reason, verdict.Reason)
			assert.Equal(t, tt.eligible, evaluator.IsEligibleForZeroVAT(tt.address, tt.billingCountry, tt.zone, tt.channel))
			if tt.eligible {
				assert.Equal(t, "DE", verdict.VatPrefix)
			}
		})
	}
}

func TestEligibilityEvaluator_GeographicMode(t *testing.T) {
	euZone := newEUZone()
	channel := newEUChannel(euZone)

	t.Run("address inside the european zone", func(t *testing.T) {
		matcher := &stubZoneMatcher{zones: []*Zone{NewZone("DACH", "DACH", "DE", "AT", "CH"), euZone}}
		evaluator := NewEligibilityEvaluator(stubVatParser{}, WithZoneMatchMode(ZoneMatchGeographic), WithZoneMatcher(matcher))

		// the zone under evaluation is ignored in this mode
		verdict := evaluator.Evaluate(billingAddress(t, "DE", "DE123456789"), "DE", nil, channel)
		assert.True(t, verdict.Eligible)
		assert.Equal(t, 1, matcher.calls)
	})

	t.Run("address outside the european zone", func(t *testing.T) {
		matcher := &stubZoneMatcher{zones: []*Zone{euZone}}
		evaluator := NewEligibilityEvaluator(stubVatParser{}, WithZoneMatchMode(ZoneMatchGeographic), WithZoneMatcher(matcher))

		verdict := evaluator.Evaluate(billingAddress(t, "CH", "CH123456789"), "CH", euZone, channel)
		assert.False(t, verdict.Eligible)
		assert.Equal(t, ReasonOutsideEuropeanZone, verdict.Reason)
	})

	t.Run("no matcher configured", func(t *testing.T) {
		evaluator := NewEligibilityEvaluator(stubVatParser{}, WithZoneMatchMode(ZoneMatchGeographic))

		verdict := evaluator.Evaluate(billingAddress(t, "DE", "DE123456789"), "DE", euZone, channel)
		assert.Equal(t, ReasonOutsideEuropeanZone, verdict.Reason)
	})
}

func TestEligibilityEvaluator_Options(t *testing.T) {
	evaluator := NewEligibilityEvaluator(stubVatParser{}, WithZoneMatchMode("bogus"))
	assert.Equal(t, DefaultZoneMatchMode, evaluator.Mode())

	verdict := NewEligibilityEvaluator(nil).Evaluate(billingAddress(t, "DE", "DE123456789"), "DE", newEUZone(), newEUChannel(newEUZone()))
	assert.Equal(t, ReasonUnparsableVatNumber, verdict.Reason)
}

func TestIneligibilityReason_String(t *testing.T) {
	assert.Equal(t, "eligible", ReasonNone.String())
	assert.Equal(t, "domestic_order", ReasonDomesticOrder.String())
}
