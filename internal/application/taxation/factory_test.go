package taxation

import (
	"context"
	"testing"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultReverseChargeConfig() config.ReverseChargeConfig {
	return config.ReverseChargeConfig{
		Strategy:              "aggregate",
		ZoneMatchMode:         "channel_identity",
		RoundedCurrencies:     []string{"HUF", "RON"},
		RoundingUnit:          100,
		AdjustmentLabel:       "0% DPH",
		EuropeanZoneCode:      "EU",
		EuropeanZoneCountries: []string{"AT", "DE", "FR", "HU"},
	}
}

// countingFactory counts created adjustments
type countingFactory struct {
	created int
}

func (f *countingFactory) CreateWithData(kind taxation.AdjustmentKind, label string, amount int64, neutral bool) *taxation.Adjustment {
	f.created++
	return taxation.NewAdjustment(kind, label, amount, neutral)
}

func TestNewEuropeanZone(t *testing.T) {
	zone := NewEuropeanZone(defaultReverseChargeConfig())
	assert.Equal(t, "EU", zone.Code)
	assert.True(t, zone.Contains("HU"))
	assert.False(t, zone.Contains("PL"))
}

func TestNewReverseChargeApplicatorFromConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		applicator, err := NewReverseChargeApplicatorFromConfig(config.ReverseChargeConfig{}, Collaborators{})
		require.NoError(t, err)
		assert.Equal(t, taxation.NeutralizationAggregate, applicator.Strategy())
	})

	t.Run("invalid strategy", func(t *testing.T) {
		cfg := defaultReverseChargeConfig()
		cfg.Strategy = "split"
		_, err := NewReverseChargeApplicatorFromConfig(cfg, Collaborators{})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("invalid zone match mode", func(t *testing.T) {
		cfg := defaultReverseChargeConfig()
		cfg.ZoneMatchMode = "nearest"
		_, err := NewReverseChargeApplicatorFromConfig(cfg, Collaborators{})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("label rounding and factory are applied", func(t *testing.T) {
		factory := &countingFactory{}
		applicator, err := NewReverseChargeApplicatorFromConfig(defaultReverseChargeConfig(), Collaborators{AdjustmentFactory: factory})
		require.NoError(t, err)

		zone := newEUZone()
		order := newOrder(t, zone, "DE", "DE123456789", valueobject.HUF)
		order.AddAdjustment(taxation.NewAdjustment(taxation.AdjustmentKindTax, "VAT", 1250, true))

		result := applicator.Reconcile(order, zone)
		require.True(t, result.Applied)
		substracted := order.GetAdjustments(taxation.AdjustmentKindSubstractedTax)
		require.Len(t, substracted, 1)
		assert.Equal(t, int64(-1300), substracted[0].Amount)
		assert.Equal(t, "0% DPH", substracted[0].Label)
		assert.Equal(t, 1, factory.created)
	})

	t.Run("geographic mode uses the configured zone countries", func(t *testing.T) {
		cfg := defaultReverseChargeConfig()
		cfg.ZoneMatchMode = "geographic"
		applicator, err := NewReverseChargeApplicatorFromConfig(cfg, Collaborators{})
		require.NoError(t, err)

		channelZone := NewEuropeanZone(cfg)
		channel := taxation.NewChannel("WEB-FR", taxation.WithBaseCountry("FR"), taxation.WithEuropeanZone(channelZone))

		for country, want := range map[string]bool{"DE": true, "PL": false} {
			address := valueobject.MustNewAddress(country, valueobject.WithVatNumber(country+"123456789"))
			order, err := taxation.NewOrder("ORD-"+country, valueobject.EUR,
				taxation.WithChannel(channel), taxation.WithBillingAddress(address))
			require.NoError(t, err)

			result := applicator.Reconcile(order, nil)
			assert.Equal(t, want, result.Applied, country)
		}
	})

	t.Run("runs as a pipeline step", func(t *testing.T) {
		applicator, err := NewReverseChargeApplicatorFromConfig(defaultReverseChargeConfig(), Collaborators{})
		require.NoError(t, err)

		zone := newEUZone()
		order := newOrder(t, zone, "DE", "DE 123.456.789", valueobject.EUR)
		newNominal(t).Apply(context.Background(), order, zone)
		applicator.Apply(context.Background(), order, zone)
		order.RecalculateAdjustmentsTotal()

		assert.Equal(t, int64(0), order.TaxTotal())
	})
}
