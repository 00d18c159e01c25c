package taxation

import (
	"fmt"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/erp/reversecharge/internal/domain/taxation"
	"github.com/erp/reversecharge/internal/infrastructure/addressing"
	"github.com/erp/reversecharge/internal/infrastructure/config"
)

// Collaborators are the ports the reverse charge applicator depends on.
// Nil fields fall back to the in-memory implementations.
type Collaborators struct {
	VatNumberParser   taxation.VatNumberParser
	ZoneMatcher       taxation.ZoneMatcher
	AdjustmentFactory taxation.AdjustmentFactory
}

// NewEuropeanZone builds the configured EU zone
func NewEuropeanZone(cfg config.ReverseChargeConfig) *taxation.Zone {
	return taxation.NewZone(cfg.EuropeanZoneCode, "European Union", cfg.EuropeanZoneCountries...)
}

// NewReverseChargeApplicatorFromConfig builds the reverse charge applicator described by cfg
func NewReverseChargeApplicatorFromConfig(cfg config.ReverseChargeConfig, deps Collaborators) (*taxation.ReverseChargeApplicator, error) {
	strategy, err := taxation.ParseNeutralizationStrategy(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	mode, err := taxation.ParseZoneMatchMode(cfg.ZoneMatchMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	currencies := make([]valueobject.Currency, 0, len(cfg.RoundedCurrencies))
	for _, c := range cfg.RoundedCurrencies {
		currencies = append(currencies, valueobject.Currency(c))
	}
	unit := cfg.RoundingUnit
	if unit == 0 {
		unit = taxation.DefaultRoundingUnit
	}

	parser := deps.VatNumberParser
	if parser == nil {
		parser = addressing.NewPrefixVatNumberParser()
	}
	evaluatorOpts := []taxation.EvaluatorOption{taxation.WithZoneMatchMode(mode)}
	if mode == taxation.ZoneMatchGeographic {
		matcher := deps.ZoneMatcher
		if matcher == nil {
			matcher = addressing.NewCountryZoneMatcher(NewEuropeanZone(cfg))
		}
		evaluatorOpts = append(evaluatorOpts, taxation.WithZoneMatcher(matcher))
	}

	return taxation.NewReverseChargeApplicator(
		taxation.NewEligibilityEvaluator(parser, evaluatorOpts...),
		taxation.WithNeutralizationStrategy(strategy),
		taxation.WithCurrencyRounding(taxation.NewCurrencyRounding(unit, currencies...)),
		taxation.WithAdjustmentLabel(cfg.AdjustmentLabel),
		taxation.WithAdjustmentFactory(deps.AdjustmentFactory),
	), nil
}
