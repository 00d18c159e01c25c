package taxation

import "fmt"

// NeutralizationStrategy selects how tax adjustments are neutralized on an eligible order
type NeutralizationStrategy string

const (
	// NeutralizationAggregate supersedes every tax adjustment and attaches one order-level
	// substracted_tax adjustment for the rounded sum of the neutral tax
	NeutralizationAggregate NeutralizationStrategy = "aggregate"
	// NeutralizationOffset keeps every tax adjustment and attaches an opposite tax adjustment
	// next to it, marked with ReverseChargeOriginCode
	NeutralizationOffset NeutralizationStrategy = "offset"
	// NeutralizationReplace attaches an opposite substracted_tax adjustment next to every
	// tax adjustment and supersedes the original
	NeutralizationReplace NeutralizationStrategy = "replace"
)

// DefaultNeutralizationStrategy is used when no strategy is configured
const DefaultNeutralizationStrategy = NeutralizationAggregate

// String returns the string representation of the strategy
func (s NeutralizationStrategy) String() string {
	return string(s)
}

// IsValid returns true if the strategy is known
func (s NeutralizationStrategy) IsValid() bool {
	switch s {
	case NeutralizationAggregate, NeutralizationOffset, NeutralizationReplace:
		return true
	default:
		return false
	}
}

// AllNeutralizationStrategies returns all valid strategies
func AllNeutralizationStrategies() []NeutralizationStrategy {
	return []NeutralizationStrategy{
		NeutralizationAggregate,
		NeutralizationOffset,
		NeutralizationReplace,
	}
}

// ParseNeutralizationStrategy parses a strategy name, empty selects the default
func ParseNeutralizationStrategy(s string) (NeutralizationStrategy, error) {
	if s == "" {
		return DefaultNeutralizationStrategy, nil
	}
	strategy := NeutralizationStrategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("unknown neutralization strategy %q", s)
	}
	return strategy, nil
}
