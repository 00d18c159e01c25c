package taxation

import "github.com/erp/reversecharge/internal/domain/shared/valueobject"

// DefaultRoundingUnit is the granularity, in minor units, of rounded currencies
const DefaultRoundingUnit int64 = 100

// DefaultRoundedCurrencies are currencies whose substracted amounts are rounded to whole units
var DefaultRoundedCurrencies = []valueobject.Currency{valueobject.HUF, valueobject.RON}

// CurrencyRounding rounds amounts of selected currencies to a fixed unit, half away from zero.
// Amounts in any other currency are left as they are.
type CurrencyRounding struct {
	currencies map[valueobject.Currency]struct{}
	unit       int64
}

// NewCurrencyRounding creates a rounding policy for the given currencies
func NewCurrencyRounding(unit int64, currencies ...valueobject.Currency) CurrencyRounding {
	set := make(map[valueobject.Currency]struct{}, len(currencies))
	for _, c := range currencies {
		set[c] = struct{}{}
	}
	return CurrencyRounding{currencies: set, unit: unit}
}

// DefaultCurrencyRounding rounds HUF and RON to the nearest 100 minor units
func DefaultCurrencyRounding() CurrencyRounding {
	return NewCurrencyRounding(DefaultRoundingUnit, DefaultRoundedCurrencies...)
}

// Applies returns true if amounts in the currency are rounded
func (r CurrencyRounding) Applies(currency valueobject.Currency) bool {
	_, ok := r.currencies[currency]
	return ok && r.unit > 1
}

// Unit returns the rounding granularity in minor units
func (r CurrencyRounding) Unit() int64 {
	return r.unit
}

// Round returns amount rounded for the currency
func (r CurrencyRounding) Round(currency valueobject.Currency, amount int64) int64 {
	if !r.Applies(currency) {
		return amount
	}
	m, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return amount
	}
	return m.RoundToUnit(r.unit).Amount()
}
