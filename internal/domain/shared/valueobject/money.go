package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR" // Euro (default)
	CZK Currency = "CZK" // Czech Koruna
	DKK Currency = "DKK" // Danish Krone
	HUF Currency = "HUF" // Hungarian Forint
	PLN Currency = "PLN" // Polish Zloty
	RON Currency = "RON" // Romanian Leu
	SEK Currency = "SEK" // Swedish Krona
	GBP Currency = "GBP" // British Pound
	USD Currency = "USD" // US Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = EUR

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValid returns true if the code has the ISO 4217 shape (three upper-case letters)
func (c Currency) IsValid() bool {
	return currencyPattern.MatchString(string(c))
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is a value object representing a signed amount in minor currency units
// (cents for EUR, fillér for HUF). It is immutable - all operations return new Money instances.
type Money struct {
	amount   int64
	currency Currency
}

// NewMoney creates a new Money with the specified minor-unit amount and currency
func NewMoney(amount int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("invalid currency code: %q", currency)
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// MustNewMoney creates Money, panics on error
func MustNewMoney(amount int64, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: 0, currency: currency}
}

// Amount returns the amount in minor units
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in minor units as a decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.amount)
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount + other.amount,
		currency: m.currency,
	}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   -m.amount,
		currency: m.currency,
	}
}

// RoundToUnit returns a new Money rounded to the nearest multiple of unit minor units,
// half away from zero (1250 -> 1300, -1250 -> -1300 for unit 100).
// A unit of 1 or less leaves the amount unchanged.
func (m Money) RoundToUnit(unit int64) Money {
	if unit <= 1 {
		return m
	}
	u := decimal.NewFromInt(unit)
	rounded := decimal.NewFromInt(m.amount).Div(u).Round(0).Mul(u)
	return Money{
		amount:   rounded.IntPart(),
		currency: m.currency,
	}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

// String returns a string representation of the Money in minor units
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64    `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount,
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler, validating through NewMoney
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64    `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoney(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
