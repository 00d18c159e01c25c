package valueobject

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Address is a value object representing a billing address.
// It is immutable - all operations return new Address instances.
// Only the country code is required; the VAT number is optional and kept as entered.
type Address struct {
	countryCode string
	vatNumber   string
	company     string
	street      string
	city        string
	postalCode  string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithVatNumber sets the VAT identification number for the address
func WithVatNumber(vatNumber string) AddressOption {
	return func(a *Address) {
		a.vatNumber = strings.TrimSpace(vatNumber)
	}
}

// WithCompany sets the company name for the address
func WithCompany(company string) AddressOption {
	return func(a *Address) {
		a.company = strings.TrimSpace(company)
	}
}

// WithStreet sets the street line for the address
func WithStreet(street string) AddressOption {
	return func(a *Address) {
		a.street = strings.TrimSpace(street)
	}
}

// WithCity sets the city for the address
func WithCity(city string) AddressOption {
	return func(a *Address) {
		a.city = strings.TrimSpace(city)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// NewAddress creates a new Address for the given ISO 3166-1 alpha-2 country code.
// The code is upper-cased before validation.
func NewAddress(countryCode string, opts ...AddressOption) (Address, error) {
	countryCode = NormalizeCountryCode(countryCode)
	if err := validateCountryCode(countryCode); err != nil {
		return Address{}, err
	}

	addr := Address{countryCode: countryCode}
	for _, opt := range opts {
		opt(&addr)
	}

	if len(addr.vatNumber) > 50 {
		return Address{}, fmt.Errorf("vat number cannot exceed 50 characters")
	}
	if len(addr.company) > 200 {
		return Address{}, fmt.Errorf("company cannot exceed 200 characters")
	}

	return addr, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(countryCode string, opts ...AddressOption) Address {
	addr, err := NewAddress(countryCode, opts...)
	if err != nil {
		panic(err)
	}
	return addr
}

// NormalizeCountryCode trims and upper-cases a country code
func NormalizeCountryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CountryCode returns the ISO country code
func (a Address) CountryCode() string {
	return a.countryCode
}

// VatNumber returns the VAT identification number, empty when none was given
func (a Address) VatNumber() string {
	return a.vatNumber
}

// HasVatNumber returns true if the address carries a non-empty VAT number
func (a Address) HasVatNumber() bool {
	return a.vatNumber != ""
}

// Company returns the company name
func (a Address) Company() string {
	return a.company
}

// Street returns the street line
func (a Address) Street() string {
	return a.street
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// PostalCode returns the postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// WithUpdatedVatNumber returns a new Address with the VAT number replaced
func (a Address) WithUpdatedVatNumber(vatNumber string) (Address, error) {
	return NewAddress(a.countryCode,
		WithVatNumber(vatNumber), WithCompany(a.company), WithStreet(a.street),
		WithCity(a.city), WithPostalCode(a.postalCode))
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a == other
}

// String returns a single-line representation of the address
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.company, a.street, a.postalCode, a.city, a.countryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// addressJSON is used for JSON marshaling/unmarshaling
type addressJSON struct {
	CountryCode string `json:"countryCode"`
	VatNumber   string `json:"vatNumber,omitempty"`
	Company     string `json:"company,omitempty"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		CountryCode: a.countryCode,
		VatNumber:   a.vatNumber,
		Company:     a.company,
		Street:      a.street,
		City:        a.city,
		PostalCode:  a.postalCode,
	})
}

// UnmarshalJSON implements json.Unmarshaler, validating through NewAddress
func (a *Address) UnmarshalJSON(data []byte) error {
	var v addressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	addr, err := NewAddress(v.CountryCode,
		WithVatNumber(v.VatNumber), WithCompany(v.Company), WithStreet(v.Street),
		WithCity(v.City), WithPostalCode(v.PostalCode))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func validateCountryCode(code string) error {
	if code == "" {
		return fmt.Errorf("country code cannot be empty")
	}
	if !countryCodePattern.MatchString(code) {
		return fmt.Errorf("country code must be two letters, got %q", code)
	}
	return nil
}
