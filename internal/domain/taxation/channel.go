package taxation

import "github.com/erp/reversecharge/internal/domain/shared/valueobject"

// Zone is a named set of countries used for tax and jurisdiction matching
type Zone struct {
	Code      string
	Name      string
	Countries []string
}

// NewZone creates a zone over the given country codes
func NewZone(code, name string, countries ...string) *Zone {
	members := make([]string, 0, len(countries))
	for _, c := range countries {
		if c = valueobject.NormalizeCountryCode(c); c != "" {
			members = append(members, c)
		}
	}
	return &Zone{Code: code, Name: name, Countries: members}
}

// Equals reports whether both refer to the same configured zone.
// Zones are identified by code; two nil zones are not considered equal.
func (z *Zone) Equals(other *Zone) bool {
	if z == nil || other == nil {
		return false
	}
	if z == other {
		return true
	}
	return z.Code != "" && z.Code == other.Code
}

// Contains returns true if the country code is a member of the zone
func (z *Zone) Contains(countryCode string) bool {
	if z == nil {
		return false
	}
	countryCode = valueobject.NormalizeCountryCode(countryCode)
	for _, c := range z.Countries {
		if c == countryCode {
			return true
		}
	}
	return false
}

// Channel is the sales channel an order was placed in.
// Reverse charge only applies when both the base country and the European zone are set.
type Channel struct {
	Code         string
	BaseCountry  string
	EuropeanZone *Zone
}

// ChannelOption is a functional option for configuring Channel
type ChannelOption func(*Channel)

// WithBaseCountry sets the channel's home country
func WithBaseCountry(countryCode string) ChannelOption {
	return func(c *Channel) {
		c.BaseCountry = valueobject.NormalizeCountryCode(countryCode)
	}
}

// WithEuropeanZone sets the zone treated as the EU VAT area for this channel
func WithEuropeanZone(zone *Zone) ChannelOption {
	return func(c *Channel) {
		c.EuropeanZone = zone
	}
}

// NewChannel creates a channel
func NewChannel(code string, opts ...ChannelOption) *Channel {
	c := &Channel{Code: code}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBaseCountry returns the home country code, empty when unset
func (c *Channel) GetBaseCountry() string {
	return c.BaseCountry
}

// GetEuropeanZone returns the European zone, nil when unset
func (c *Channel) GetEuropeanZone() *Zone {
	return c.EuropeanZone
}

// IsEuropeanConfigured returns true if the channel can take part in reverse charge
func (c *Channel) IsEuropeanConfigured() bool {
	return c != nil && c.BaseCountry != "" && c.EuropeanZone != nil
}
