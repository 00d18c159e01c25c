package addressing

import (
	"sync"

	"github.com/erp/reversecharge/internal/domain/shared/valueobject"
	"github.com/erp/reversecharge/internal/domain/taxation"
)

// CountryZoneMatcher matches addresses against in-memory zones by member country.
// Zones are returned in registration order.
type CountryZoneMatcher struct {
	mu    sync.RWMutex
	zones []*taxation.Zone
}

// NewCountryZoneMatcher creates a matcher seeded with zones; nil zones are skipped
func NewCountryZoneMatcher(zones ...*taxation.Zone) *CountryZoneMatcher {
	m := &CountryZoneMatcher{}
	for _, z := range zones {
		m.Register(z)
	}
	return m
}

// Register adds zone, replacing an already registered zone with the same code
func (m *CountryZoneMatcher) Register(zone *taxation.Zone) {
	if zone == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.zones {
		if existing.Code != "" && existing.Code == zone.Code {
			m.zones[i] = zone
			return
		}
	}
	m.zones = append(m.zones, zone)
}

// Zone returns the registered zone with code, or nil
func (m *CountryZoneMatcher) Zone(code string) *taxation.Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, z := range m.zones {
		if z.Code == code {
			return z
		}
	}
	return nil
}

// Zones returns a snapshot of the registered zones
func (m *CountryZoneMatcher) Zones() []*taxation.Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*taxation.Zone(nil), m.zones...)
}

// MatchAll returns every zone whose members include the address country
func (m *CountryZoneMatcher) MatchAll(address valueobject.Address) []*taxation.Zone {
	country := address.CountryCode()
	if country == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*taxation.Zone
	for _, z := range m.zones {
		if z.Contains(country) {
			matched = append(matched, z)
		}
	}
	return matched
}

var _ taxation.ZoneMatcher = (*CountryZoneMatcher)(nil)
