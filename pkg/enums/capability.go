package enums

import "fmt"

// Capability scopes a marketplace API credential to a subset of operations.
// Marketplaces issue keys restricted to statistics, reviews, or price
// management independently; an account may hold a different key per scope.
type Capability string

const (
	CapabilityStatistics Capability = "statistics"
	CapabilityReviews    Capability = "reviews"
	CapabilityPrices     Capability = "prices"
)

var validCapabilities = []Capability{
	CapabilityStatistics,
	CapabilityReviews,
	CapabilityPrices,
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
