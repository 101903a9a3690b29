package enums

import "fmt"

// MarketplaceType identifies an external marketplace integration.
type MarketplaceType string

const (
	MarketplaceWildberries MarketplaceType = "wildberries"
	MarketplaceOzon        MarketplaceType = "ozon"
)

var validMarketplaceTypes = []MarketplaceType{
	MarketplaceWildberries,
	MarketplaceOzon,
}

// String implements fmt.Stringer.
func (m MarketplaceType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MarketplaceType.
func (m MarketplaceType) IsValid() bool {
	for _, candidate := range validMarketplaceTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMarketplaceType converts raw input into a MarketplaceType.
func ParseMarketplaceType(value string) (MarketplaceType, error) {
	for _, candidate := range validMarketplaceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid marketplace type %q", value)
}

// SyncStatus captures the outcome of the last account sweep.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
	SyncStatusPending SyncStatus = "pending"
)

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}
