package enums

// PriceStatus classifies a live marketplace price against the locally
// configured bounds for the product.
type PriceStatus string

const (
	PriceStatusOK               PriceStatus = "ok"
	PriceStatusBelowMin         PriceStatus = "below_min"
	PriceStatusBelowRecommended PriceStatus = "below_recommended"
	PriceStatusAboveMax         PriceStatus = "above_max"
	PriceStatusNotFound         PriceStatus = "not_found"
)

// String implements fmt.Stringer.
func (p PriceStatus) String() string {
	return string(p)
}

// IsAnomalous reports whether the status flags a price outside bounds.
func (p PriceStatus) IsAnomalous() bool {
	switch p {
	case PriceStatusBelowMin, PriceStatusBelowRecommended, PriceStatusAboveMax:
		return true
	}
	return false
}
