package enums

// OrderType distinguishes retail carts from wholesale carts. The type is
// derived from the list-price subtotal, never stored on the cart itself.
type OrderType string

const (
	OrderTypeRetail    OrderType = "retail"
	OrderTypeWholesale OrderType = "wholesale"
)

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}
