package order

import (
	"github.com/shopspring/decimal"

	"comptoirs/internal/domain/customer"
)

// LargeCustomerDiscount is the standing discount rate applied to orders
// placed by large-tier customers.
var LargeCustomerDiscount = decimal.RequireFromString("0.15")

// DiscountFor returns the discount rate for a new order placed by the given
// customer: the standing rate for the large tier, zero for everyone else.
// The rate is stamped onto the order at creation and never recomputed.
func DiscountFor(c *customer.Customer) decimal.Decimal {
	if c.Tier == customer.TierLarge {
		return LargeCustomerDiscount
	}
	return decimal.Zero
}
