package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EligibleSubtotal sums the price of cart lines the coupon applies to.
// An empty allow-set means the coupon is unscoped and every line counts.
func EligibleSubtotal(items []Item, allowed []string) decimal.Decimal {
	if len(allowed) == 0 {
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.Price)
		}
		return sum
	}

	allowSet := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allowSet[id] = struct{}{}
	}

	sum := decimal.Zero
	for _, item := range items {
		if _, ok := allowSet[item.ProductID]; ok {
			sum = sum.Add(item.Price)
		}
	}
	return sum
}

// Compute calculates the discount for the given coupon over the eligible
// subtotal. Flat discounts are capped at the subtotal so the remainder is
// never negative; percentage discounts round up.
func Compute(c *Coupon, eligible decimal.Decimal) (decimal.Decimal, error) {
	switch c.Type {
	case DiscountFlat:
		return decimal.Min(c.Amount, eligible), nil
	case DiscountPercentage:
		return c.Percentage.Mul(eligible).Div(hundred).Ceil(), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.Type)
	}
}
