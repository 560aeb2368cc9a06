package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFlat subtracts a fixed amount, capped at the eligible subtotal.
	DiscountFlat DiscountType = "flat"
	// DiscountPercentage subtracts a percentage of the eligible subtotal,
	// rounded up to the nearest whole currency unit.
	DiscountPercentage DiscountType = "percentage"
)

// ScopeKind enumerates the item types a coupon scope row may reference.
type ScopeKind string

const (
	ScopeProduct  ScopeKind = "Product"
	ScopeCategory ScopeKind = "Category"
)

var (
	// ErrCodeRequired is returned when an empty coupon code is submitted.
	ErrCodeRequired = errors.New("coupon code is required")
	// ErrInvalidCoupon is returned when a coupon code does not exist.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon's expiry is in the past.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrNotApplicable is returned when no cart line falls inside the
	// coupon's scope.
	ErrNotApplicable = errors.New("coupon not applicable to any cart items")
	// ErrUsageLimitReached is returned by a limiting UsagePolicy when a
	// coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit exceeded")
)

// Coupon is a discount rule identified by its code. A coupon with no scope
// rows applies to the entire cart.
type Coupon struct {
	ID          int64
	Code        string
	Type        DiscountType
	Amount      decimal.Decimal
	Percentage  decimal.Decimal
	Description string
	ExpiresAt   *time.Time
	MaxUses     int
	Uses        int
}

// ScopeRule restricts a coupon to a single product or to every product in a
// category.
type ScopeRule struct {
	Kind   ScopeKind
	ItemID string
}

// Item is a cart line as seen by discount calculation.
type Item struct {
	ProductID string
	Price     decimal.Decimal
}

// Quote is the outcome of a successful coupon evaluation.
type Quote struct {
	Discount   decimal.Decimal
	GrandTotal decimal.Decimal
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	// FindByCode resolves a coupon by exact code match. Returns
	// ErrInvalidCoupon when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// AllowedProducts resolves the coupon's scope rows into the set of
	// product ids the coupon applies to, expanding Category rows into their
	// member products. An empty result means the coupon is unscoped.
	AllowedProducts(ctx context.Context, couponID int64) ([]string, error)
	// IncrementUses atomically bumps the usage counter for the given code.
	IncrementUses(ctx context.Context, code string) error
	// List returns every coupon.
	List(ctx context.Context) ([]Coupon, error)
}

// UsagePolicy decides whether a coupon may still be redeemed. Usage
// accounting is informational for now: the default policy never rejects, but
// a limiting policy can be swapped in without touching the evaluator.
type UsagePolicy interface {
	Allow(c *Coupon) error
}

// UnlimitedUsage permits every redemption regardless of the usage counter.
type UnlimitedUsage struct{}

func (UnlimitedUsage) Allow(*Coupon) error { return nil }

// MaxUsesPolicy rejects coupons whose usage counter has reached MaxUses.
// A MaxUses of zero means unlimited.
type MaxUsesPolicy struct{}

func (MaxUsesPolicy) Allow(c *Coupon) error {
	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return ErrUsageLimitReached
	}
	return nil
}
