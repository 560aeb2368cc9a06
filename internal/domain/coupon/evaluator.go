package coupon

import (
	"context"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator computes the discount a coupon code yields for a given cart.
type Evaluator struct {
	repo   Repository
	policy UsagePolicy
	now    func() time.Time

	// known, when set, short-circuits lookups for codes that are certainly
	// absent from the repository. False positives fall through to the
	// repository, so correctness does not depend on the filter.
	known *bloom.BloomFilter
}

// NewEvaluator creates an Evaluator with the default unlimited usage policy.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{
		repo:   repo,
		policy: UnlimitedUsage{},
		now:    time.Now,
	}
}

// WithUsagePolicy replaces the usage policy and returns the evaluator.
func (e *Evaluator) WithUsagePolicy(p UsagePolicy) *Evaluator {
	e.policy = p
	return e
}

// SetKnownCodes installs a bloom filter of every known coupon code, used as a
// fast rejection path for bogus codes.
func (e *Evaluator) SetKnownCodes(f *bloom.BloomFilter) {
	e.known = f
}

// Evaluate resolves the coupon for code, checks expiry and usage policy,
// computes the eligible subtotal over the submitted cart lines, and returns
// the discount together with the resulting grand total.
//
// The grand total is cartTotal minus the discount, deliberately not clamped:
// the discount itself is capped at the eligible subtotal, so a negative
// result can only come from an inconsistent caller-supplied total.
func (e *Evaluator) Evaluate(ctx context.Context, code string, items []Item, cartTotal decimal.Decimal) (*Quote, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}
	if e.known != nil && !e.known.TestString(code) {
		return nil, ErrInvalidCoupon
	}

	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.ExpiresAt != nil && c.ExpiresAt.Before(e.now()) {
		return nil, ErrCouponExpired
	}

	if err := e.policy.Allow(c); err != nil {
		return nil, err
	}

	allowed, err := e.repo.AllowedProducts(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve coupon scope")
	}

	eligible := EligibleSubtotal(items, allowed)
	if eligible.IsZero() {
		return nil, ErrNotApplicable
	}

	discount, err := Compute(c, eligible)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Discount:   discount,
		GrandTotal: cartTotal.Sub(discount),
	}, nil
}
