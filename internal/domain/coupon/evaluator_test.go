package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	coupon  *Coupon
	findErr error

	allowed   []string
	scopeErr  error
	listItems []Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) AllowedProducts(_ context.Context, _ int64) ([]string, error) {
	return m.allowed, m.scopeErr
}

func (m *mockCouponRepo) IncrementUses(_ context.Context, _ string) error { return nil }

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) { return m.listItems, nil }

func fixedEvaluator(repo Repository, now time.Time) *Evaluator {
	e := NewEvaluator(repo)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluator_Evaluate(t *testing.T) {
	fixedNow := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	cart := []Item{
		{ProductID: "p1", Price: decimal.NewFromInt(600)},
		{ProductID: "p2", Price: decimal.NewFromInt(400)},
	}
	total := decimal.NewFromInt(1000)

	tests := []struct {
		name         string
		repo         *mockCouponRepo
		code         string
		wantDiscount int64
		wantTotal    int64
		wantErr      error
	}{
		{
			name: "unscoped percentage applies to whole cart",
			repo: &mockCouponRepo{
				coupon: &Coupon{
					ID: 1, Code: "SAVE10",
					Type:       DiscountPercentage,
					Percentage: decimal.NewFromInt(10),
					ExpiresAt:  &future,
				},
			},
			code:         "SAVE10",
			wantDiscount: 100,
			wantTotal:    900,
		},
		{
			name: "flat discount capped at eligible subtotal",
			repo: &mockCouponRepo{
				coupon: &Coupon{
					ID: 2, Code: "FLAT500",
					Type:   DiscountFlat,
					Amount: decimal.NewFromInt(500),
				},
				allowed: []string{"p2"},
			},
			code:         "FLAT500",
			wantDiscount: 400,
			wantTotal:    600,
		},
		{
			name:    "empty code",
			repo:    &mockCouponRepo{},
			code:    "",
			wantErr: ErrCodeRequired,
		},
		{
			name:    "unknown code",
			repo:    &mockCouponRepo{findErr: ErrInvalidCoupon},
			code:    "BOGUS",
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "expired coupon always rejected",
			repo: &mockCouponRepo{
				coupon: &Coupon{
					ID: 3, Code: "OLD",
					Type:       DiscountPercentage,
					Percentage: decimal.NewFromInt(50),
					ExpiresAt:  &past,
				},
			},
			code:    "OLD",
			wantErr: ErrCouponExpired,
		},
		{
			name: "scope matching nothing rejected",
			repo: &mockCouponRepo{
				coupon: &Coupon{
					ID: 4, Code: "DEVICES20",
					Type:       DiscountPercentage,
					Percentage: decimal.NewFromInt(20),
				},
				allowed: []string{"p99"},
			},
			code:    "DEVICES20",
			wantErr: ErrNotApplicable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fixedEvaluator(tt.repo, fixedNow)

			quote, err := e.Evaluate(context.Background(), tt.code, cart, total)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, quote.Discount.Equal(decimal.NewFromInt(tt.wantDiscount)),
				"discount: want %d, got %s", tt.wantDiscount, quote.Discount)
			assert.True(t, quote.GrandTotal.Equal(decimal.NewFromInt(tt.wantTotal)),
				"grand total: want %d, got %s", tt.wantTotal, quote.GrandTotal)
		})
	}
}

func TestEvaluator_UsagePolicy(t *testing.T) {
	repo := &mockCouponRepo{
		coupon: &Coupon{
			ID: 1, Code: "LIMITED",
			Type:       DiscountPercentage,
			Percentage: decimal.NewFromInt(10),
			MaxUses:    3,
			Uses:       3,
		},
	}
	cart := []Item{{ProductID: "p1", Price: decimal.NewFromInt(100)}}

	// Default policy ignores the counter.
	e := NewEvaluator(repo)
	_, err := e.Evaluate(context.Background(), "LIMITED", cart, decimal.NewFromInt(100))
	require.NoError(t, err)

	// A limiting policy rejects once exhausted.
	e = NewEvaluator(repo).WithUsagePolicy(MaxUsesPolicy{})
	_, err = e.Evaluate(context.Background(), "LIMITED", cart, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestEvaluator_BloomFilterShortCircuit(t *testing.T) {
	repo := &mockCouponRepo{findErr: ErrInvalidCoupon}
	e := NewEvaluator(repo)

	filter := bloom.NewWithEstimates(100, 0.01)
	filter.AddString("KNOWN")
	e.SetKnownCodes(filter)

	cart := []Item{{ProductID: "p1", Price: decimal.NewFromInt(100)}}

	// A code absent from the filter is rejected without a repository call.
	_, err := e.Evaluate(context.Background(), "ABSENT", cart, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInvalidCoupon)

	// A known code falls through to the repository.
	_, err = e.Evaluate(context.Background(), "KNOWN", cart, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}
