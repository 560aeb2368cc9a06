package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleSubtotal(t *testing.T) {
	items := []Item{
		{ProductID: "p1", Price: decimal.NewFromInt(100)},
		{ProductID: "p2", Price: decimal.NewFromInt(250)},
		{ProductID: "p3", Price: decimal.NewFromInt(50)},
	}

	tests := []struct {
		name    string
		allowed []string
		want    int64
	}{
		{
			name:    "unscoped counts every line",
			allowed: nil,
			want:    400,
		},
		{
			name:    "scoped counts matching lines only",
			allowed: []string{"p1", "p3"},
			want:    150,
		},
		{
			name:    "scope matching nothing yields zero",
			allowed: []string{"p9"},
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EligibleSubtotal(items, tt.allowed)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)),
				"want %d, got %s", tt.want, got)
		})
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *Coupon
		eligible int64
		want     string
	}{
		{
			name:     "flat within subtotal",
			coupon:   &Coupon{Type: DiscountFlat, Amount: decimal.NewFromInt(150)},
			eligible: 1000,
			want:     "150",
		},
		{
			name:     "flat capped at eligible subtotal",
			coupon:   &Coupon{Type: DiscountFlat, Amount: decimal.NewFromInt(500)},
			eligible: 320,
			want:     "320",
		},
		{
			name:     "percentage rounds up",
			coupon:   &Coupon{Type: DiscountPercentage, Percentage: decimal.NewFromInt(15)},
			eligible: 333,
			want:     "50", // 49.95 -> ceil
		},
		{
			name:     "percentage of whole amount",
			coupon:   &Coupon{Type: DiscountPercentage, Percentage: decimal.NewFromInt(10)},
			eligible: 1000,
			want:     "100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.coupon, decimal.NewFromInt(tt.eligible))
			require.NoError(t, err)

			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "want %s, got %s", want, got)
			assert.True(t, got.LessThanOrEqual(decimal.NewFromInt(tt.eligible)))
		})
	}
}

func TestCompute_UnknownType(t *testing.T) {
	_, err := Compute(&Coupon{Type: "bogus"}, decimal.NewFromInt(100))
	assert.Error(t, err)
}

func TestMaxUsesPolicy(t *testing.T) {
	tests := []struct {
		name    string
		coupon  *Coupon
		wantErr error
	}{
		{name: "zero max means unlimited", coupon: &Coupon{MaxUses: 0, Uses: 9999}},
		{name: "under the limit", coupon: &Coupon{MaxUses: 5, Uses: 4}},
		{name: "at the limit", coupon: &Coupon{MaxUses: 5, Uses: 5}, wantErr: ErrUsageLimitReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MaxUsesPolicy{}.Allow(tt.coupon)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
