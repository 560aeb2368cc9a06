package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepharm/api-server/internal/domain/coupon"
)

const (
	findCouponByCodeSQL = `SELECT id, code, discount_type, discount_amount, discount_percentage,
		description, expires_at, max_uses, uses
		FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT id, code, discount_type, discount_amount, discount_percentage,
		description, expires_at, max_uses, uses
		FROM coupons ORDER BY code`

	// Category scope rows expand into their member products; Product rows
	// pass through. One query yields the full allow-set.
	allowedProductsSQL = `SELECT p.id
		FROM coupon_scopes s
		JOIN products p ON p.category_id = s.item_id
		WHERE s.coupon_id = $1 AND s.item_type = 'Category'
		UNION
		SELECT s.item_id FROM coupon_scopes s
		WHERE s.coupon_id = $1 AND s.item_type = 'Product'`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE code = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode resolves a coupon by exact code match.
// Returns coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "finding coupon %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "finding coupon %q", code)
	}
	return &c, nil
}

// AllowedProducts returns the product ids the coupon's scope rows resolve to.
// An empty slice means the coupon is unscoped.
func (r *CouponRepository) AllowedProducts(ctx context.Context, couponID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, allowedProductsSQL, couponID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving scope for coupon %d", couponID)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrapf(err, "resolving scope for coupon %d", couponID)
	}
	return ids, nil
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code); err != nil {
		return errors.Wrapf(err, "incrementing uses for coupon %q", code)
	}
	return nil
}

// List returns every coupon, ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing coupons")
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrap(err, "listing coupons")
	}
	return coupons, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		expiresAt    *time.Time
		maxUses      int32
		uses         int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Amount, &c.Percentage,
		&c.Description, &expiresAt, &maxUses, &uses,
	)
	c.Type = coupon.DiscountType(discountType)
	c.ExpiresAt = expiresAt
	c.MaxUses = int(maxUses)
	c.Uses = int(uses)
	return c, err
}
