// Package redis provides read-through caches backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/coupon"
)

const (
	couponKeyPrefix = "coupon:"
	scopeKeyPrefix  = "coupon:scope:"
	couponTTL       = time.Minute
)

var _ coupon.Repository = (*CouponCache)(nil)

// CouponCache is a read-through cache in front of a coupon.Repository.
// Cache failures are logged and fall back to the underlying repository.
type CouponCache struct {
	next   coupon.Repository
	client *redis.Client
}

// NewCouponCache wraps next with a Redis-backed read-through cache.
func NewCouponCache(next coupon.Repository, client *redis.Client) *CouponCache {
	return &CouponCache{next: next, client: client}
}

// FindByCode returns the coupon for code, consulting the cache first.
func (c *CouponCache) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	key := couponKeyPrefix + code
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached coupon.Coupon
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		zctx.From(ctx).Warn("Decoding cached coupon", zap.String("code", code))
	} else if !errors.Is(err, redis.Nil) {
		zctx.From(ctx).Warn("Reading coupon cache", zap.Error(err))
	}

	cp, err := c.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(cp); err == nil {
		if err := c.client.Set(ctx, key, raw, couponTTL).Err(); err != nil {
			zctx.From(ctx).Warn("Writing coupon cache", zap.Error(err))
		}
	}
	return cp, nil
}

// AllowedProducts returns the product ids a coupon applies to,
// consulting the cache first.
func (c *CouponCache) AllowedProducts(ctx context.Context, couponID int64) ([]string, error) {
	key := scopeKeyPrefix + strconv.FormatInt(couponID, 10)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []string
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		zctx.From(ctx).Warn("Reading coupon scope cache", zap.Error(err))
	}

	ids, err := c.next.AllowedProducts(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(ids); err == nil {
		if err := c.client.Set(ctx, key, raw, couponTTL).Err(); err != nil {
			zctx.From(ctx).Warn("Writing coupon scope cache", zap.Error(err))
		}
	}
	return ids, nil
}

// IncrementUses bumps the usage counter and drops the cached coupon
// so the next read observes the new count.
func (c *CouponCache) IncrementUses(ctx context.Context, code string) error {
	if err := c.next.IncrementUses(ctx, code); err != nil {
		return err
	}
	if err := c.client.Del(ctx, couponKeyPrefix+code).Err(); err != nil {
		zctx.From(ctx).Warn("Invalidating coupon cache", zap.Error(err))
	}
	return nil
}

// List delegates to the underlying repository.
func (c *CouponCache) List(ctx context.Context) ([]coupon.Coupon, error) {
	return c.next.List(ctx)
}
