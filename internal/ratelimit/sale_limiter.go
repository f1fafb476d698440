package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/salesengine/internal/config"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
)

const keySaleOwner = "sales:create:owner:%s"

// SaleLimiter throttles sale creation per owner with a Redis token bucket.
type SaleLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewSaleLimiter returns nil when rate limiting is disabled or Redis is not
// configured.
func NewSaleLimiter(cfg config.Config, client *redis.Client) (saledomain.Limiter, error) {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil, nil
	}
	if cfg.RateLimit.SaleOwnerRate <= 0 || cfg.RateLimit.SaleOwnerBurst <= 0 {
		return nil, errors.New("sale owner rate limit must be positive")
	}
	return &SaleLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.SaleOwnerRate,
		burst:  cfg.RateLimit.SaleOwnerBurst,
	}, nil
}

func (l *SaleLimiter) Allow(ctx context.Context, ownerID snowflake.ID) (bool, error) {
	result, err := l.bucket.Allow(ctx, saleOwnerKey(ownerID), l.rate, l.burst)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

func saleOwnerKey(ownerID snowflake.ID) string {
	return fmt.Sprintf(keySaleOwner, ownerID.String())
}
