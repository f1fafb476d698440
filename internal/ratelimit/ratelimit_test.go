package ratelimit

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBucketResult_Allowed(t *testing.T) {
	res, err := parseBucketResult([]any{int64(1), "4.5", int64(1_700_000_000_000)}, 2, 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 10, res.Limit)
	assert.Zero(t, res.RetryAfter)
}

func TestParseBucketResult_DeniedComputesRetry(t *testing.T) {
	res, err := parseBucketResult([]any{int64(0), "0.5", int64(1_700_000_000_000)}, 2, 10)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).Add(250*time.Millisecond), res.ResetTime)
}

func TestParseBucketResult_ShortReply(t *testing.T) {
	_, err := parseBucketResult([]any{int64(1)}, 1, 1)
	assert.Error(t, err)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, defaultBucketTTL(1, 20))
	assert.Equal(t, time.Second, defaultBucketTTL(1000, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestNewSaleLimiter_DisabledReturnsNil(t *testing.T) {
	limiter, err := NewSaleLimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, limiter)

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SaleOwnerRate: 1, SaleOwnerBurst: 1}}
	limiter, err = NewSaleLimiter(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, limiter)
}

func TestNewSaleLimiter_RejectsBadLimits(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true}}
	_, err := NewSaleLimiter(cfg, client)
	assert.Error(t, err)
}

func TestSaleOwnerKey(t *testing.T) {
	assert.Equal(t, "sales:create:owner:42", saleOwnerKey(snowflake.ID(42)))
}

func TestLocker_NilIsSafe(t *testing.T) {
	var locker *Locker
	_, ok, err := locker.TryLock(t.Context(), "job", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(t.Context(), "job", "token"))
}
