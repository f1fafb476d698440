package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultOwnerCacheSize = 10_000
	defaultOwnerTTL       = 5 * time.Minute
)

// OwnerCache maps a user to the billing owner whose quota it consumes.
type OwnerCache interface {
	Get(userID snowflake.ID) (snowflake.ID, bool)
	Set(userID, ownerID snowflake.ID)
	Invalidate(userID snowflake.ID)
	Purge()
}

type ownerCache struct {
	entries *expirable.LRU[snowflake.ID, snowflake.ID]
}

// NewOwnerCache returns an in-memory cache with the default size and TTL.
func NewOwnerCache() OwnerCache {
	return NewOwnerCacheWithTTL(defaultOwnerCacheSize, defaultOwnerTTL)
}

func NewOwnerCacheWithTTL(size int, ttl time.Duration) OwnerCache {
	if size <= 0 {
		size = defaultOwnerCacheSize
	}
	if ttl <= 0 {
		ttl = defaultOwnerTTL
	}
	return &ownerCache{entries: expirable.NewLRU[snowflake.ID, snowflake.ID](size, nil, ttl)}
}

func (c *ownerCache) Get(userID snowflake.ID) (snowflake.ID, bool) {
	return c.entries.Get(userID)
}

func (c *ownerCache) Set(userID, ownerID snowflake.ID) {
	if userID == 0 || ownerID == 0 {
		return
	}
	c.entries.Add(userID, ownerID)
}

func (c *ownerCache) Invalidate(userID snowflake.ID) {
	c.entries.Remove(userID)
}

func (c *ownerCache) Purge() {
	c.entries.Purge()
}
