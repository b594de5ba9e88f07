package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const groupedCacheKey = "reports:grouped:v1"

// Cache keeps the grouped-by-order rollup in Redis. It is a read-through
// optimization only; the database stays authoritative and entries simply age
// out.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetGrouped returns the cached rollup, or (nil, false) on a miss.
func (c *Cache) GetGrouped(ctx context.Context) ([]OrderGroup, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, groupedCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var groups []OrderGroup
	if err := json.Unmarshal(payload, &groups); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		return nil, false, nil
	}
	return groups, true, nil
}

// SetGrouped stores the rollup with the configured TTL.
func (c *Cache) SetGrouped(ctx context.Context, groups []OrderGroup) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, groupedCacheKey, payload, c.ttl).Err()
}

// Invalidate drops the cached rollup.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, groupedCacheKey).Err()
}
