package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const latestPriceKey = "fajargold:gold_price:latest"

// PriceCache keeps the latest price snapshot as JSON under a single key
type PriceCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewPriceCache wraps rdb. A zero ttl keeps the entry until overwritten.
func NewPriceCache(rdb redis.Cmdable, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: rdb, ttl: ttl}
}

// SetLatest stores v as the latest snapshot
func (c *PriceCache) SetLatest(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal latest price: %w", err)
	}
	if err := c.rdb.Set(ctx, latestPriceKey, data, c.ttl).Err(); err != nil {
		logger.Warn("Failed to cache latest gold price", logger.Fields{"error": err.Error()})
		return err
	}
	return nil
}

// GetLatest decodes the cached snapshot into dst. It reports false on a miss.
func (c *PriceCache) GetLatest(ctx context.Context, dst interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, latestPriceKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal latest price: %w", err)
	}
	return true, nil
}

// Invalidate drops the cached snapshot
func (c *PriceCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, latestPriceKey).Err()
}
