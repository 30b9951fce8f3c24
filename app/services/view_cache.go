package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewCache holds rendered read models (the link list, per-phone histories).
// Callers treat every error as a miss; the database stays the source of truth.
type ViewCache interface {
	// Get decodes the cached value into dest and reports whether it was found
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// RedisViewCache stores JSON encoded views in redis
type RedisViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisViewCache(client *redis.Client, prefix string, ttl time.Duration) *RedisViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisViewCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisViewCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisViewCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisViewCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// NoopViewCache never stores anything
type NoopViewCache struct{}

func (NoopViewCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopViewCache) Set(context.Context, string, any) error         { return nil }
func (NoopViewCache) Invalidate(context.Context, ...string) error    { return nil }
