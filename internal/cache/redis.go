package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"insight/internal/log"
)

// RedisCache stores JSON-encoded values under a key prefix so several
// dashboard replicas can share loaded tables.
type RedisCache[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisCache wraps client. A zero ttl stores keys without expiry.
func NewRedisCache[T any](client redis.Cmdable, prefix string, ttl time.Duration, logger *log.Logger) *RedisCache[T] {
	if logger == nil {
		logger = log.Discard()
	}
	return &RedisCache[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentCache),
	}
}

// Get returns a decoded value. Redis errors and undecodable payloads count as misses.
func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Redis get failed", log.FieldCacheKey, key, log.FieldError, err)
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.WarnContext(ctx, "Discarding undecodable cache entry", log.FieldCacheKey, key, log.FieldError, err)
		c.Delete(ctx, key)
		return zero, false
	}
	return v, true
}

// Set stores data, logging failures.
func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache entry not encodable", log.FieldCacheKey, key, log.FieldError, err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis set failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

// Delete removes key.
func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis delete failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

// Clear deletes every key under the prefix.
func (c *RedisCache[T]) Clear(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			c.logger.WarnContext(ctx, "Redis scan failed", log.FieldError, err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.WarnContext(ctx, "Redis delete failed", log.FieldError, err)
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
