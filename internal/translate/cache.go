package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cms:translate:"

// Cache stores finished translations. Misses and failures look the same to
// callers; a broken cache only costs a round trip.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

func cacheKey(text, lang string) string {
	sum := sha256.Sum256([]byte(text))
	return lang + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is a bounded LRU with expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, string]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Set(_ context.Context, key, value string) {
	c.lru.Add(key, value)
}

// RedisCache shares translations across portal instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	_ = c.client.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err()
}

// Tiered reads the first cache that has the key and writes through to all.
// A hit in a later tier is copied into the earlier ones.
type Tiered []Cache

func (t Tiered) Get(ctx context.Context, key string) (string, bool) {
	for i, c := range t {
		if v, ok := c.Get(ctx, key); ok {
			for _, earlier := range t[:i] {
				earlier.Set(ctx, key, v)
			}
			return v, true
		}
	}
	return "", false
}

func (t Tiered) Set(ctx context.Context, key, value string) {
	for _, c := range t {
		c.Set(ctx, key, value)
	}
}
