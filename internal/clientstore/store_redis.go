package clientstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cmsportal/pkg/platform/sentinel"
)

const keyPrefix = "cms:client:"

// RedisStore is the durable implementation shared by every portal instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires values after ttl. Zero keeps them indefinitely.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Get returns sentinel.ErrNotFound when nothing is stored under key.
func (s *RedisStore) Get(ctx context.Context, scope, key string) (string, error) {
	if err := validate(scope, key); err != nil {
		return "", err
	}
	v, err := s.client.Get(ctx, redisKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read client storage: %v", sentinel.ErrUnavailable, err)
	}
	return v, nil
}

// SetIfAbsent uses SETNX so concurrent first visits from the same device agree
// on a single value.
func (s *RedisStore) SetIfAbsent(ctx context.Context, scope, key, value string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}
	rk := redisKey(scope, key)
	created, err := s.client.SetNX(ctx, rk, value, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("%w: write client storage: %v", sentinel.ErrUnavailable, err)
	}
	if created {
		return value, true, nil
	}
	existing, err := s.client.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.SetIfAbsent(ctx, scope, key, value)
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read client storage: %v", sentinel.ErrUnavailable, err)
	}
	return existing, false, nil
}

func (s *RedisStore) Set(ctx context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(scope, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: write client storage: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, scope, key string) error {
	if err := validate(scope, key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("%w: clear client storage: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
