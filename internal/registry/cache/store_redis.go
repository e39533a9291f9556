package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"firmus/pkg/platform/sentinel"
)

// RedisStore backs the lookup cache with Redis. TTL enforcement is
// delegated to the server via SET EX.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the cached value or sentinel.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	return val, err
}

// Set stores the value with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
