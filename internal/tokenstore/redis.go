package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fraudguard:session:"

// RedisStore keeps the token under a scoped Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedis builds a Redis-backed store for the given scope.
func NewRedis(client *redis.Client, scope string) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + scope + ":token"}
}

// Get returns the stored token or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Set replaces the stored token. The key has no expiry; the token's own exp
// claim governs validity.
func (s *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// Clear deletes the stored token.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear token: %w", err)
	}
	return nil
}
