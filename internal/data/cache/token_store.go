// Package cache provides Redis-backed caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessTokenKeySuffix = "mpesa:access_token"

// TokenStore keeps the Daraja access token in Redis so every replica shares one token
type TokenStore struct {
	client *redis.Client
	key    string
}

// NewTokenStore creates a token store with keys under prefix
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	key := accessTokenKeySuffix
	if prefix != "" {
		key = prefix + ":" + accessTokenKeySuffix
	}
	return &TokenStore{client: client, key: key}
}

// Key is the Redis key holding the token
func (s *TokenStore) Key() string {
	return s.key
}

// GetToken returns the cached token, or "" when none is cached
func (s *TokenStore) GetToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cached access token: %w", err)
	}
	return token, nil
}

func (s *TokenStore) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache access token: %w", err)
	}
	return nil
}
