package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis when an address is configured.
// It returns a nil client without error when Redis is disabled.
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.Info("Redis address not configured, access token cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

// RedisHealth adapts a redis client to the health endpoint's Ping(ctx) error shape
type RedisHealth struct {
	client *redis.Client
}

func RedisPinger(client *redis.Client) *RedisHealth {
	return &RedisHealth{client: client}
}

func (h *RedisHealth) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}
