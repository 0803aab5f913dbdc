package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/config"
	"github.com/ems-platform/auth-service/internal/domain/service"
)

// redisRateLimiter implements a fixed-window counter per key. Redis being down
// must never lock everyone out, so errors fail open and are logged instead.
type redisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient opens a Redis connection and verifies it with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisRateLimiter creates a fixed-window rate limiter backed by Redis.
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) service.RateLimiter {
	return &redisRateLimiter{client: client, logger: logger}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("key", key), zap.Error(err))
		return true, nil
	}

	// First hit in the window owns setting the expiry.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			l.logger.Warn("failed to set rate limit window expiry",
				zap.String("key", key), zap.Error(err))
		}
	}

	return count <= int64(limit), nil
}

var _ service.RateLimiter = (*redisRateLimiter)(nil)
