package service

import (
	"context"
	"time"
)

// RateLimiter throttles repeated attempts at sensitive operations. Allow
// returns false when key has exceeded limit hits within window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
