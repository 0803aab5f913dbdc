package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/domain/repository"
	"github.com/ems-platform/auth-service/internal/utils/metrics"
)

// SessionCleaner periodically revokes expired sessions and purges stale
// verification codes. Sweep failures are logged and never propagate; the next
// tick retries.
type SessionCleaner struct {
	sessions     repository.SessionRepository
	codes        repository.VerificationCodeRepository
	interval     time.Duration
	otpRetention time.Duration
	logger       *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionCleaner creates the cleaner. Start must be called to begin
// sweeping.
func NewSessionCleaner(sessions repository.SessionRepository, codes repository.VerificationCodeRepository, interval, otpRetention time.Duration, logger *zap.Logger) *SessionCleaner {
	return &SessionCleaner{
		sessions:     sessions,
		codes:        codes,
		interval:     interval,
		otpRetention: otpRetention,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start launches the background sweep loop. The first sweep runs after one
// full interval, not immediately.
func (c *SessionCleaner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (c *SessionCleaner) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *SessionCleaner) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	swept, err := c.sessions.CleanupExpired(sweepCtx)
	if err != nil {
		c.logger.Error("session cleanup failed", zap.Error(err))
	} else if swept > 0 {
		metrics.SessionsCleanedTotal.Add(float64(swept))
		c.logger.Info("expired sessions revoked", zap.Int64("count", swept))
	}

	purged, err := c.codes.CleanupExpired(sweepCtx, time.Now().Add(-c.otpRetention))
	if err != nil {
		c.logger.Error("verification code cleanup failed", zap.Error(err))
	} else if purged > 0 {
		c.logger.Info("stale verification codes purged", zap.Int64("count", purged))
	}
}
