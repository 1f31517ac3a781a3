package gateway

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// backoff returns the delay before retry number attempt (zero based).
func (g *Gateway) backoff(attempt int) time.Duration {
	delay := float64(g.cfg.InitialBackoff) * math.Pow(g.cfg.BackoffFactor, float64(attempt))
	if delay > float64(g.cfg.MaxBackoff) {
		return g.cfg.MaxBackoff
	}

	return time.Duration(delay)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRetry runs fn until it succeeds, fails with a non retryable error or
// the attempt ceiling is reached. Only ProviderUnavailable is retried.
func (g *Gateway) withRetry(ctx context.Context, logger zerolog.Logger, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < g.cfg.SubmitAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Str("operation", operation).
					Int("attempts", attempt+1).
					Msg("Operation succeeded after retries")
			}
			return nil
		}

		lastErr = err
		if !gwerr.Retryable(err) {
			return err
		}

		if attempt+1 >= g.cfg.SubmitAttempts {
			break
		}

		delay := g.backoff(attempt)
		logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_attempts", g.cfg.SubmitAttempts).
			Dur("retry_in", delay).
			Msg("Provider unavailable, retrying")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	logger.Error().
		Err(lastErr).
		Str("operation", operation).
		Int("attempts", g.cfg.SubmitAttempts).
		Msg("Operation failed after all retries")

	return lastErr
}
