package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vibelog/internal/domain"
)

const (
	maxAttempts = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
)

// retryPolicy wraps remote automation steps in bounded retries with
// exponential backoff. Session expiry propagates immediately without
// consuming attempts: expired credentials cannot be fixed by waiting.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

func newRetryPolicy(logger *slog.Logger) retryPolicy {
	return retryPolicy{
		attempts: maxAttempts,
		base:     baseBackoff,
		max:      maxBackoff,
		sleep:    sleepCtx,
		logger:   logger,
	}
}

func (p retryPolicy) do(ctx context.Context, op string, fn func() error) error {
	delay := p.base
	var lastErr error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrSessionExpired) {
			return err
		}
		lastErr = err
		if attempt == p.attempts {
			break
		}

		p.logger.Warn("remote step failed, backing off",
			"op", op, "attempt", attempt, "backoff", delay, "err", err)
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
		delay *= 2
		if delay > p.max {
			delay = p.max
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, p.attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
