package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// RetryPolicy bounds retries of transient collaborator failures.
// Only errors wrapping domain.ErrUnavailable are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries. Values below 2 disable retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsed caps the total time spent retrying. Zero means no cap.
	MaxElapsed time.Duration
}

// NoRetry calls the operation exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// RetryPolicyFromSettings converts configured retry settings.
func RetryPolicyFromSettings(s domain.RetrySettings) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     s.MaxAttempts,
		InitialInterval: s.InitialInterval,
		MaxInterval:     s.MaxInterval,
		MaxElapsed:      s.MaxElapsed,
	}
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts
// or ctx is done. op names the call in log lines.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	if p.MaxAttempts < 2 {
		return fn(ctx)
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = p.MaxElapsed

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx)
		if err != nil && !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, p.MaxAttempts, wait.Round(time.Millisecond), err)
	})
}
