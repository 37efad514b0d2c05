// Package resilience keeps the current-week read path available while the
// primary store is flapping: bounded fixed-delay retry on transient errors,
// a cache in front of the query, and an empty-result fallback.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// RetryPolicy bounds retries of a transient failure.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts one second apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// IsTransient reports whether err is a storage connectivity failure worth
// retrying. Constraint violations and not-found never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, apperr.ErrTransient) || database.IsConnectionFailure(err)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// policy's attempts are used up. Each retry is logged at Warn.
func Do[T any](ctx context.Context, p RetryPolicy, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.Attempts-1)),
		ctx,
	)
	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := fn()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b, func(err error, wait time.Duration) {
		logger.Warn("transient store failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}
