// internal/library/retry.go
package library

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how often a transaction aborted with ErrConflict is
// attempted and sets the first pause between attempts.
type RetryPolicy struct {
	MaxTries uint
	Interval time.Duration
}

// DefaultRetry is the policy services use unless configured otherwise.
var DefaultRetry = RetryPolicy{MaxTries: 5, Interval: 10 * time.Millisecond}

// RetryConflicts runs op again while it fails with ErrConflict. Any other
// error ends the loop at once.
func RetryConflicts[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.Interval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, ErrConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WarnContext(ctx, "transaction conflict, retrying",
				slog.String("error", err.Error()),
				slog.Duration("backoff", next),
			)
		}),
	)
}
