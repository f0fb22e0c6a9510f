package collect

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/provider"
)

// fetchRetry retries transient provider failures a small bounded number of
// times. This is a separate failure domain from the connection supervisor's
// retry loop: it covers the upstream API, not the database.
type fetchRetry struct {
	maxAttempts    int
	retryDelay     time.Duration
	rateLimitDelay time.Duration
	log            *logrus.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

func newFetchRetry(cfg config.CollectionConfig, log *logrus.Logger) fetchRetry {
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	return fetchRetry{
		maxAttempts:    attempts,
		retryDelay:     cfg.RetryDelay(),
		rateLimitDelay: cfg.RateLimitDelay(),
		log:            log,
		sleep:          sleepContext,
	}
}

// do runs fn until it succeeds, fails permanently, or the attempt budget
// runs out. Rate-limited responses wait the longer rate-limit delay;
// other transient failures back off linearly. NotFound and AuthFailed are
// returned immediately since retrying cannot help.
func (r fetchRetry) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !provider.IsTransient(err) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * r.retryDelay
		if provider.IsRateLimited(err) {
			delay = r.rateLimitDelay
		}
		r.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   delay,
			"error":   err,
		}).Warn("provider fetch failed, retrying")

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}
