package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vircom/folio/internal/config"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
)

// retryOnContention runs op and retries it with exponential backoff while it
// fails with ErrContention. Any other error stops immediately. op must own
// its whole unit of work: a retried transaction starts from scratch.
func retryOnContention(ctx context.Context, cfg config.SequenceConfig, log *logger.Logger, name string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.RetryInitialInterval
	policy.MaxElapsedTime = cfg.RetryMaxElapsedTime

	var b backoff.BackOff = policy
	b = backoff.WithMaxRetries(b, cfg.MaxRetries)
	b = backoff.WithContext(b, ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !ierr.IsContention(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		log.Warnw("contention, retrying",
			"operation", name,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	})
	if err != nil && !ierr.IsContention(err) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ierr.WithError(err).
			WithHint("The operation timed out, please retry").
			Mark(ierr.ErrContention)
	}
	return err
}
