// Package retry reruns read-modify-write cycles that lost an optimistic
// concurrency race.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// OnConflict runs op until it returns something other than
// repository.ErrVersionConflict, sleeping with jittered exponential backoff
// between attempts. Once MaxAttempts runs all conflicted, the last conflict
// is returned.
func OnConflict(ctx context.Context, p Policy, operation string, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
		b.MaxInterval = 20 * p.BaseDelay
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.VersionConflictsTotal.WithLabelValues(operation).Inc()
			return struct{}{}, err
		}
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.MaxAttempts)))
	return err
}
