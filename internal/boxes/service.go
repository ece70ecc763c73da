// Package boxes runs the box aggregate operations against a record store.
// Every mutation is a read-modify-write cycle closed by a conditional write;
// version conflicts restart the cycle a bounded number of times.
package boxes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/retry"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

// errNoBox marks a box missing from the store, as opposed to a missing
// guardian or document inside it.
var errNoBox = fmt.Errorf("box %w", lockbox.ErrNotFound)

type Config struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	CallTimeout    time.Duration
	Policy         lockbox.ApprovalPolicy
}

type Service struct {
	repo    storage.BoxRepository
	cfg     Config
	logger  *zap.Logger
	timeNow func() time.Time
	newID   func() string
}

func NewService(repo storage.BoxRepository, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 10 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.Policy == nil {
		cfg.Policy = lockbox.Majority{}
	}
	return &Service{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		timeNow: time.Now,
		newID:   uuid.NewString,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) load(ctx context.Context, boxID string) (*lockbox.Box, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	b, err := s.repo.Get(ctx, boxID)
	if err != nil {
		return nil, storeError(err, "loading box %s", boxID)
	}
	return b, nil
}

// storeError classifies a repository failure as a domain error kind.
func storeError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repository.ErrObjectNotFound):
		return fmt.Errorf("%w: %s", errNoBox, msg)
	case errors.Is(err, repository.ErrVersionConflict):
		return err
	}
	return fmt.Errorf("%w: %s: %w", lockbox.ErrInternal, msg, err)
}

// withRetry runs op until it stops failing with a version conflict or the
// attempt budget is spent, at which point the caller sees ErrConflict.
func (s *Service) withRetry(ctx context.Context, operation, boxID string, op func() error) error {
	p := retry.Policy{MaxAttempts: s.cfg.MaxRetries, BaseDelay: s.cfg.RetryBaseDelay}
	err := retry.OnConflict(ctx, p, operation, op)
	if errors.Is(err, repository.ErrVersionConflict) {
		s.logger.Warn("Retry budget spent on version conflicts", zap.String("operation", operation), zap.String("box_id", boxID))
		return fmt.Errorf("%w: box %s kept changing concurrently", lockbox.ErrConflict, boxID)
	}
	return err
}

// mutate loads the box, lets fn change it in memory, and writes it back on
// the version it was read at.
func (s *Service) mutate(ctx context.Context, operation, boxID string, fn func(b *lockbox.Box, now time.Time) error) (*lockbox.Box, error) {
	var out *lockbox.Box
	err := s.withRetry(ctx, operation, boxID, func() error {
		b, err := s.load(ctx, boxID)
		if err != nil {
			return err
		}
		if err := fn(b, s.timeNow()); err != nil {
			return err
		}
		wctx, cancel := s.withTimeout(ctx)
		defer cancel()
		if err := s.repo.UpdateIfVersion(wctx, b); err != nil {
			return storeError(err, "writing box %s", boxID)
		}
		out = b
		return nil
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(operation).Inc()
		return nil, err
	}
	return out, nil
}

// mutateOwned is mutate for owner-only operations. A missing box reports
// Unauthorized so callers cannot discover box ids they do not own.
func (s *Service) mutateOwned(ctx context.Context, operation, boxID, ownerID string, fn func(b *lockbox.Box, now time.Time) error) (*lockbox.Box, error) {
	b, err := s.mutate(ctx, operation, boxID, func(b *lockbox.Box, now time.Time) error {
		if b.OwnerID != ownerID {
			return fmt.Errorf("%w: box %s is not owned by %s", lockbox.ErrUnauthorized, boxID, ownerID)
		}
		return fn(b, now)
	})
	if errors.Is(err, errNoBox) {
		return nil, fmt.Errorf("%w: box %s is not owned by %s", lockbox.ErrUnauthorized, boxID, ownerID)
	}
	return b, err
}
