// Package guardiansync folds invitation events into box guardian rosters.
// Delivery is at least once and unordered, so every event is applied as an
// idempotent merge and failures are handed back for redelivery.
package guardiansync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

type Synchronizer struct {
	repo        storage.BoxRepository
	callTimeout time.Duration
	logger      *zap.Logger
}

func New(repo storage.BoxRepository, callTimeout time.Duration, logger *zap.Logger) *Synchronizer {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Synchronizer{repo: repo, callTimeout: callTimeout, logger: logger}
}

// HandleEvent applies e to its box with a single conditional write. A nil
// return means the event may be acknowledged. Errors wrapping
// lockbox.ErrBadRequest will never succeed; anything else is worth a
// redelivery.
func (s *Synchronizer) HandleEvent(ctx context.Context, e lockbox.InvitationEvent) error {
	l := s.logger.With(
		zap.String("event_id", e.EventID),
		zap.String("event_type", string(e.EventType)),
		zap.String("box_id", e.BoxID),
		zap.String("user_id", e.UserID),
	)

	if err := e.Validate(); err != nil {
		l.Warn("Dropping invalid invitation event", zap.Error(err))
		metrics.EventsAppliedTotal.WithLabelValues("invalid").Inc()
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	b, err := s.repo.Get(rctx, e.BoxID)
	cancel()
	if errors.Is(err, repository.ErrObjectNotFound) {
		l.Warn("Box no longer exists, acknowledging event")
		metrics.EventsAppliedTotal.WithLabelValues("box_missing").Inc()
		return nil
	}
	if err != nil {
		metrics.EventsAppliedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: loading box %s: %w", lockbox.ErrInternal, e.BoxID, err)
	}

	changed, err := b.ApplyInvitationEvent(e)
	if err != nil {
		metrics.EventsAppliedTotal.WithLabelValues("invalid").Inc()
		return err
	}
	if !changed {
		l.Debug("Event already reflected in roster")
		metrics.EventsAppliedTotal.WithLabelValues("unchanged").Inc()
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	err = s.repo.UpdateIfVersion(wctx, b)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrObjectNotFound):
		l.Warn("Box deleted while applying event, acknowledging")
		metrics.EventsAppliedTotal.WithLabelValues("box_missing").Inc()
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		l.Info("Box changed while applying event, leaving it for redelivery")
		metrics.EventsAppliedTotal.WithLabelValues("conflict").Inc()
		return fmt.Errorf("applying event %s to box %s: %w", e.EventID, e.BoxID, err)
	default:
		metrics.EventsAppliedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: writing box %s: %w", lockbox.ErrInternal, e.BoxID, err)
	}

	g, _ := b.Guardian(e.UserID)
	l.Info("Guardian roster updated", zap.String("status", string(g.Status)))
	metrics.EventsAppliedTotal.WithLabelValues("applied").Inc()
	return nil
}
