package boxes

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
)

// Act applies a guardian action on behalf of requesterID and returns the
// stored box.
func (s *Service) Act(ctx context.Context, boxID, requesterID string, action lockbox.GuardianAction) (*lockbox.Box, error) {
	requestID := s.newID()
	env := func(now time.Time) lockbox.ActionEnv {
		return lockbox.ActionEnv{
			Now:    now,
			NewID:  func() string { return requestID },
			Policy: s.cfg.Policy,
		}
	}
	return s.mutate(ctx, actionName(action), boxID, func(b *lockbox.Box, now time.Time) error {
		return b.Apply(requesterID, action, env(now))
	})
}

func actionName(action lockbox.GuardianAction) string {
	switch action.(type) {
	case lockbox.RequestUnlock:
		return "request_unlock"
	case lockbox.Approve, lockbox.Reject:
		return "respond_to_unlock"
	case lockbox.AcceptInvitation, lockbox.RejectInvitation:
		return "respond_to_invitation"
	}
	return "guardian_action"
}

func (s *Service) RequestUnlock(ctx context.Context, boxID, requesterID, message string) (*lockbox.GuardianBoxView, error) {
	l := s.logger.With(zap.String("operation", "RequestUnlock"), zap.String("box_id", boxID), zap.String("requester_id", requesterID))

	b, err := s.Act(ctx, boxID, requesterID, lockbox.RequestUnlock{Message: message})
	if err != nil {
		l.Warn("Unlock request refused", zap.Error(err))
		return nil, err
	}
	metrics.UnlockRequestsTotal.Inc()
	l.Info("Unlock requested", zap.String("request_id", b.UnlockRequest.ID))
	return b.GuardianView(requesterID)
}

func (s *Service) RespondToUnlock(ctx context.Context, boxID, requesterID string, approve bool) (*lockbox.GuardianBoxView, error) {
	l := s.logger.With(zap.String("operation", "RespondToUnlock"), zap.String("box_id", boxID),
		zap.String("requester_id", requesterID), zap.Bool("approve", approve))

	var action lockbox.GuardianAction = lockbox.Reject{}
	if approve {
		action = lockbox.Approve{}
	}
	b, err := s.Act(ctx, boxID, requesterID, action)
	if err != nil {
		l.Warn("Unlock response refused", zap.Error(err))
		return nil, err
	}
	if status := b.UnlockRequest.Status; status != lockbox.UnlockPending {
		metrics.UnlockResolutionsTotal.WithLabelValues(string(status)).Inc()
		l.Info("Unlock request resolved", zap.String("status", string(status)), zap.Bool("is_locked", b.IsLocked))
	}
	return b.GuardianView(requesterID)
}

// RespondToGuardianInvitation accepts or rejects the caller's roster entry.
// After a rejection the caller may no longer read the box, so the view is nil.
func (s *Service) RespondToGuardianInvitation(ctx context.Context, boxID, requesterID string, accept bool) (*lockbox.GuardianBoxView, error) {
	var action lockbox.GuardianAction = lockbox.RejectInvitation{}
	if accept {
		action = lockbox.AcceptInvitation{}
	}
	b, err := s.Act(ctx, boxID, requesterID, action)
	if err != nil {
		s.logger.Warn("Invitation response refused", zap.String("box_id", boxID), zap.String("requester_id", requesterID), zap.Error(err))
		return nil, err
	}
	if !accept {
		return nil, nil
	}
	return b.GuardianView(requesterID)
}
