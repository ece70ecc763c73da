// Package invitations issues, redeems and refreshes guardian invitation
// codes. A redemption commits its invitation_created event to the outbox in
// the same write that links the invitation.
package invitations

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/retry"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BoxLookup resolves box ownership. Errors wrapping lockbox.ErrNotFound mean
// the box does not exist.
type BoxLookup interface {
	BoxOwner(ctx context.Context, boxID string) (string, error)
}

type Config struct {
	Topic          string
	CodeAttempts   int
	MaxRetries     int
	RetryBaseDelay time.Duration
	CallTimeout    time.Duration
}

type Service struct {
	repo    storage.InvitationRepository
	boxes   BoxLookup
	cfg     Config
	logger  *zap.Logger
	timeNow func() time.Time
	newID   func() string
	newCode func() (string, error)
}

// NewService builds the manager. boxes may be nil, in which case box
// existence and ownership are not checked.
func NewService(repo storage.InvitationRepository, boxes BoxLookup, cfg Config, logger *zap.Logger) *Service {
	if cfg.CodeAttempts < 1 {
		cfg.CodeAttempts = 5
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	return &Service{
		repo:    repo,
		boxes:   boxes,
		cfg:     cfg,
		logger:  logger,
		timeNow: time.Now,
		newID:   uuid.NewString,
		newCode: lockbox.NewInviteCode,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func storeError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repository.ErrObjectNotFound):
		return fmt.Errorf("%w: %s", lockbox.ErrNotFound, msg)
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrDuplicate):
		return err
	}
	return fmt.Errorf("%w: %s: %w", lockbox.ErrInternal, msg, err)
}

func (s *Service) withRetry(ctx context.Context, operation, id string, op func() error) error {
	p := retry.Policy{MaxAttempts: s.cfg.MaxRetries, BaseDelay: s.cfg.RetryBaseDelay}
	err := retry.OnConflict(ctx, p, operation, op)
	if errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("%w: invitation %s kept changing concurrently", lockbox.ErrConflict, id)
	}
	return err
}

// checkBox verifies the box exists and, when creatorID is set, that the
// creator owns it.
func (s *Service) checkBox(ctx context.Context, boxID, creatorID string) error {
	if s.boxes == nil {
		return nil
	}
	owner, err := s.boxes.BoxOwner(ctx, boxID)
	if err != nil {
		return err
	}
	if creatorID != "" && owner != creatorID {
		return fmt.Errorf("%w: box %s is not owned by %s", lockbox.ErrUnauthorized, boxID, creatorID)
	}
	return nil
}

func (s *Service) CreateInvitation(ctx context.Context, creatorID, boxID, invitedName string) (*lockbox.Invitation, error) {
	l := s.logger.With(zap.String("operation", "CreateInvitation"), zap.String("creator_id", creatorID), zap.String("box_id", boxID))

	if strings.TrimSpace(invitedName) == "" || strings.TrimSpace(boxID) == "" {
		metrics.OperationErrorsTotal.WithLabelValues("create_invitation").Inc()
		return nil, fmt.Errorf("%w: invitedName and boxId are required", lockbox.ErrBadRequest)
	}
	if err := s.checkBox(ctx, boxID, creatorID); err != nil {
		l.Warn("Box check failed", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("create_invitation").Inc()
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", lockbox.ErrInternal, err)
		}
		inv, err := lockbox.NewInvitation(s.newID(), creatorID, boxID, invitedName, code, s.timeNow())
		if err != nil {
			return nil, err
		}

		wctx, cancel := s.withTimeout(ctx)
		err = s.repo.Create(wctx, inv)
		cancel()
		if errors.Is(err, repository.ErrDuplicate) {
			l.Debug("Invite code collision, drawing another")
			continue
		}
		if err != nil {
			l.Error("Failed to store invitation", zap.Error(err))
			metrics.OperationErrorsTotal.WithLabelValues("create_invitation").Inc()
			return nil, storeError(err, "creating invitation for box %s", boxID)
		}

		metrics.InvitationsCreatedTotal.Inc()
		l.Info("Invitation created", zap.String("invitation_id", inv.ID))
		return inv, nil
	}

	metrics.OperationErrorsTotal.WithLabelValues("create_invitation").Inc()
	return nil, fmt.Errorf("%w: no free invite code after %d attempts", lockbox.ErrInternal, s.cfg.CodeAttempts)
}

// RedeemInvitation links the invitation behind code to userID and queues
// the event that adds the user to the box roster. Repeating the call as the
// same user succeeds and queues the event again.
func (s *Service) RedeemInvitation(ctx context.Context, code, userID string) (*lockbox.Invitation, error) {
	code = lockbox.NormalizeInviteCode(code)
	l := s.logger.With(zap.String("operation", "RedeemInvitation"), zap.String("user_id", userID))

	if !lockbox.ValidInviteCode(code) {
		metrics.OperationErrorsTotal.WithLabelValues("redeem_invitation").Inc()
		return nil, fmt.Errorf("%w: no invitation with code %q", lockbox.ErrNotFound, code)
	}

	var redeemed *lockbox.Invitation
	err := s.withRetry(ctx, "redeem_invitation", code, func() error {
		rctx, cancel := s.withTimeout(ctx)
		inv, err := s.repo.GetByCode(rctx, code)
		cancel()
		if err != nil {
			return storeError(err, "no invitation with code %q", code)
		}

		now := s.timeNow()
		linked, err := inv.Redeem(userID, now)
		if err != nil {
			return err
		}
		if err := s.checkBox(ctx, inv.BoxID, ""); err != nil {
			return err
		}

		event := lockbox.NewInvitationEvent(s.newID(), lockbox.EventInvitationCreated, inv, userID, now)
		task, err := repository.NewEventTask(s.cfg.Topic, event)
		if err != nil {
			return fmt.Errorf("%w: %w", lockbox.ErrInternal, err)
		}

		wctx, cancel := s.withTimeout(ctx)
		defer cancel()
		if err := s.repo.UpdateIfVersion(wctx, inv, task); err != nil {
			return storeError(err, "linking invitation %s", inv.ID)
		}
		if !linked {
			l.Info("Invitation redeemed again by its user", zap.String("invitation_id", inv.ID))
		}
		redeemed = inv
		return nil
	})
	if err != nil {
		l.Warn("Redemption failed", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("redeem_invitation").Inc()
		return nil, err
	}

	metrics.InvitationsRedeemedTotal.Inc()
	l.Info("Invitation redeemed", zap.String("invitation_id", redeemed.ID), zap.String("box_id", redeemed.BoxID))
	return redeemed, nil
}

// RefreshInvitation gives an unredeemed invitation a new code and expiry.
func (s *Service) RefreshInvitation(ctx context.Context, invitationID, requesterID string) (*lockbox.Invitation, error) {
	l := s.logger.With(zap.String("operation", "RefreshInvitation"), zap.String("invitation_id", invitationID))

	var refreshed *lockbox.Invitation
	err := s.withRetry(ctx, "refresh_invitation", invitationID, func() error {
		rctx, cancel := s.withTimeout(ctx)
		inv, err := s.repo.Get(rctx, invitationID)
		cancel()
		if err != nil {
			return storeError(err, "no invitation %s", invitationID)
		}

		for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
			code, err := s.newCode()
			if err != nil {
				return fmt.Errorf("%w: %w", lockbox.ErrInternal, err)
			}
			if err := inv.Refresh(requesterID, code, s.timeNow()); err != nil {
				return err
			}
			wctx, cancel := s.withTimeout(ctx)
			err = s.repo.UpdateIfVersion(wctx, inv, nil)
			cancel()
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			if err != nil {
				return storeError(err, "refreshing invitation %s", invitationID)
			}
			refreshed = inv
			return nil
		}
		return fmt.Errorf("%w: no free invite code after %d attempts", lockbox.ErrInternal, s.cfg.CodeAttempts)
	})
	if err != nil {
		l.Warn("Refresh failed", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("refresh_invitation").Inc()
		return nil, err
	}
	l.Info("Invitation refreshed")
	return refreshed, nil
}

// Page is one slice of a creator's invitations. NextPageToken is empty on
// the last page.
type Page struct {
	Invitations   []*lockbox.Invitation `json:"invitations"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
}

// ListMyInvitations pages through creatorID's invitations in creation
// order. limit is clamped to [1, MaxPageSize], zero meaning DefaultPageSize.
func (s *Service) ListMyInvitations(ctx context.Context, creatorID, pageToken string, limit int) (Page, error) {
	after, err := repository.DecodeCursor(pageToken)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", lockbox.ErrBadRequest, err)
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	found, err := s.repo.ListByCreator(ctx, creatorID, after, limit+1)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list_invitations").Inc()
		return Page{}, storeError(err, "listing invitations of %s", creatorID)
	}

	page := Page{Invitations: found}
	if len(found) > limit {
		page.Invitations = found[:limit]
		page.NextPageToken = repository.CursorOf(found[limit-1]).Encode()
	}
	return page, nil
}

// AllInvitations iterates over every invitation of creatorID, fetching a
// page at a time. Iteration stops at the first error.
func (s *Service) AllInvitations(ctx context.Context, creatorID string) iter.Seq2[*lockbox.Invitation, error] {
	return func(yield func(*lockbox.Invitation, error) bool) {
		token := ""
		for {
			page, err := s.ListMyInvitations(ctx, creatorID, token, MaxPageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, inv := range page.Invitations {
				if !yield(inv, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// ListBoxInvitations returns every invitation issued for a box the
// requester owns.
func (s *Service) ListBoxInvitations(ctx context.Context, boxID, requesterID string) ([]*lockbox.Invitation, error) {
	if err := s.checkBox(ctx, boxID, requesterID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	found, err := s.repo.ListByBox(ctx, boxID)
	if err != nil {
		return nil, storeError(err, "listing invitations of box %s", boxID)
	}
	if s.boxes == nil {
		out := found[:0]
		for _, inv := range found {
			if inv.CreatorID == requesterID {
				out = append(out, inv)
			}
		}
		found = out
	}
	return found, nil
}
