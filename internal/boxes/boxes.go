package boxes

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
)

func (s *Service) CreateBox(ctx context.Context, ownerID, name, description string) (*lockbox.Box, error) {
	l := s.logger.With(zap.String("operation", "CreateBox"), zap.String("owner_id", ownerID))

	b, err := lockbox.NewBox(s.newID(), ownerID, name, description, s.timeNow())
	if err != nil {
		l.Warn("Validation failed", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("create_box").Inc()
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, b); err != nil {
		l.Error("Failed to store box", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("create_box").Inc()
		return nil, storeError(err, "creating box %s", b.ID)
	}

	metrics.BoxesCreatedTotal.Inc()
	l.Info("Box created", zap.String("box_id", b.ID))
	return b, nil
}

// GetBox reads a box in the given role. The owner sees the full record; a
// guardian sees the guardian projection.
func (s *Service) GetBox(ctx context.Context, boxID, requesterID string, role lockbox.Role) (lockbox.BoxView, error) {
	b, err := s.load(ctx, boxID)
	if err != nil {
		return lockbox.BoxView{}, err
	}
	switch role {
	case lockbox.RoleOwner:
		if b.OwnerID != requesterID {
			return lockbox.BoxView{}, fmt.Errorf("%w: box %s is not owned by %s", lockbox.ErrUnauthorized, boxID, requesterID)
		}
		return lockbox.BoxView{Role: role, Owner: b}, nil
	case lockbox.RoleGuardian:
		v, err := b.GuardianView(requesterID)
		if err != nil {
			return lockbox.BoxView{}, err
		}
		return lockbox.BoxView{Role: role, Guardian: v}, nil
	}
	return lockbox.BoxView{}, fmt.Errorf("%w: unknown role %q", lockbox.ErrBadRequest, role)
}

func (s *Service) ListOwnedBoxes(ctx context.Context, ownerID string) ([]*lockbox.Box, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	out, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list_owned_boxes").Inc()
		return nil, storeError(err, "listing boxes of %s", ownerID)
	}
	return out, nil
}

// ListGuardianBoxes returns the guardian projection of every box userID
// protects. Boxes the user rejected are left out.
func (s *Service) ListGuardianBoxes(ctx context.Context, userID string) ([]*lockbox.GuardianBoxView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	found, err := s.repo.ListByGuardian(ctx, userID)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list_guardian_boxes").Inc()
		return nil, storeError(err, "listing boxes guarded by %s", userID)
	}
	out := make([]*lockbox.GuardianBoxView, 0, len(found))
	for _, b := range found {
		v, err := b.GuardianView(userID)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) UpdateBoxOwnerFields(ctx context.Context, boxID, ownerID string, patch lockbox.OwnerPatch) (*lockbox.Box, error) {
	return s.mutateOwned(ctx, "update_box", boxID, ownerID, func(b *lockbox.Box, now time.Time) error {
		return b.ApplyOwnerPatch(patch, now)
	})
}

// DeleteBox removes the box. Invitations issued for it are left in place.
func (s *Service) DeleteBox(ctx context.Context, boxID, ownerID string) error {
	l := s.logger.With(zap.String("operation", "DeleteBox"), zap.String("box_id", boxID), zap.String("owner_id", ownerID))

	err := s.withRetry(ctx, "delete_box", boxID, func() error {
		b, err := s.load(ctx, boxID)
		if err != nil {
			return err
		}
		if b.OwnerID != ownerID {
			return fmt.Errorf("%w: box %s is not owned by %s", lockbox.ErrUnauthorized, boxID, ownerID)
		}
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		if err := s.repo.DeleteIfVersion(ctx, boxID, b.Version); err != nil {
			return storeError(err, "deleting box %s", boxID)
		}
		return nil
	})
	if err != nil {
		l.Warn("Failed to delete box", zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("delete_box").Inc()
		return err
	}
	l.Info("Box deleted")
	return nil
}

func (s *Service) UpsertGuardian(ctx context.Context, boxID, ownerID string, g lockbox.Guardian) (*lockbox.Box, error) {
	return s.mutateOwned(ctx, "upsert_guardian", boxID, ownerID, func(b *lockbox.Box, now time.Time) error {
		return b.UpsertGuardian(g, now)
	})
}

func (s *Service) DeleteGuardian(ctx context.Context, boxID, ownerID, guardianID string) (*lockbox.Box, error) {
	return s.mutateOwned(ctx, "delete_guardian", boxID, ownerID, func(b *lockbox.Box, now time.Time) error {
		return b.DeleteGuardian(guardianID, s.cfg.Policy, now)
	})
}

// UpsertDocument stores doc, assigning an id when it has none.
func (s *Service) UpsertDocument(ctx context.Context, boxID, ownerID string, doc lockbox.Document) (*lockbox.Box, error) {
	if doc.ID == "" {
		doc.ID = s.newID()
	}
	return s.mutateOwned(ctx, "upsert_document", boxID, ownerID, func(b *lockbox.Box, now time.Time) error {
		return b.UpsertDocument(doc, now)
	})
}

func (s *Service) DeleteDocument(ctx context.Context, boxID, ownerID, documentID string) (*lockbox.Box, error) {
	return s.mutateOwned(ctx, "delete_document", boxID, ownerID, func(b *lockbox.Box, now time.Time) error {
		return b.DeleteDocument(documentID, now)
	})
}

// BoxOwner returns the owner of boxID, or an error wrapping
// lockbox.ErrNotFound when the box does not exist.
func (s *Service) BoxOwner(ctx context.Context, boxID string) (string, error) {
	b, err := s.load(ctx, boxID)
	if err != nil {
		return "", err
	}
	return b.OwnerID, nil
}
