// Package storage declares the record-store contracts the managers run on.
// Implementations live under internal/repository: postgresql for
// production, boltdb for a single node, memory for tests and development.
//
// Every write is conditional on the version the caller read. A mismatch
// returns repository.ErrVersionConflict and leaves the record untouched; a
// successful write bumps the version on the passed value.
package storage

import (
	"context"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

type BoxRepository interface {
	// Create stores a new box at version 1.
	Create(ctx context.Context, b *lockbox.Box) error
	Get(ctx context.Context, id string) (*lockbox.Box, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*lockbox.Box, error)
	// ListByGuardian returns boxes with a roster entry for userID, whatever
	// its status.
	ListByGuardian(ctx context.Context, userID string) ([]*lockbox.Box, error)
	UpdateIfVersion(ctx context.Context, b *lockbox.Box) error
	DeleteIfVersion(ctx context.Context, id string, version int64) error
}

type InvitationRepository interface {
	// Create stores a new invitation at version 1. An invite code already
	// held by any stored invitation yields repository.ErrDuplicate.
	Create(ctx context.Context, inv *lockbox.Invitation) error
	Get(ctx context.Context, id string) (*lockbox.Invitation, error)
	GetByCode(ctx context.Context, code string) (*lockbox.Invitation, error)
	ListByBox(ctx context.Context, boxID string) ([]*lockbox.Invitation, error)
	// ListByCreator pages through a creator's invitations in (createdAt, id)
	// order, starting strictly after the cursor when one is given.
	ListByCreator(ctx context.Context, creatorID string, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error)
	// UpdateIfVersion writes inv and, when task is not nil, enqueues the task
	// in the same atomic write.
	UpdateIfVersion(ctx context.Context, inv *lockbox.Invitation, task *repository.OutboxTask) error
}
