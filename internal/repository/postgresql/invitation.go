package postgresql

import (
	"context"
	"fmt"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

const invitationColumns = "id, invite_code, invited_name, box_id, creator_id, created_at, expires_at, opened, linked_user_id, version"

type InvitationRepo struct {
	db     db.DB
	outbox *OutboxTaskRepo
}

func NewInvitationRepo(db db.DB, outbox *OutboxTaskRepo) storage.InvitationRepository {
	return &InvitationRepo{db: db, outbox: outbox}
}

func (r *InvitationRepo) Create(ctx context.Context, inv *lockbox.Invitation) error {
	row := repository.NewInvitationRow(inv)
	_, err := r.db.Exec(ctx, `
        INSERT INTO invitations (
            id, invite_code, invited_name, box_id, creator_id, created_at, expires_at, opened, linked_user_id, version
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
    `, row.ID, row.InviteCode, row.InvitedName, row.BoxID, row.CreatorID, row.CreatedAt, row.ExpiresAt, row.Opened, row.LinkedUserID)
	if err != nil {
		return fmt.Errorf("insert invitation %s: %w", inv.ID, translate(err))
	}
	inv.Version = 1
	return nil
}

func (r *InvitationRepo) Get(ctx context.Context, id string) (*lockbox.Invitation, error) {
	return r.getOne(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE id = $1", id)
}

func (r *InvitationRepo) GetByCode(ctx context.Context, code string) (*lockbox.Invitation, error) {
	return r.getOne(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE invite_code = $1", code)
}

func (r *InvitationRepo) getOne(ctx context.Context, query string, arg string) (*lockbox.Invitation, error) {
	var row repository.InvitationRow
	if err := r.db.Get(ctx, &row, query, arg); err != nil {
		return nil, translate(err)
	}
	return row.Invitation(), nil
}

func (r *InvitationRepo) ListByBox(ctx context.Context, boxID string) ([]*lockbox.Invitation, error) {
	return r.list(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE box_id = $1 ORDER BY created_at, id", boxID)
}

func (r *InvitationRepo) ListByCreator(ctx context.Context, creatorID string, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error) {
	if after == nil {
		return r.list(ctx, "SELECT "+invitationColumns+` FROM invitations
            WHERE creator_id = $1
            ORDER BY created_at, id
            LIMIT $2`, creatorID, limit)
	}
	return r.list(ctx, "SELECT "+invitationColumns+` FROM invitations
        WHERE creator_id = $1 AND (created_at, id) > ($2, $3)
        ORDER BY created_at, id
        LIMIT $4`, creatorID, after.CreatedAt, after.ID, limit)
}

func (r *InvitationRepo) list(ctx context.Context, query string, args ...any) ([]*lockbox.Invitation, error) {
	var rows []*repository.InvitationRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select invitations: %w", err)
	}
	out := make([]*lockbox.Invitation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Invitation())
	}
	return out, nil
}

func (r *InvitationRepo) UpdateIfVersion(ctx context.Context, inv *lockbox.Invitation, task *repository.OutboxTask) error {
	row := repository.NewInvitationRow(inv)
	err := db.InTx(ctx, r.db, func(tx db.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE invitations
            SET invite_code = $1, expires_at = $2, opened = $3, linked_user_id = $4, version = version + 1
            WHERE id = $5 AND version = $6
        `, row.InviteCode, row.ExpiresAt, row.Opened, row.LinkedUserID, row.ID, row.Version)
		if err != nil {
			return fmt.Errorf("update invitation %s: %w", inv.ID, translate(err))
		}
		if tag.RowsAffected() == 0 {
			return r.missOrConflict(ctx, tx, inv.ID)
		}
		if task != nil {
			return r.outbox.CreateTx(ctx, tx, task)
		}
		return nil
	})
	if err != nil {
		return err
	}
	inv.Version++
	return nil
}

func (r *InvitationRepo) missOrConflict(ctx context.Context, q db.Querier, id string) error {
	var exists bool
	if err := q.Get(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)", id); err != nil {
		return fmt.Errorf("check invitation %s: %w", id, err)
	}
	if !exists {
		return repository.ErrObjectNotFound
	}
	return repository.ErrVersionConflict
}
