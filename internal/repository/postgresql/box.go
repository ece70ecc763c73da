package postgresql

import (
	"context"
	"fmt"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

const boxColumns = "id, owner_id, data, version, created_at, updated_at"

type BoxRepo struct {
	db db.DB
}

func NewBoxRepo(db db.DB) storage.BoxRepository {
	return &BoxRepo{db: db}
}

func (r *BoxRepo) Create(ctx context.Context, b *lockbox.Box) error {
	row, err := repository.NewBoxRow(b)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
        INSERT INTO boxes (id, owner_id, data, version, created_at, updated_at)
        VALUES ($1, $2, $3, 1, $4, $5)
    `, row.ID, row.OwnerID, row.Data, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert box %s: %w", b.ID, translate(err))
	}
	b.Version = 1
	return nil
}

func (r *BoxRepo) Get(ctx context.Context, id string) (*lockbox.Box, error) {
	var row repository.BoxRow
	err := r.db.Get(ctx, &row, "SELECT "+boxColumns+" FROM boxes WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}
	return row.Box()
}

func (r *BoxRepo) ListByOwner(ctx context.Context, ownerID string) ([]*lockbox.Box, error) {
	return r.list(ctx, "SELECT "+boxColumns+" FROM boxes WHERE owner_id = $1 ORDER BY created_at, id", ownerID)
}

func (r *BoxRepo) ListByGuardian(ctx context.Context, userID string) ([]*lockbox.Box, error) {
	return r.list(ctx, "SELECT "+boxColumns+` FROM boxes
        WHERE data -> 'guardians' @> jsonb_build_array(jsonb_build_object('id', $1::text))
        ORDER BY created_at, id`, userID)
}

func (r *BoxRepo) list(ctx context.Context, query string, args ...any) ([]*lockbox.Box, error) {
	var rows []*repository.BoxRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select boxes: %w", err)
	}
	out := make([]*lockbox.Box, 0, len(rows))
	for _, row := range rows {
		b, err := row.Box()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BoxRepo) UpdateIfVersion(ctx context.Context, b *lockbox.Box) error {
	row, err := repository.NewBoxRow(b)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
        UPDATE boxes
        SET data = $1, updated_at = $2, version = version + 1
        WHERE id = $3 AND version = $4
    `, row.Data, row.UpdatedAt, row.ID, row.Version)
	if err != nil {
		return fmt.Errorf("update box %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, b.ID)
	}
	b.Version++
	return nil
}

func (r *BoxRepo) DeleteIfVersion(ctx context.Context, id string, version int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM boxes WHERE id = $1 AND version = $2", id, version)
	if err != nil {
		return fmt.Errorf("delete box %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict explains a conditional write that touched no rows.
func (r *BoxRepo) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.Get(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM boxes WHERE id = $1)", id); err != nil {
		return fmt.Errorf("check box %s: %w", id, err)
	}
	if !exists {
		return repository.ErrObjectNotFound
	}
	return repository.ErrVersionConflict
}
