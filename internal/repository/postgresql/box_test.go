package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db/mocks"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

func testBox(t *testing.T) *lockbox.Box {
	t.Helper()
	b, err := lockbox.NewBox("box-1", "owner-1", "papers", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return b
}

func TestBoxRepo_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewBoxRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		b := testBox(t)
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(),
				gomock.Eq("box-1"),
				gomock.Eq("owner-1"),
				gomock.Any(),
				gomock.Eq(b.CreatedAt),
				gomock.Eq(b.UpdatedAt)).
			Return(pgconn.CommandTag("INSERT 0 1"), nil)

		require.NoError(t, repo.Create(ctx, b))
		assert.Equal(t, int64(1), b.Version)
	})

	t.Run("Duplicate", func(t *testing.T) {
		b := testBox(t)
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, b)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})
}

func TestBoxRepo_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewBoxRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		stored := testBox(t)
		data, err := json.Marshal(stored)
		require.NoError(t, err)

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("box-1")).
			DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
				row := dest.(*repository.BoxRow)
				*row = repository.BoxRow{ID: "box-1", OwnerID: "owner-1", Data: data, Version: 4}
				return nil
			})

		b, err := repo.Get(ctx, "box-1")
		require.NoError(t, err)
		assert.Equal(t, "papers", b.Name)
		assert.Equal(t, int64(4), b.Version)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("missing")).
			Return(pgx.ErrNoRows)

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestBoxRepo_UpdateIfVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewBoxRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		b := testBox(t)
		b.Version = 2
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("box-1"), gomock.Eq(int64(2))).
			Return(pgconn.CommandTag("UPDATE 1"), nil)

		require.NoError(t, repo.UpdateIfVersion(ctx, b))
		assert.Equal(t, int64(3), b.Version)
	})

	t.Run("Stale Version", func(t *testing.T) {
		b := testBox(t)
		b.Version = 2
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag("UPDATE 0"), nil)
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("box-1")).
			DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
				*dest.(*bool) = true
				return nil
			})

		err := repo.UpdateIfVersion(ctx, b)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		assert.Equal(t, int64(2), b.Version)
	})

	t.Run("Missing", func(t *testing.T) {
		b := testBox(t)
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag("UPDATE 0"), nil)
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := repo.UpdateIfVersion(ctx, b)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestBoxRepo_DeleteIfVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewBoxRepo(mockDB)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Eq("box-1"), gomock.Eq(int64(3))).
			Return(pgconn.CommandTag("DELETE 1"), nil)

		assert.NoError(t, repo.DeleteIfVersion(ctx, "box-1", 3))
	})

	t.Run("DB Error", func(t *testing.T) {
		dbErr := errors.New("database error")
		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dbErr)

		err := repo.DeleteIfVersion(ctx, "box-1", 3)
		assert.ErrorIs(t, err, dbErr)
	})
}
