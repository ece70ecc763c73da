package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db/mocks"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

func testInvitation(t *testing.T) *lockbox.Invitation {
	t.Helper()
	inv, err := lockbox.NewInvitation("inv-1", "owner-1", "box-1", "Alice", "ABCDEFGH", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return inv
}

func TestInvitationRepo_GetByCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewInvitationRepo(mockDB, NewOutboxTaskRepo(mockDB))
	ctx := context.Background()

	mockDB.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ABCDEFGH")).
		DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
			*dest.(*repository.InvitationRow) = *repository.NewInvitationRow(testInvitation(t))
			return nil
		})

	inv, err := repo.GetByCode(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "Alice", inv.InvitedName)
}

func TestInvitationRepo_ListByCreator(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := NewInvitationRepo(mockDB, NewOutboxTaskRepo(mockDB))
	ctx := context.Background()

	t.Run("First Page", func(t *testing.T) {
		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("owner-1"), gomock.Eq(10)).
			DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
				*dest.(*[]*repository.InvitationRow) = []*repository.InvitationRow{repository.NewInvitationRow(testInvitation(t))}
				return nil
			})

		out, err := repo.ListByCreator(ctx, "owner-1", nil, 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("After Cursor", func(t *testing.T) {
		cursor := repository.CursorOf(testInvitation(t))
		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Eq("owner-1"),
				gomock.Eq(cursor.CreatedAt),
				gomock.Eq("inv-1"),
				gomock.Eq(10)).
			Return(nil)

		out, err := repo.ListByCreator(ctx, "owner-1", &cursor, 10)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestInvitationRepo_UpdateIfVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewInvitationRepo(mockDB, NewOutboxTaskRepo(mockDB))
	ctx := context.Background()

	t.Run("Writes Task In Same Transaction", func(t *testing.T) {
		inv := testInvitation(t)
		inv.Version = 1
		task, err := repository.NewEventTask("invitations", lockbox.InvitationEvent{
			EventID: "e1", EventType: lockbox.EventInvitationCreated, BoxID: "box-1",
		})
		require.NoError(t, err)

		gomock.InOrder(
			mockDB.EXPECT().BeginTx(gomock.Any()).Return(mockTx, nil),
			mockTx.EXPECT().
				Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("inv-1"), gomock.Eq(int64(1))).
				Return(pgconn.CommandTag("UPDATE 1"), nil),
			mockTx.EXPECT().
				Exec(gomock.Any(), gomock.Any(),
					gomock.Eq(task.ID),
					gomock.Eq(repository.TaskStatusCreated),
					gomock.Eq("invitations"),
					gomock.Eq("box-1"),
					gomock.Any(),
					gomock.Any()).
				Return(pgconn.CommandTag("INSERT 0 1"), nil),
			mockTx.EXPECT().Commit(gomock.Any()).Return(nil),
			mockTx.EXPECT().Rollback(gomock.Any()).Return(nil),
		)

		require.NoError(t, repo.UpdateIfVersion(ctx, inv, task))
		assert.Equal(t, int64(2), inv.Version)
	})

	t.Run("Conflict Rolls Back", func(t *testing.T) {
		inv := testInvitation(t)
		inv.Version = 1

		gomock.InOrder(
			mockDB.EXPECT().BeginTx(gomock.Any()).Return(mockTx, nil),
			mockTx.EXPECT().
				Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(pgconn.CommandTag("UPDATE 0"), nil),
			mockTx.EXPECT().
				Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("inv-1")).
				DoAndReturn(func(_ context.Context, dest any, _ string, _ ...any) error {
					*dest.(*bool) = true
					return nil
				}),
			mockTx.EXPECT().Rollback(gomock.Any()).Return(nil),
		)

		err := repo.UpdateIfVersion(ctx, inv, nil)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		assert.Equal(t, int64(1), inv.Version)
	})

	t.Run("Begin Error", func(t *testing.T) {
		inv := testInvitation(t)
		mockDB.EXPECT().BeginTx(gomock.Any()).Return(nil, errors.New("pool closed"))

		assert.Error(t, repo.UpdateIfVersion(ctx, inv, nil))
	})
}
