package guardiansync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/memory"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo storage.BoxRepository) *lockbox.Box {
	t.Helper()
	b, err := lockbox.NewBox("box-1", "owner", "papers", "", t0)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func event(id string, typ lockbox.EventType, user string, at time.Time) lockbox.InvitationEvent {
	return lockbox.InvitationEvent{
		EventID:      id,
		EventType:    typ,
		InvitationID: "inv-1",
		BoxID:        "box-1",
		InvitedName:  "Alice",
		UserID:       user,
		InviteCode:   "ABCDEFGH",
		OccurredAt:   at,
	}
}

func TestHandleEvent_AddsGuardian(t *testing.T) {
	repo := memory.New().Boxes()
	seed(t, repo)
	s := New(repo, time.Second, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.HandleEvent(ctx, event("e1", lockbox.EventInvitationCreated, "user-a", t0.Add(time.Minute))))

	b, err := repo.Get(ctx, "box-1")
	require.NoError(t, err)
	require.Len(t, b.Guardians, 1)
	g := b.Guardians[0]
	assert.Equal(t, "user-a", g.ID)
	assert.Equal(t, "Alice", g.Name)
	assert.Equal(t, lockbox.GuardianPending, g.Status)
	assert.False(t, g.LeadGuardian)
	assert.Equal(t, "inv-1", g.InvitationID)
	assert.Equal(t, t0.Add(time.Minute), g.AddedAt)
}

func TestHandleEvent_Idempotent(t *testing.T) {
	repo := memory.New().Boxes()
	seed(t, repo)
	s := New(repo, time.Second, zap.NewNop())
	ctx := context.Background()
	e := event("e1", lockbox.EventInvitationCreated, "user-a", t0.Add(time.Minute))

	require.NoError(t, s.HandleEvent(ctx, e))
	once, err := repo.Get(ctx, "box-1")
	require.NoError(t, err)

	require.NoError(t, s.HandleEvent(ctx, e))
	twice, err := repo.Get(ctx, "box-1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestHandleEvent_OutOfOrderDoesNotRegress(t *testing.T) {
	repo := memory.New().Boxes()
	seed(t, repo)
	s := New(repo, time.Second, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.HandleEvent(ctx, event("e2", lockbox.EventInvitationCreated, "user-a", t0.Add(2*time.Minute))))
	require.NoError(t, s.HandleEvent(ctx, event("e1", lockbox.EventInvitationViewed, "user-a", t0.Add(time.Minute))))

	b, err := repo.Get(ctx, "box-1")
	require.NoError(t, err)
	require.Len(t, b.Guardians, 1)
	assert.Equal(t, lockbox.GuardianPending, b.Guardians[0].Status)
}

func TestHandleEvent_TerminalStatusKept(t *testing.T) {
	repo := memory.New().Boxes()
	b := seed(t, repo)
	ctx := context.Background()
	require.NoError(t, b.UpsertGuardian(lockbox.Guardian{ID: "user-a", Name: "A"}, t0))
	require.NoError(t, b.RespondToInvitation("user-a", true, nil, t0))
	require.NoError(t, repo.UpdateIfVersion(ctx, b))

	s := New(repo, time.Second, zap.NewNop())
	require.NoError(t, s.HandleEvent(ctx, event("e1", lockbox.EventInvitationCreated, "user-a", t0.Add(time.Minute))))

	got, err := repo.Get(ctx, "box-1")
	require.NoError(t, err)
	assert.Equal(t, lockbox.GuardianAccepted, got.Guardians[0].Status)
}

func TestHandleEvent_RemovedGuardianNotRestored(t *testing.T) {
	tests := []struct {
		name   string
		remove func(b *lockbox.Box) error
	}{
		{"declined then removed", func(b *lockbox.Box) error {
			if err := b.RespondToInvitation("user-a", false, nil, t0.Add(2*time.Minute)); err != nil {
				return err
			}
			return b.DeleteGuardian("user-a", nil, t0.Add(3*time.Minute))
		}},
		{"removed by owner", func(b *lockbox.Box) error {
			return b.DeleteGuardian("user-a", nil, t0.Add(3*time.Minute))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.New().Boxes()
			seed(t, repo)
			s := New(repo, time.Second, zap.NewNop())
			ctx := context.Background()
			e := event("e1", lockbox.EventInvitationCreated, "user-a", t0.Add(time.Minute))
			require.NoError(t, s.HandleEvent(ctx, e))

			b, err := repo.Get(ctx, "box-1")
			require.NoError(t, err)
			require.NoError(t, tt.remove(b))
			require.NoError(t, repo.UpdateIfVersion(ctx, b))

			require.NoError(t, s.HandleEvent(ctx, e))

			got, err := repo.Get(ctx, "box-1")
			require.NoError(t, err)
			assert.Empty(t, got.Guardians)
			assert.Equal(t, b.Version, got.Version)
			assert.ErrorIs(t, got.RespondToInvitation("user-a", true, nil, t0.Add(4*time.Minute)), lockbox.ErrBadRequest)
		})
	}
}

func TestHandleEvent_MissingBoxIsAcknowledged(t *testing.T) {
	repo := memory.New().Boxes()
	s := New(repo, time.Second, zap.NewNop())

	err := s.HandleEvent(context.Background(), event("e1", lockbox.EventInvitationCreated, "user-a", t0))
	assert.NoError(t, err)
}

func TestHandleEvent_InvalidEvent(t *testing.T) {
	repo := memory.New().Boxes()
	seed(t, repo)
	s := New(repo, time.Second, zap.NewNop())

	tests := []struct {
		name string
		e    lockbox.InvitationEvent
	}{
		{"no box", lockbox.InvitationEvent{EventType: lockbox.EventInvitationCreated, UserID: "u"}},
		{"no user", lockbox.InvitationEvent{EventType: lockbox.EventInvitationCreated, BoxID: "box-1"}},
		{"unknown type", lockbox.InvitationEvent{EventType: "invitation_deleted", BoxID: "box-1", UserID: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.HandleEvent(context.Background(), tt.e)
			assert.ErrorIs(t, err, lockbox.ErrBadRequest)
		})
	}
}

type staleRepo struct {
	storage.BoxRepository
}

func (staleRepo) UpdateIfVersion(context.Context, *lockbox.Box) error {
	return repository.ErrVersionConflict
}

func TestHandleEvent_ConflictIsReturnedForRedelivery(t *testing.T) {
	mem := memory.New().Boxes()
	seed(t, mem)
	s := New(staleRepo{mem}, time.Second, zap.NewNop())

	err := s.HandleEvent(context.Background(), event("e1", lockbox.EventInvitationCreated, "user-a", t0))
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.NotErrorIs(t, err, lockbox.ErrBadRequest)

	b, err := mem.Get(context.Background(), "box-1")
	require.NoError(t, err)
	assert.Empty(t, b.Guardians)
}

func TestHandleEvent_OwnerEventIgnored(t *testing.T) {
	repo := memory.New().Boxes()
	seed(t, repo)
	s := New(repo, time.Second, zap.NewNop())

	require.NoError(t, s.HandleEvent(context.Background(), event("e1", lockbox.EventInvitationCreated, "owner", t0)))

	b, err := repo.Get(context.Background(), "box-1")
	require.NoError(t, err)
	assert.Empty(t, b.Guardians)
	assert.Equal(t, int64(1), b.Version)
}
