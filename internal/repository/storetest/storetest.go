// Package storetest holds behaviour tests every record-store backend must
// pass. Backends call the Run* functions from their own _test files.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Stores is one backend instance. Each Run* call asks for a fresh one.
type Stores struct {
	Boxes       storage.BoxRepository
	Invitations storage.InvitationRepository
	Outbox      storage.OutboxTaskRepository
}

func newBox(t *testing.T, id, owner string) *lockbox.Box {
	t.Helper()
	b, err := lockbox.NewBox(id, owner, "box "+id, "", base)
	require.NoError(t, err)
	return b
}

func newInvitation(t *testing.T, id, code, creator, box string, at time.Time) *lockbox.Invitation {
	t.Helper()
	inv, err := lockbox.NewInvitation(id, creator, box, "Alice", code, at)
	require.NoError(t, err)
	return inv
}

func RunBoxRepository(t *testing.T, open func(t *testing.T) Stores) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := open(t).Boxes
		b := newBox(t, "b1", "owner-1")
		require.NoError(t, repo.Create(ctx, b))
		assert.Equal(t, int64(1), b.Version)

		got, err := repo.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.True(t, got.IsLocked)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})

	t.Run("conditional update", func(t *testing.T) {
		repo := open(t).Boxes
		require.NoError(t, repo.Create(ctx, newBox(t, "b1", "owner-1")))

		first, err := repo.Get(ctx, "b1")
		require.NoError(t, err)
		second, err := repo.Get(ctx, "b1")
		require.NoError(t, err)

		first.Name = "first"
		require.NoError(t, repo.UpdateIfVersion(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.Name = "second"
		assert.ErrorIs(t, repo.UpdateIfVersion(ctx, second), repository.ErrVersionConflict)

		got, err := repo.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("conditional delete", func(t *testing.T) {
		repo := open(t).Boxes
		b := newBox(t, "b1", "owner-1")
		require.NoError(t, repo.Create(ctx, b))

		assert.ErrorIs(t, repo.DeleteIfVersion(ctx, "b1", 7), repository.ErrVersionConflict)
		require.NoError(t, repo.DeleteIfVersion(ctx, "b1", b.Version))
		_, err := repo.Get(ctx, "b1")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.ErrorIs(t, repo.DeleteIfVersion(ctx, "b1", b.Version), repository.ErrObjectNotFound)
	})

	t.Run("secondary lookups", func(t *testing.T) {
		repo := open(t).Boxes
		b1 := newBox(t, "b1", "owner-1")
		b2 := newBox(t, "b2", "owner-1")
		b3 := newBox(t, "b3", "owner-2")
		require.NoError(t, b3.UpsertGuardian(lockbox.Guardian{ID: "g1", Name: "G"}, base))
		for _, b := range []*lockbox.Box{b1, b2, b3} {
			require.NoError(t, repo.Create(ctx, b))
		}

		owned, err := repo.ListByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Len(t, owned, 2)

		guarded, err := repo.ListByGuardian(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, guarded, 1)
		assert.Equal(t, "b3", guarded[0].ID)

		// roster changes move the guardian lookup with them
		require.NoError(t, b1.UpsertGuardian(lockbox.Guardian{ID: "g1", Name: "G"}, base))
		require.NoError(t, repo.UpdateIfVersion(ctx, b1))
		require.NoError(t, b3.DeleteGuardian("g1", nil, base))
		require.NoError(t, repo.UpdateIfVersion(ctx, b3))

		guarded, err = repo.ListByGuardian(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, guarded, 1)
		assert.Equal(t, "b1", guarded[0].ID)

		none, err := repo.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent writers serialize", func(t *testing.T) {
		repo := open(t).Boxes
		require.NoError(t, repo.Create(ctx, newBox(t, "b1", "owner-1")))

		const writers = 8
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for {
					b, err := repo.Get(ctx, "b1")
					if !assert.NoError(t, err) {
						return
					}
					doc := lockbox.Document{ID: fmt.Sprintf("d%d", i), Title: "t"}
					if !assert.NoError(t, b.UpsertDocument(doc, base)) {
						return
					}
					err = repo.UpdateIfVersion(ctx, b)
					if err == nil {
						return
					}
					if !assert.ErrorIs(t, err, repository.ErrVersionConflict) {
						return
					}
				}
			}(i)
		}
		wg.Wait()

		got, err := repo.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Len(t, got.Documents, writers)
		assert.Equal(t, int64(writers+1), got.Version)
	})
}

func RunInvitationRepository(t *testing.T, open func(t *testing.T) Stores) {
	ctx := context.Background()

	t.Run("create and lookups", func(t *testing.T) {
		repo := open(t).Invitations
		inv := newInvitation(t, "i1", "AAAAAAAA", "owner-1", "b1", base)
		require.NoError(t, repo.Create(ctx, inv))
		assert.Equal(t, int64(1), inv.Version)

		got, err := repo.Get(ctx, "i1")
		require.NoError(t, err)
		assert.Equal(t, "AAAAAAAA", got.InviteCode)
		assert.True(t, got.ExpiresAt.Equal(base.Add(lockbox.InvitationTTL)))

		byCode, err := repo.GetByCode(ctx, "AAAAAAAA")
		require.NoError(t, err)
		assert.Equal(t, "i1", byCode.ID)

		_, err = repo.GetByCode(ctx, "ZZZZZZZZ")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)

		byBox, err := repo.ListByBox(ctx, "b1")
		require.NoError(t, err)
		assert.Len(t, byBox, 1)
	})

	t.Run("invite codes are unique across all invitations", func(t *testing.T) {
		repo := open(t).Invitations
		require.NoError(t, repo.Create(ctx, newInvitation(t, "i1", "AAAAAAAA", "owner-1", "b1", base)))
		err := repo.Create(ctx, newInvitation(t, "i2", "AAAAAAAA", "owner-2", "b2", base))
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("refresh moves the code index", func(t *testing.T) {
		repo := open(t).Invitations
		require.NoError(t, repo.Create(ctx, newInvitation(t, "i1", "AAAAAAAA", "owner-1", "b1", base)))
		require.NoError(t, repo.Create(ctx, newInvitation(t, "i2", "BBBBBBBB", "owner-1", "b1", base)))

		inv, err := repo.Get(ctx, "i1")
		require.NoError(t, err)
		inv.InviteCode = "BBBBBBBB"
		assert.ErrorIs(t, repo.UpdateIfVersion(ctx, inv, nil), repository.ErrDuplicate)

		inv.InviteCode = "CCCCCCCC"
		require.NoError(t, repo.UpdateIfVersion(ctx, inv, nil))

		_, err = repo.GetByCode(ctx, "AAAAAAAA")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		got, err := repo.GetByCode(ctx, "CCCCCCCC")
		require.NoError(t, err)
		assert.Equal(t, "i1", got.ID)
	})

	t.Run("update with outbox task is atomic", func(t *testing.T) {
		stores := open(t)
		require.NoError(t, stores.Invitations.Create(ctx, newInvitation(t, "i1", "AAAAAAAA", "owner-1", "b1", base)))

		inv, err := stores.Invitations.Get(ctx, "i1")
		require.NoError(t, err)
		stale := *inv

		_, err = inv.Redeem("u2", base)
		require.NoError(t, err)
		ev := lockbox.NewInvitationEvent("ev-1", lockbox.EventInvitationCreated, inv, "u2", base)
		task, err := repository.NewEventTask("invitation-events", ev)
		require.NoError(t, err)
		require.NoError(t, stores.Invitations.UpdateIfVersion(ctx, inv, task))

		// a stale writer neither overwrites nor enqueues
		_, err = stale.Redeem("u3", base)
		require.NoError(t, err)
		staleTask, err := repository.NewEventTask("invitation-events", ev)
		require.NoError(t, err)
		assert.ErrorIs(t, stores.Invitations.UpdateIfVersion(ctx, &stale, staleTask), repository.ErrVersionConflict)

		got, err := stores.Invitations.Get(ctx, "i1")
		require.NoError(t, err)
		require.NotNil(t, got.LinkedUserID)
		assert.Equal(t, "u2", *got.LinkedUserID)
		assert.True(t, got.Opened)

		claimed, err := stores.Outbox.ClaimProcessable(ctx, 10, 5, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, task.ID, claimed[0].ID)
		assert.Equal(t, "b1", claimed[0].Key)
		assert.Equal(t, "invitation_created", claimed[0].Attributes[lockbox.EventTypeAttribute])
	})

	t.Run("creator listing pages in creation order", func(t *testing.T) {
		repo := open(t).Invitations
		codes := []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC", "DDDDDDDD", "EEEEEEEE"}
		for i, code := range codes {
			inv := newInvitation(t, fmt.Sprintf("i%d", i), code, "owner-1", "b1", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.Create(ctx, inv))
		}
		require.NoError(t, repo.Create(ctx, newInvitation(t, "other", "FFFFFFFF", "owner-2", "b2", base)))

		var seen []string
		var after *repository.Cursor
		for {
			page, err := repo.ListByCreator(ctx, "owner-1", after, 2)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			for _, inv := range page {
				seen = append(seen, inv.ID)
			}
			c := repository.CursorOf(page[len(page)-1])
			after = &c
		}
		assert.Equal(t, []string{"i0", "i1", "i2", "i3", "i4"}, seen)
	})
}

func RunOutboxRepository(t *testing.T, open func(t *testing.T) Stores) {
	ctx := context.Background()

	enqueue := func(t *testing.T, stores Stores, id, code string) *repository.OutboxTask {
		t.Helper()
		inv := newInvitation(t, id, code, "owner-1", "b1", base)
		require.NoError(t, stores.Invitations.Create(ctx, inv))
		_, err := inv.Redeem("u2", base)
		require.NoError(t, err)
		task, err := repository.NewEventTask("invitation-events", lockbox.NewInvitationEvent("ev-"+id, lockbox.EventInvitationCreated, inv, "u2", base))
		require.NoError(t, err)
		require.NoError(t, stores.Invitations.UpdateIfVersion(ctx, inv, task))
		return task
	}

	t.Run("claimed tasks are not claimed twice", func(t *testing.T) {
		stores := open(t)
		enqueue(t, stores, "i1", "AAAAAAAA")
		enqueue(t, stores, "i2", "BBBBBBBB")

		first, err := stores.Outbox.ClaimProcessable(ctx, 10, 5, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Len(t, first, 2)
		for _, task := range first {
			assert.Equal(t, repository.TaskStatusProcessing, task.Status)
		}

		second, err := stores.Outbox.ClaimProcessable(ctx, 10, 5, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, second)
	})

	t.Run("failed tasks are retried until max attempts", func(t *testing.T) {
		stores := open(t)
		task := enqueue(t, stores, "i1", "AAAAAAAA")
		_, err := stores.Outbox.ClaimProcessable(ctx, 10, 2, base.Add(-time.Hour))
		require.NoError(t, err)

		msg := "broker down"
		require.NoError(t, stores.Outbox.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusFailed, 1, &msg, nil))
		again, err := stores.Outbox.ClaimProcessable(ctx, 10, 2, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, 1, again[0].Attempts)

		require.NoError(t, stores.Outbox.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusFailed, 2, &msg, nil))
		exhausted, err := stores.Outbox.ClaimProcessable(ctx, 10, 2, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, exhausted)
	})

	t.Run("done tasks stay done", func(t *testing.T) {
		stores := open(t)
		task := enqueue(t, stores, "i1", "AAAAAAAA")
		_, err := stores.Outbox.ClaimProcessable(ctx, 10, 5, base.Add(-time.Hour))
		require.NoError(t, err)
		now := base
		require.NoError(t, stores.Outbox.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusDone, 0, nil, &now))

		// even a generous stale cutoff leaves finished work alone
		left, err := stores.Outbox.ClaimProcessable(ctx, 10, 5, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, left)
	})
}
