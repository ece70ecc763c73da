package lockbox_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

func event(t lockbox.EventType, userID string, at time.Time) lockbox.InvitationEvent {
	return lockbox.InvitationEvent{
		EventID:      "ev-" + string(t),
		EventType:    t,
		InvitationID: "inv-1",
		BoxID:        "box-1",
		InvitedName:  "Alice",
		UserID:       userID,
		InviteCode:   "ABCDEFGH",
		OccurredAt:   at,
	}
}

func TestInvitationEvent_Validate(t *testing.T) {
	ok := event(lockbox.EventInvitationCreated, "u2", t0)
	assert.NoError(t, ok.Validate())

	noUser := ok
	noUser.UserID = ""
	assert.ErrorIs(t, noUser.Validate(), lockbox.ErrBadRequest)

	noBox := ok
	noBox.BoxID = ""
	assert.ErrorIs(t, noBox.Validate(), lockbox.ErrBadRequest)

	unknown := ok
	unknown.EventType = "invitation_deleted"
	assert.ErrorIs(t, unknown.Validate(), lockbox.ErrBadRequest)
}

func TestBox_ApplyInvitationEvent(t *testing.T) {
	t.Run("appends a new guardian", func(t *testing.T) {
		b := newBox(t)
		at := t0.Add(time.Hour)
		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", at))
		require.NoError(t, err)
		assert.True(t, changed)

		require.Len(t, b.Guardians, 1)
		g := b.Guardians[0]
		assert.Equal(t, "u2", g.ID)
		assert.Equal(t, "Alice", g.Name)
		assert.False(t, g.LeadGuardian)
		assert.Equal(t, lockbox.GuardianPending, g.Status)
		assert.Equal(t, at, g.AddedAt)
		assert.Equal(t, "inv-1", g.InvitationID)
		require.NotNil(t, g.SyncedAt)
		assert.Equal(t, at, *g.SyncedAt)
		assert.Equal(t, at, b.UpdatedAt)
	})

	t.Run("identical event twice yields identical box", func(t *testing.T) {
		b := newBox(t)
		ev := event(lockbox.EventInvitationCreated, "u2", t0.Add(time.Hour))
		_, err := b.ApplyInvitationEvent(ev)
		require.NoError(t, err)
		before := b.Clone()

		changed, err := b.ApplyInvitationEvent(ev)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, before, b)
	})

	t.Run("viewed after created does not regress", func(t *testing.T) {
		b := newBox(t)
		_, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", t0.Add(time.Hour)))
		require.NoError(t, err)

		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationViewed, "u2", t0.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, lockbox.GuardianPending, b.Guardians[0].Status)
	})

	t.Run("created after viewed raises status", func(t *testing.T) {
		b := newBox(t)
		_, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationViewed, "u2", t0.Add(time.Hour)))
		require.NoError(t, err)
		require.Equal(t, lockbox.GuardianInvited, b.Guardians[0].Status)

		at := t0.Add(2 * time.Hour)
		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", at))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, lockbox.GuardianPending, b.Guardians[0].Status)
		assert.Equal(t, at, *b.Guardians[0].SyncedAt)
	})

	t.Run("terminal statuses never regress", func(t *testing.T) {
		for _, status := range []lockbox.GuardianStatus{lockbox.GuardianAccepted, lockbox.GuardianRejected} {
			b := newBox(t)
			b.Guardians = append(b.Guardians, lockbox.Guardian{ID: "u2", Name: "Alice", Status: status, InvitationID: "inv-1"})

			changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", t0.Add(time.Hour)))
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, status, b.Guardians[0].Status)
		}
	})

	t.Run("fills a missing name", func(t *testing.T) {
		b := newBox(t)
		b.Guardians = append(b.Guardians, lockbox.Guardian{ID: "u2", Status: lockbox.GuardianPending, InvitationID: "inv-1"})
		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", t0.Add(time.Hour)))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Alice", b.Guardians[0].Name)
	})

	t.Run("owner redeeming their own invitation is ignored", func(t *testing.T) {
		b := newBox(t)
		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "owner-1", t0))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, b.Guardians)
	})

	t.Run("removed guardian stays removed on redelivery", func(t *testing.T) {
		for _, typ := range []lockbox.EventType{lockbox.EventInvitationCreated, lockbox.EventInvitationViewed} {
			b := newBox(t)
			ev := event(typ, "u2", t0.Add(time.Hour))
			_, err := b.ApplyInvitationEvent(ev)
			require.NoError(t, err)
			require.NoError(t, b.DeleteGuardian("u2", nil, t0.Add(2*time.Hour)))

			changed, err := b.ApplyInvitationEvent(ev)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Empty(t, b.Guardians)
		}
	})

	t.Run("guardian merged before removal stays removed", func(t *testing.T) {
		b := newBox(t)
		b.Guardians = append(b.Guardians, lockbox.Guardian{ID: "u2", Status: lockbox.GuardianRejected, InvitationID: "inv-1"})
		require.NoError(t, b.DeleteGuardian("u2", nil, t0.Add(time.Hour)))
		assert.Equal(t, []string{"inv-1"}, b.AppliedInvitations)

		changed, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "u2", t0.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, b.Guardians)
	})

	t.Run("invalid event is rejected", func(t *testing.T) {
		b := newBox(t)
		_, err := b.ApplyInvitationEvent(event(lockbox.EventInvitationCreated, "", t0))
		assert.ErrorIs(t, err, lockbox.ErrBadRequest)
	})
}
