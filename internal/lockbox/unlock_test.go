package lockbox_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

func boxWithGuardians(t *testing.T, guardians ...lockbox.Guardian) *lockbox.Box {
	t.Helper()
	b := newBox(t)
	b.Guardians = append(b.Guardians, guardians...)
	return b
}

func env(policy lockbox.ApprovalPolicy) lockbox.ActionEnv {
	return lockbox.ActionEnv{
		Now:    t0.Add(time.Hour),
		NewID:  func() string { return "req-1" },
		Policy: policy,
	}
}

var (
	lead    = lockbox.Guardian{ID: "lead", Name: "Lead", LeadGuardian: true, Status: lockbox.GuardianAccepted}
	second  = lockbox.Guardian{ID: "g2", Name: "Second", Status: lockbox.GuardianAccepted}
	third   = lockbox.Guardian{ID: "g3", Name: "Third", Status: lockbox.GuardianPending}
	refuser = lockbox.Guardian{ID: "g4", Name: "Refuser", Status: lockbox.GuardianRejected}
)

func TestBox_RequestUnlock(t *testing.T) {
	t.Run("lead guardian opens a pending request", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{Message: "need access"}, env(lockbox.Majority{})))

		require.NotNil(t, b.UnlockRequest)
		assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
		assert.Equal(t, "lead", b.UnlockRequest.InitiatedBy)
		assert.Equal(t, "need access", b.UnlockRequest.Message)
		assert.Empty(t, b.UnlockRequest.ApprovedBy)
		assert.Empty(t, b.UnlockRequest.RejectedBy)
		assert.True(t, b.IsLocked)
	})

	t.Run("second request while pending conflicts", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(nil)))
		err := b.Apply("lead", lockbox.RequestUnlock{}, env(nil))
		assert.ErrorIs(t, err, lockbox.ErrConflict)
	})

	t.Run("non lead is unauthorized", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		assert.ErrorIs(t, b.Apply("g2", lockbox.RequestUnlock{}, env(nil)), lockbox.ErrUnauthorized)
	})

	t.Run("rejected lead is unauthorized", func(t *testing.T) {
		rejectedLead := lead
		rejectedLead.Status = lockbox.GuardianRejected
		b := boxWithGuardians(t, rejectedLead)
		assert.ErrorIs(t, b.Apply("lead", lockbox.RequestUnlock{}, env(nil)), lockbox.ErrUnauthorized)
	})

	t.Run("terminal request is superseded", func(t *testing.T) {
		b := boxWithGuardians(t, lead)
		b.UnlockRequest = &lockbox.UnlockRequest{ID: "old", Status: lockbox.UnlockRejected}
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{Message: "again"}, env(nil)))
		assert.Equal(t, "req-1", b.UnlockRequest.ID)
		assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
	})
}

func TestBox_RespondToUnlock(t *testing.T) {
	t.Run("no pending request", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		assert.ErrorIs(t, b.Apply("g2", lockbox.Approve{}, env(nil)), lockbox.ErrBadRequest)
	})

	t.Run("stranger and rejected guardian are unauthorized", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second, refuser)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(nil)))
		assert.ErrorIs(t, b.Apply("nobody", lockbox.Approve{}, env(nil)), lockbox.ErrUnauthorized)
		assert.ErrorIs(t, b.Apply("g4", lockbox.Approve{}, env(nil)), lockbox.ErrUnauthorized)
	})

	t.Run("second response from same guardian conflicts", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second, third)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(nil)))
		require.NoError(t, b.Apply("g2", lockbox.Reject{}, env(lockbox.Majority{})))
		require.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
		assert.ErrorIs(t, b.Apply("g2", lockbox.Approve{}, env(lockbox.Majority{})), lockbox.ErrConflict)
		assert.Equal(t, []string{"g2"}, b.UnlockRequest.RejectedBy)
		assert.Empty(t, b.UnlockRequest.ApprovedBy)
	})

	t.Run("majority approval unlocks", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second, third, refuser)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Majority{})))

		require.NoError(t, b.Apply("g2", lockbox.Approve{}, env(lockbox.Majority{})))
		assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)

		require.NoError(t, b.Apply("lead", lockbox.Approve{}, env(lockbox.Majority{})))
		assert.Equal(t, lockbox.UnlockApproved, b.UnlockRequest.Status)
		assert.False(t, b.IsLocked)
		require.NotNil(t, b.UnlockRequest.ResolvedAt)

		err := b.Apply("g3", lockbox.Approve{}, env(lockbox.Majority{}))
		assert.ErrorIs(t, err, lockbox.ErrBadRequest)
	})

	t.Run("rejection keeps the box locked", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		b.IsLocked = false
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Majority{})))
		require.NoError(t, b.Apply("g2", lockbox.Reject{}, env(lockbox.Majority{})))
		assert.Equal(t, lockbox.UnlockRejected, b.UnlockRequest.Status)
		assert.True(t, b.IsLocked)
	})
}

func TestBox_ApplyInvitationActions(t *testing.T) {
	b := boxWithGuardians(t, third)
	require.NoError(t, b.Apply("g3", lockbox.RejectInvitation{}, env(nil)))
	g, _ := b.Guardian("g3")
	assert.Equal(t, lockbox.GuardianRejected, g.Status)

	assert.ErrorIs(t, b.Apply("g3", lockbox.AcceptInvitation{}, env(nil)), lockbox.ErrBadRequest)
	assert.ErrorIs(t, b.Apply("g3", nil, env(nil)), lockbox.ErrBadRequest)
}

func TestScenario_InvitationToUnlock(t *testing.T) {
	b := newBox(t)
	inv, err := lockbox.NewInvitation("inv-1", "owner-1", b.ID, "Alice", "ABCDEFGH", t0)
	require.NoError(t, err)

	linked, err := inv.Redeem("u2", t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, linked)

	ev := lockbox.NewInvitationEvent("ev-1", lockbox.EventInvitationCreated, inv, "u2", t0.Add(time.Hour))
	changed, err := b.ApplyInvitationEvent(ev)
	require.NoError(t, err)
	require.True(t, changed)

	g, _ := b.Guardian("u2")
	require.NotNil(t, g)
	assert.Equal(t, "Alice", g.Name)
	assert.False(t, g.LeadGuardian)
	assert.Equal(t, lockbox.GuardianPending, g.Status)

	require.NoError(t, b.Apply("u2", lockbox.AcceptInvitation{}, env(nil)))
	require.NoError(t, b.UpsertGuardian(lockbox.Guardian{ID: "u2", Name: "Alice", LeadGuardian: true}, t0.Add(2*time.Hour)))
	b.Guardians = append(b.Guardians, lockbox.Guardian{ID: "u3", Name: "Bob", Status: lockbox.GuardianAccepted})

	require.NoError(t, b.Apply("u2", lockbox.RequestUnlock{Message: "need access"}, env(lockbox.Majority{})))
	assert.Equal(t, "u2", b.UnlockRequest.InitiatedBy)

	require.NoError(t, b.Apply("u3", lockbox.Approve{}, env(lockbox.Majority{})))
	assert.Equal(t, []string{"u3"}, b.UnlockRequest.ApprovedBy)
	// one of two eligible guardians is not a majority
	assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
}

func TestPendingRequestSettlesWhenVotersLeave(t *testing.T) {
	invited := lockbox.Guardian{ID: "a", Name: "A", Status: lockbox.GuardianInvited}

	t.Run("guardian rejects the invitation", func(t *testing.T) {
		b := boxWithGuardians(t, lead, invited)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Majority{})))
		require.NoError(t, b.Apply("lead", lockbox.Approve{}, env(lockbox.Majority{})))
		require.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)

		require.NoError(t, b.Apply("a", lockbox.RejectInvitation{}, env(lockbox.Majority{})))
		assert.Equal(t, lockbox.UnlockApproved, b.UnlockRequest.Status)
		assert.False(t, b.IsLocked)
		require.NotNil(t, b.UnlockRequest.ResolvedAt)
	})

	t.Run("owner removes a guardian", func(t *testing.T) {
		b := boxWithGuardians(t, lead, invited)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Majority{})))
		require.NoError(t, b.Apply("lead", lockbox.Approve{}, env(lockbox.Majority{})))

		require.NoError(t, b.DeleteGuardian("a", lockbox.Majority{}, t0.Add(2*time.Hour)))
		assert.Equal(t, lockbox.UnlockApproved, b.UnlockRequest.Status)
		assert.False(t, b.IsLocked)
	})

	t.Run("last eligible voter removed", func(t *testing.T) {
		b := boxWithGuardians(t, lead, second)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Unanimous{})))

		require.NoError(t, b.DeleteGuardian("g2", lockbox.Unanimous{}, t0.Add(2*time.Hour)))
		require.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
		require.NoError(t, b.DeleteGuardian("lead", lockbox.Unanimous{}, t0.Add(2*time.Hour)))
		assert.Equal(t, lockbox.UnlockRejected, b.UnlockRequest.Status)
		assert.True(t, b.IsLocked)

		// a settled request no longer blocks a new one
		b.Guardians = append(b.Guardians, lead)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Unanimous{})))
		assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
	})

	t.Run("accepting leaves the request open", func(t *testing.T) {
		b := boxWithGuardians(t, lead, invited)
		require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Majority{})))
		require.NoError(t, b.Apply("lead", lockbox.Approve{}, env(lockbox.Majority{})))

		require.NoError(t, b.Apply("a", lockbox.AcceptInvitation{}, env(lockbox.Majority{})))
		assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
		assert.True(t, b.IsLocked)
	})
}
