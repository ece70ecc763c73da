package lockbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

func TestApprovalPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy lockbox.ApprovalPolicy
		tally  lockbox.Tally
		want   lockbox.UnlockStatus
	}{
		{"single approves on first approval", lockbox.Single{}, lockbox.Tally{Eligible: 5, Approvals: 1}, lockbox.UnlockApproved},
		{"single waits while someone may approve", lockbox.Single{}, lockbox.Tally{Eligible: 3, Rejections: 2}, lockbox.UnlockPending},
		{"single rejects when everyone rejected", lockbox.Single{}, lockbox.Tally{Eligible: 3, Rejections: 3}, lockbox.UnlockRejected},

		{"majority needs more than half", lockbox.Majority{}, lockbox.Tally{Eligible: 4, Approvals: 2}, lockbox.UnlockPending},
		{"majority approves", lockbox.Majority{}, lockbox.Tally{Eligible: 4, Approvals: 3}, lockbox.UnlockApproved},
		{"majority rejects when unreachable", lockbox.Majority{}, lockbox.Tally{Eligible: 4, Rejections: 2}, lockbox.UnlockRejected},
		{"majority of one", lockbox.Majority{}, lockbox.Tally{Eligible: 1, Approvals: 1}, lockbox.UnlockApproved},
		{"majority still open", lockbox.Majority{}, lockbox.Tally{Eligible: 5, Approvals: 2, Rejections: 2}, lockbox.UnlockPending},

		{"unanimous waits for all", lockbox.Unanimous{}, lockbox.Tally{Eligible: 3, Approvals: 2}, lockbox.UnlockPending},
		{"unanimous approves", lockbox.Unanimous{}, lockbox.Tally{Eligible: 3, Approvals: 3}, lockbox.UnlockApproved},
		{"unanimous rejects on any rejection", lockbox.Unanimous{}, lockbox.Tally{Eligible: 3, Approvals: 2, Rejections: 1}, lockbox.UnlockRejected},
		{"unanimous rejects with nobody eligible", lockbox.Unanimous{}, lockbox.Tally{}, lockbox.UnlockRejected},

		{"threshold approves at k", lockbox.Threshold{K: 2}, lockbox.Tally{Eligible: 5, Approvals: 2}, lockbox.UnlockApproved},
		{"threshold pending below k", lockbox.Threshold{K: 2}, lockbox.Tally{Eligible: 5, Approvals: 1, Rejections: 3}, lockbox.UnlockPending},
		{"threshold rejects when k unreachable", lockbox.Threshold{K: 2}, lockbox.Tally{Eligible: 5, Approvals: 1, Rejections: 4}, lockbox.UnlockRejected},
		{"threshold above eligible rejects", lockbox.Threshold{K: 4}, lockbox.Tally{Eligible: 3}, lockbox.UnlockRejected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Decide(tc.tally))
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := lockbox.ParsePolicy("", 0)
	require.NoError(t, err)
	assert.Equal(t, lockbox.PolicyMajority, p.Name())

	p, err = lockbox.ParsePolicy("Threshold", 3)
	require.NoError(t, err)
	assert.Equal(t, lockbox.Threshold{K: 3}, p)
	assert.Equal(t, "threshold(3)", p.Name())

	_, err = lockbox.ParsePolicy("threshold", 0)
	assert.Error(t, err)

	_, err = lockbox.ParsePolicy("quorum", 0)
	assert.Error(t, err)
}

func TestRespondToUnlock_IgnoresVotesOfRejectedGuardians(t *testing.T) {
	b := boxWithGuardians(t, lead, second, third)
	require.NoError(t, b.Apply("lead", lockbox.RequestUnlock{}, env(lockbox.Unanimous{})))
	require.NoError(t, b.Apply("g3", lockbox.Approve{}, env(lockbox.Unanimous{})))

	// g3 walks away from the box; its vote stops counting
	g, _ := b.Guardian("g3")
	g.Status = lockbox.GuardianRejected

	require.NoError(t, b.Apply("g2", lockbox.Approve{}, env(lockbox.Unanimous{})))
	assert.Equal(t, lockbox.UnlockPending, b.UnlockRequest.Status)
	require.NoError(t, b.Apply("lead", lockbox.Approve{}, env(lockbox.Unanimous{})))
	assert.Equal(t, lockbox.UnlockApproved, b.UnlockRequest.Status)
	assert.False(t, b.IsLocked)
}
