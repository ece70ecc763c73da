package lockbox

import (
	"fmt"
	"strings"
)

// Tally is the vote count of a pending unlock request over the eligible
// voters, guardians whose status is not rejected.
type Tally struct {
	Eligible   int
	Approvals  int
	Rejections int
}

func (t Tally) undecided() int {
	return t.Eligible - t.Approvals - t.Rejections
}

// ApprovalPolicy decides when a pending unlock request resolves. Decide
// returns UnlockPending while the outcome is still open.
type ApprovalPolicy interface {
	Name() string
	Decide(t Tally) UnlockStatus
}

const (
	PolicySingle    = "single"
	PolicyMajority  = "majority"
	PolicyUnanimous = "unanimous"
	PolicyThreshold = "threshold"
)

// Single approves on the first approval and rejects only once every
// eligible guardian has rejected.
type Single struct{}

func (Single) Name() string { return PolicySingle }

func (Single) Decide(t Tally) UnlockStatus {
	switch {
	case t.Approvals >= 1:
		return UnlockApproved
	case t.Rejections >= t.Eligible:
		return UnlockRejected
	}
	return UnlockPending
}

// Majority approves once more than half of the eligible guardians approve
// and rejects once that is no longer reachable.
type Majority struct{}

func (Majority) Name() string { return PolicyMajority }

func (Majority) Decide(t Tally) UnlockStatus {
	switch {
	case t.Approvals*2 > t.Eligible:
		return UnlockApproved
	case (t.Eligible-t.Rejections)*2 <= t.Eligible:
		return UnlockRejected
	}
	return UnlockPending
}

type Unanimous struct{}

func (Unanimous) Name() string { return PolicyUnanimous }

// Unanimous approves once every eligible guardian approved. Any rejection,
// or a roster with nobody left to approve, rejects.
func (Unanimous) Decide(t Tally) UnlockStatus {
	switch {
	case t.Rejections > 0, t.Eligible == 0:
		return UnlockRejected
	case t.Eligible > 0 && t.Approvals == t.Eligible:
		return UnlockApproved
	}
	return UnlockPending
}

// Threshold approves at K approvals. It rejects as soon as the guardians
// that have not voted can no longer lift approvals to K.
type Threshold struct {
	K int
}

func (p Threshold) Name() string { return fmt.Sprintf("%s(%d)", PolicyThreshold, p.K) }

func (p Threshold) Decide(t Tally) UnlockStatus {
	switch {
	case t.Approvals >= p.K:
		return UnlockApproved
	case t.Approvals+t.undecided() < p.K:
		return UnlockRejected
	}
	return UnlockPending
}

// ParsePolicy resolves a configured policy name. threshold is only read for
// the threshold policy and must be positive.
func ParsePolicy(name string, threshold int) (ApprovalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyMajority:
		return Majority{}, nil
	case PolicySingle:
		return Single{}, nil
	case PolicyUnanimous:
		return Unanimous{}, nil
	case PolicyThreshold:
		if threshold < 1 {
			return nil, fmt.Errorf("threshold policy needs a positive threshold, got %d", threshold)
		}
		return Threshold{K: threshold}, nil
	}
	return nil, fmt.Errorf("unknown approval policy %q", name)
}
