package lockbox

import (
	"fmt"
	"slices"
	"time"
)

type UnlockStatus string

const (
	UnlockPending  UnlockStatus = "pending"
	UnlockApproved UnlockStatus = "approved"
	UnlockRejected UnlockStatus = "rejected"
)

type UnlockRequest struct {
	ID          string       `json:"id"`
	RequestedAt time.Time    `json:"requestedAt"`
	Status      UnlockStatus `json:"status"`
	Message     string       `json:"message"`
	InitiatedBy string       `json:"initiatedBy"`
	ApprovedBy  []string     `json:"approvedBy"`
	RejectedBy  []string     `json:"rejectedBy"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
}

func (r *UnlockRequest) Pending() bool {
	return r != nil && r.Status == UnlockPending
}

func (r *UnlockRequest) responded(guardianID string) bool {
	return slices.Contains(r.ApprovedBy, guardianID) || slices.Contains(r.RejectedBy, guardianID)
}

// GuardianAction is one of RequestUnlock, Approve, Reject, AcceptInvitation
// or RejectInvitation.
type GuardianAction interface {
	guardianAction()
}

type RequestUnlock struct {
	Message string
}

type Approve struct{}

type Reject struct{}

type AcceptInvitation struct{}

type RejectInvitation struct{}

func (RequestUnlock) guardianAction()    {}
func (Approve) guardianAction()          {}
func (Reject) guardianAction()           {}
func (AcceptInvitation) guardianAction() {}
func (RejectInvitation) guardianAction() {}

// ActionEnv supplies what a guardian action needs from outside the box.
type ActionEnv struct {
	Now    time.Time
	NewID  func() string
	Policy ApprovalPolicy
}

// Apply runs a guardian action against the box on behalf of requesterID.
func (b *Box) Apply(requesterID string, action GuardianAction, env ActionEnv) error {
	switch a := action.(type) {
	case RequestUnlock:
		return b.RequestUnlock(requesterID, a.Message, env.NewID(), env.Now)
	case Approve:
		return b.RespondToUnlock(requesterID, true, env.Policy, env.Now)
	case Reject:
		return b.RespondToUnlock(requesterID, false, env.Policy, env.Now)
	case AcceptInvitation:
		return b.RespondToInvitation(requesterID, true, env.Policy, env.Now)
	case RejectInvitation:
		return b.RespondToInvitation(requesterID, false, env.Policy, env.Now)
	case nil:
		return fmt.Errorf("%w: missing guardian action", ErrBadRequest)
	default:
		return fmt.Errorf("%w: unsupported guardian action %T", ErrBadRequest, action)
	}
}

// RequestUnlock opens a new pending request. Only a lead guardian that has
// not rejected the box may do so, and only when nothing is pending.
func (b *Box) RequestUnlock(requesterID, message, requestID string, now time.Time) error {
	g, ok := b.ActiveGuardian(requesterID)
	if !ok || !g.LeadGuardian {
		return fmt.Errorf("%w: only a lead guardian can request unlock", ErrUnauthorized)
	}
	if b.UnlockRequest.Pending() {
		return fmt.Errorf("%w: unlock request %s is already pending", ErrConflict, b.UnlockRequest.ID)
	}
	b.UnlockRequest = &UnlockRequest{
		ID:          requestID,
		RequestedAt: now.UTC(),
		Status:      UnlockPending,
		Message:     message,
		InitiatedBy: requesterID,
		ApprovedBy:  []string{},
		RejectedBy:  []string{},
	}
	b.Touch(now)
	return nil
}

// RespondToUnlock records one guardian's vote and lets the policy decide
// whether the request is resolved.
func (b *Box) RespondToUnlock(requesterID string, approve bool, policy ApprovalPolicy, now time.Time) error {
	if _, ok := b.ActiveGuardian(requesterID); !ok {
		return fmt.Errorf("%w: not a guardian of this box", ErrUnauthorized)
	}
	req := b.UnlockRequest
	if !req.Pending() {
		return fmt.Errorf("%w: no pending unlock request", ErrBadRequest)
	}
	if req.responded(requesterID) {
		return fmt.Errorf("%w: guardian %s already responded", ErrConflict, requesterID)
	}
	if approve {
		req.ApprovedBy = append(req.ApprovedBy, requesterID)
	} else {
		req.RejectedBy = append(req.RejectedBy, requesterID)
	}

	b.resolve(policy, now)
	b.Touch(now)
	return nil
}

// resolve lets the policy settle a pending request. It runs after every vote
// and after every roster change that can shrink the eligible voters.
func (b *Box) resolve(policy ApprovalPolicy, now time.Time) {
	req := b.UnlockRequest
	if !req.Pending() {
		return
	}
	if policy == nil {
		policy = Majority{}
	}
	switch policy.Decide(b.tally()) {
	case UnlockApproved:
		req.Status = UnlockApproved
		b.IsLocked = false
		req.ResolvedAt = ptrTime(now.UTC())
	case UnlockRejected:
		req.Status = UnlockRejected
		b.IsLocked = true
		req.ResolvedAt = ptrTime(now.UTC())
	}
}

// tally counts votes from eligible guardians only. A guardian who voted and
// was later removed or rejected the box no longer counts.
func (b *Box) tally() Tally {
	var t Tally
	for _, g := range b.Guardians {
		if g.Status == GuardianRejected {
			continue
		}
		t.Eligible++
		if slices.Contains(b.UnlockRequest.ApprovedBy, g.ID) {
			t.Approvals++
		} else if slices.Contains(b.UnlockRequest.RejectedBy, g.ID) {
			t.Rejections++
		}
	}
	return t
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
