package lockbox

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type GuardianStatus string

const (
	GuardianInvited  GuardianStatus = "invited"
	GuardianPending  GuardianStatus = "pending"
	GuardianAccepted GuardianStatus = "accepted"
	GuardianRejected GuardianStatus = "rejected"
)

func (s GuardianStatus) Valid() bool {
	switch s {
	case GuardianInvited, GuardianPending, GuardianAccepted, GuardianRejected:
		return true
	}
	return false
}

func (s GuardianStatus) rank() int {
	switch s {
	case GuardianInvited:
		return 0
	case GuardianPending:
		return 1
	default:
		return 2
	}
}

// Terminal reports whether the guardian has answered the invitation.
func (s GuardianStatus) Terminal() bool {
	return s == GuardianAccepted || s == GuardianRejected
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s GuardianStatus) CanAdvanceTo(next GuardianStatus) bool {
	return !s.Terminal() && next.Valid() && next.rank() > s.rank()
}

type Guardian struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        *string        `json:"email,omitempty"`
	LeadGuardian bool           `json:"leadGuardian"`
	Status       GuardianStatus `json:"status"`
	AddedAt      time.Time      `json:"addedAt"`
	InvitationID string         `json:"invitationId,omitempty"`
	SyncedAt     *time.Time     `json:"syncedAt,omitempty"`
}

// UpsertGuardian is the owner's roster edit. New entries start invited or
// pending; the owner can rename, change email or toggle the lead flag of an
// existing entry but never its status.
func (b *Box) UpsertGuardian(g Guardian, now time.Time) error {
	g.ID = strings.TrimSpace(g.ID)
	if g.ID == "" {
		return fmt.Errorf("%w: guardian id is required", ErrBadRequest)
	}
	if g.ID == b.OwnerID {
		return fmt.Errorf("%w: owner cannot be a guardian of their own box", ErrBadRequest)
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: guardian name is required", ErrBadRequest)
	}

	existing, i := b.Guardian(g.ID)
	if existing == nil {
		switch g.Status {
		case "":
			g.Status = GuardianInvited
		case GuardianInvited, GuardianPending:
		default:
			return fmt.Errorf("%w: new guardian status must be invited or pending, got %q", ErrBadRequest, g.Status)
		}
		g.AddedAt = now.UTC()
		b.Guardians = append(b.Guardians, g)
		b.Touch(now)
		return nil
	}

	if g.Status != "" && g.Status != existing.Status {
		return fmt.Errorf("%w: guardian status is changed only by the guardian", ErrBadRequest)
	}
	updated := *existing
	updated.Name = g.Name
	updated.Email = g.Email
	updated.LeadGuardian = g.LeadGuardian
	b.Guardians[i] = updated
	b.Touch(now)
	return nil
}

// DeleteGuardian removes the roster entry. A pending unlock request is
// re-evaluated under policy since the removed guardian no longer votes.
// The guardian's invitation stays recorded so a late event cannot re-add them.
func (b *Box) DeleteGuardian(id string, policy ApprovalPolicy, now time.Time) error {
	g, i := b.Guardian(id)
	if i < 0 {
		return fmt.Errorf("%w: guardian %s in box %s", ErrNotFound, id, b.ID)
	}
	b.recordInvitation(g.InvitationID)
	b.Guardians = append(b.Guardians[:i], b.Guardians[i+1:]...)
	b.resolve(policy, now)
	b.Touch(now)
	return nil
}

// RespondToInvitation records the guardian's own answer to being invited.
// A rejection leaves the eligible voters, so a pending unlock request is
// re-evaluated under policy.
func (b *Box) RespondToInvitation(requesterID string, accept bool, policy ApprovalPolicy, now time.Time) error {
	g, _ := b.Guardian(requesterID)
	if g == nil || g.Status.Terminal() {
		return fmt.Errorf("%w: no open guardian invitation for this box", ErrBadRequest)
	}
	if accept {
		g.Status = GuardianAccepted
	} else {
		g.Status = GuardianRejected
		b.resolve(policy, now)
	}
	b.Touch(now)
	return nil
}

// ApplyInvitationEvent merges a redeemed-invitation event into the roster.
// It reports whether the box changed; replaying the same event, or an older
// one, leaves the box untouched. An invitation whose guardian was removed
// after it was applied does not bring the guardian back.
func (b *Box) ApplyInvitationEvent(e InvitationEvent) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	status, _ := e.EventType.GuardianStatus()
	at := e.OccurredAt.UTC()

	g, _ := b.Guardian(e.UserID)
	if g == nil {
		if e.UserID == b.OwnerID || b.invitationApplied(e.InvitationID) {
			return false, nil
		}
		b.recordInvitation(e.InvitationID)
		b.Guardians = append(b.Guardians, Guardian{
			ID:           e.UserID,
			Name:         e.InvitedName,
			Status:       status,
			AddedAt:      at,
			InvitationID: e.InvitationID,
			SyncedAt:     &at,
		})
		b.Touch(at)
		return true, nil
	}

	changed := false
	if g.Status.CanAdvanceTo(status) {
		g.Status = status
		changed = true
	}
	if g.Name == "" && e.InvitedName != "" {
		g.Name = e.InvitedName
		changed = true
	}
	if g.InvitationID == "" && e.InvitationID != "" {
		g.InvitationID = e.InvitationID
		changed = true
	}
	if !changed {
		return false, nil
	}
	if g.SyncedAt == nil || at.After(*g.SyncedAt) {
		g.SyncedAt = &at
	}
	b.Touch(at)
	return true, nil
}

func (b *Box) invitationApplied(id string) bool {
	return id != "" && slices.Contains(b.AppliedInvitations, id)
}

// recordInvitation remembers id and reports whether it was new.
func (b *Box) recordInvitation(id string) bool {
	if id == "" || b.invitationApplied(id) {
		return false
	}
	b.AppliedInvitations = append(b.AppliedInvitations, id)
	return true
}
