package lockbox

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventInvitationCreated EventType = "invitation_created"
	EventInvitationViewed  EventType = "invitation_viewed"

	// EventTypeAttribute is the transport attribute consumers filter on.
	EventTypeAttribute = "eventType"
)

// GuardianStatus maps an event type to the roster status it implies.
func (t EventType) GuardianStatus() (GuardianStatus, bool) {
	switch t {
	case EventInvitationCreated:
		return GuardianPending, true
	case EventInvitationViewed:
		return GuardianInvited, true
	}
	return "", false
}

// InvitationEvent is the wire payload announcing a redeemed invitation.
type InvitationEvent struct {
	EventID      string    `json:"eventId"`
	EventType    EventType `json:"eventType"`
	InvitationID string    `json:"invitationId"`
	BoxID        string    `json:"boxId"`
	InvitedName  string    `json:"invitedName"`
	UserID       string    `json:"userId"`
	InviteCode   string    `json:"inviteCode"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewInvitationEvent(eventID string, t EventType, inv *Invitation, userID string, now time.Time) InvitationEvent {
	return InvitationEvent{
		EventID:      eventID,
		EventType:    t,
		InvitationID: inv.ID,
		BoxID:        inv.BoxID,
		InvitedName:  inv.InvitedName,
		UserID:       userID,
		InviteCode:   inv.InviteCode,
		OccurredAt:   now.UTC(),
	}
}

// Validate rejects events that can never be applied. The returned error
// wraps ErrBadRequest so consumers can drop the message instead of retrying.
func (e InvitationEvent) Validate() error {
	if e.BoxID == "" {
		return fmt.Errorf("%w: event %s has no boxId", ErrBadRequest, e.EventID)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: event %s has no userId", ErrBadRequest, e.EventID)
	}
	if _, ok := e.EventType.GuardianStatus(); !ok {
		return fmt.Errorf("%w: unknown event type %q", ErrBadRequest, e.EventType)
	}
	return nil
}
