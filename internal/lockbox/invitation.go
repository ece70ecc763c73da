package lockbox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	InvitationTTL  = 48 * time.Hour
	InviteCodeLen  = 8
	inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Invitation struct {
	ID           string    `json:"id"`
	InviteCode   string    `json:"inviteCode"`
	InvitedName  string    `json:"invitedName"`
	BoxID        string    `json:"boxId"`
	CreatorID    string    `json:"creatorId"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Opened       bool      `json:"opened"`
	LinkedUserID *string   `json:"linkedUserId,omitempty"`

	Version int64 `json:"-"`
}

func NewInvitation(id, creatorID, boxID, invitedName, code string, now time.Time) (*Invitation, error) {
	invitedName = strings.TrimSpace(invitedName)
	if invitedName == "" {
		return nil, fmt.Errorf("%w: invitedName is required", ErrBadRequest)
	}
	if strings.TrimSpace(boxID) == "" {
		return nil, fmt.Errorf("%w: boxId is required", ErrBadRequest)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator id is required", ErrBadRequest)
	}
	now = now.UTC()
	return &Invitation{
		ID:          id,
		InviteCode:  code,
		InvitedName: invitedName,
		BoxID:       boxID,
		CreatorID:   creatorID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(InvitationTTL),
	}, nil
}

// Expired reports whether now is strictly past the expiry instant.
func (inv *Invitation) Expired(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}

func (inv *Invitation) Redeemed() bool {
	return inv.LinkedUserID != nil
}

// Redeem links the invitation to userID. A repeat by the same user succeeds
// and reports linked=false.
func (inv *Invitation) Redeem(userID string, now time.Time) (linked bool, err error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", ErrBadRequest)
	}
	if inv.Expired(now) {
		return false, fmt.Errorf("%w: invitation %s expired at %s", ErrExpired, inv.ID, inv.ExpiresAt.Format(time.RFC3339))
	}
	if inv.LinkedUserID != nil {
		if *inv.LinkedUserID != userID {
			return false, fmt.Errorf("%w: invitation %s is already linked to another user", ErrConflict, inv.ID)
		}
		return false, nil
	}
	inv.LinkedUserID = &userID
	inv.Opened = true
	return true, nil
}

// Refresh issues a new code and expiry for an invitation nobody redeemed yet.
func (inv *Invitation) Refresh(requesterID, code string, now time.Time) error {
	if requesterID != inv.CreatorID {
		return fmt.Errorf("%w: only the creator can refresh invitation %s", ErrUnauthorized, inv.ID)
	}
	if inv.Redeemed() {
		return fmt.Errorf("%w: invitation %s has already been redeemed", ErrConflict, inv.ID)
	}
	inv.InviteCode = code
	inv.ExpiresAt = now.UTC().Add(InvitationTTL)
	return nil
}

// NewInviteCode returns InviteCodeLen uppercase letters drawn from crypto/rand.
func NewInviteCode() (string, error) {
	var sb strings.Builder
	sb.Grow(InviteCodeLen)
	alphabetLen := big.NewInt(int64(len(inviteAlphabet)))
	for range InviteCodeLen {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generating invite code: %w", err)
		}
		sb.WriteByte(inviteAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeInviteCode upper-cases and trims user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidInviteCode(code string) bool {
	if len(code) != InviteCodeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
