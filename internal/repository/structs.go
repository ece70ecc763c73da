package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

var (
	ErrObjectNotFound  = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicate       = errors.New("duplicate key")
)

// BoxRow stores the aggregate as a JSON document next to the columns the
// store indexes on.
type BoxRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Data      []byte    `db:"data"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewBoxRow(b *lockbox.Box) (*BoxRow, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding box %s: %w", b.ID, err)
	}
	return &BoxRow{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Data:      data,
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}, nil
}

func (r *BoxRow) Box() (*lockbox.Box, error) {
	var b lockbox.Box
	if err := json.Unmarshal(r.Data, &b); err != nil {
		return nil, fmt.Errorf("decoding box %s: %w", r.ID, err)
	}
	b.Version = r.Version
	return &b, nil
}

type InvitationRow struct {
	ID           string    `db:"id"`
	InviteCode   string    `db:"invite_code"`
	InvitedName  string    `db:"invited_name"`
	BoxID        string    `db:"box_id"`
	CreatorID    string    `db:"creator_id"`
	CreatedAt    time.Time `db:"created_at"`
	ExpiresAt    time.Time `db:"expires_at"`
	Opened       bool      `db:"opened"`
	LinkedUserID *string   `db:"linked_user_id"`
	Version      int64     `db:"version"`
}

func NewInvitationRow(inv *lockbox.Invitation) *InvitationRow {
	return &InvitationRow{
		ID:           inv.ID,
		InviteCode:   inv.InviteCode,
		InvitedName:  inv.InvitedName,
		BoxID:        inv.BoxID,
		CreatorID:    inv.CreatorID,
		CreatedAt:    inv.CreatedAt.UTC(),
		ExpiresAt:    inv.ExpiresAt.UTC(),
		Opened:       inv.Opened,
		LinkedUserID: inv.LinkedUserID,
		Version:      inv.Version,
	}
}

func (r *InvitationRow) Invitation() *lockbox.Invitation {
	return &lockbox.Invitation{
		ID:           r.ID,
		InviteCode:   r.InviteCode,
		InvitedName:  r.InvitedName,
		BoxID:        r.BoxID,
		CreatorID:    r.CreatorID,
		CreatedAt:    r.CreatedAt.UTC(),
		ExpiresAt:    r.ExpiresAt.UTC(),
		Opened:       r.Opened,
		LinkedUserID: r.LinkedUserID,
		Version:      r.Version,
	}
}

// Cursor is a position in a creator's invitation list, ordered by
// (createdAt, id).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func CursorOf(inv *lockbox.Invitation) Cursor {
	return Cursor{CreatedAt: inv.CreatedAt, ID: inv.ID}
}

// After reports whether inv sorts strictly after the cursor.
func (c Cursor) After(inv *lockbox.Invitation) bool {
	if inv.CreatedAt.Equal(c.CreatedAt) {
		return inv.ID > c.ID
	}
	return inv.CreatedAt.After(c.CreatedAt)
}

// Encode renders the cursor as an opaque URL-safe page token.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed page token: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, errors.New("malformed page token")
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed page token: %w", err)
	}
	return &Cursor{CreatedAt: at.UTC(), ID: id}, nil
}
