// Package lockbox holds the box aggregate, its guardian roster, the unlock
// approval state machine and the invitation value types.
//
// Everything here is pure: functions mutate the aggregate in memory and
// report errors wrapping the kinds in errors.go. Persistence and retries live
// in the boxes, invitations and guardiansync packages.
package lockbox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleGuardian Role = "guardian"
)

type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Box struct {
	ID                 string         `json:"id"`
	OwnerID            string         `json:"ownerId"`
	OwnerName          *string        `json:"ownerName"`
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	IsLocked           bool           `json:"isLocked"`
	UnlockInstructions *string        `json:"unlockInstructions"`
	Documents          []Document     `json:"documents"`
	Guardians          []Guardian     `json:"guardians"`
	UnlockRequest      *UnlockRequest `json:"unlockRequest"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	// AppliedInvitations lists the invitations already merged into the
	// roster. Removing a guardian keeps its invitation here.
	AppliedInvitations []string `json:"appliedInvitations,omitempty"`

	// Version is owned by the record store and never serialized.
	Version int64 `json:"-"`
}

// NewBox returns a locked, empty box.
func NewBox(id, ownerID, name, description string, now time.Time) (*Box, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: box name is required", ErrBadRequest)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrBadRequest)
	}
	now = now.UTC()
	return &Box{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		IsLocked:    true,
		Documents:   []Document{},
		Guardians:   []Guardian{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Touch advances UpdatedAt without ever moving it backwards.
func (b *Box) Touch(now time.Time) {
	now = now.UTC()
	if now.After(b.UpdatedAt) {
		b.UpdatedAt = now
	}
}

// Guardian returns the roster entry for id and its index, or nil and -1.
func (b *Box) Guardian(id string) (*Guardian, int) {
	for i := range b.Guardians {
		if b.Guardians[i].ID == id {
			return &b.Guardians[i], i
		}
	}
	return nil, -1
}

// ActiveGuardian returns the entry for id when its status is not rejected.
func (b *Box) ActiveGuardian(id string) (*Guardian, bool) {
	g, _ := b.Guardian(id)
	if g == nil || g.Status == GuardianRejected {
		return nil, false
	}
	return g, true
}

func (b *Box) Document(id string) (*Document, int) {
	for i := range b.Documents {
		if b.Documents[i].ID == id {
			return &b.Documents[i], i
		}
	}
	return nil, -1
}

// Clone returns a deep copy including the store version.
func (b *Box) Clone() *Box {
	data, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("lockbox: cloning box %s: %v", b.ID, err))
	}
	var c Box
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("lockbox: cloning box %s: %v", b.ID, err))
	}
	c.Version = b.Version
	return &c
}

// OwnerPatch carries the owner-editable fields. A nil pointer leaves the
// field untouched; UnlockInstructions distinguishes absent from an explicit
// null through Set.
type OwnerPatch struct {
	Name               *string        `json:"name"`
	Description        *string        `json:"description"`
	OwnerName          *string        `json:"ownerName"`
	UnlockInstructions OptionalString `json:"unlockInstructions"`
}

type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (p OwnerPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.OwnerName == nil && !p.UnlockInstructions.Set
}

// ApplyOwnerPatch applies p. The lock state is not patchable.
func (b *Box) ApplyOwnerPatch(p OwnerPatch, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: box name cannot be empty", ErrBadRequest)
		}
		b.Name = name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.OwnerName != nil {
		b.OwnerName = p.OwnerName
	}
	if p.UnlockInstructions.Set {
		b.UnlockInstructions = p.UnlockInstructions.Value
	}
	b.Touch(now)
	return nil
}

// UpsertDocument replaces the document with the same id or appends it.
func (b *Box) UpsertDocument(doc Document, now time.Time) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", ErrBadRequest)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: document title is required", ErrBadRequest)
	}
	if existing, i := b.Document(doc.ID); existing != nil {
		doc.CreatedAt = existing.CreatedAt
		b.Documents[i] = doc
	} else {
		doc.CreatedAt = now.UTC()
		b.Documents = append(b.Documents, doc)
	}
	b.Touch(now)
	return nil
}

func (b *Box) DeleteDocument(id string, now time.Time) error {
	_, i := b.Document(id)
	if i < 0 {
		return fmt.Errorf("%w: document %s in box %s", ErrNotFound, id, b.ID)
	}
	b.Documents = append(b.Documents[:i], b.Documents[i+1:]...)
	b.Touch(now)
	return nil
}
