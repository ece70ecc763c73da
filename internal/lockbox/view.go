package lockbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// GuardianBoxView is what a guardian sees of a box they protect.
type GuardianBoxView struct {
	ID                      string         `json:"id"`
	Name                    string         `json:"name"`
	Description             string         `json:"description"`
	IsLocked                bool           `json:"isLocked"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
	OwnerID                 string         `json:"ownerId"`
	OwnerName               *string        `json:"ownerName"`
	UnlockInstructions      *string        `json:"unlockInstructions"`
	UnlockRequest           *UnlockRequest `json:"unlockRequest"`
	PendingGuardianApproval bool           `json:"pendingGuardianApproval"`
	GuardiansCount          int            `json:"guardiansCount"`
	IsLeadGuardian          bool           `json:"isLeadGuardian"`
	Documents               []Document     `json:"documents,omitempty"`
}

// GuardianView projects the box for guardianID. It fails Unauthorized when
// the user has no entry or has rejected the box.
func (b *Box) GuardianView(guardianID string) (*GuardianBoxView, error) {
	g, ok := b.ActiveGuardian(guardianID)
	if !ok {
		return nil, fmt.Errorf("%w: not a guardian of box %s", ErrUnauthorized, b.ID)
	}
	v := &GuardianBoxView{
		ID:                      b.ID,
		Name:                    b.Name,
		Description:             b.Description,
		IsLocked:                b.IsLocked,
		CreatedAt:               b.CreatedAt,
		UpdatedAt:               b.UpdatedAt,
		OwnerID:                 b.OwnerID,
		OwnerName:               b.OwnerName,
		UnlockInstructions:      b.UnlockInstructions,
		UnlockRequest:           b.UnlockRequest,
		PendingGuardianApproval: g.Status == GuardianPending,
		GuardiansCount:          len(b.Guardians),
		IsLeadGuardian:          g.LeadGuardian,
	}
	if !b.IsLocked {
		v.Documents = b.Documents
	}
	return v, nil
}

// BoxView is the result of a role-scoped read: exactly one of Owner and
// Guardian is set, matching Role.
type BoxView struct {
	Role     Role
	Owner    *Box
	Guardian *GuardianBoxView
}

func (v BoxView) MarshalJSON() ([]byte, error) {
	switch v.Role {
	case RoleOwner:
		return json.Marshal(v.Owner)
	case RoleGuardian:
		return json.Marshal(v.Guardian)
	}
	return nil, fmt.Errorf("box view has unknown role %q", v.Role)
}
