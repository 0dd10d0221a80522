package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the state of an invitation. Every status except
// pending is terminal.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

// Valid reports whether s is a known invitation status
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationRejected, InvitationExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s InvitationStatus) Terminal() bool {
	return s != InvitationPending
}

// Invitation is a time-bounded offer of membership at a given role
type Invitation struct {
	ID           uuid.UUID        `json:"id"`
	WorkspaceID  uuid.UUID        `json:"workspace_id"`
	Email        string           `json:"email"`
	Role         Role             `json:"role"`
	InviterID    uuid.UUID        `json:"inviter_id"`
	Status       InvitationStatus `json:"status"`
	Message      string           `json:"message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	RespondedAt  *time.Time       `json:"responded_at,omitempty"`
	ReplacesID   *uuid.UUID       `json:"replaces_id,omitempty"`
	ReplacedByID *uuid.UUID       `json:"replaced_by_id,omitempty"`
}

// IsExpiredAt reports whether the invitation's expiry has been reached at now
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// EffectiveStatus reports pending invitations past their expiry as expired
// without mutating the record.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpiredAt(now) {
		return InvitationExpired
	}
	return i.Status
}

// IsLive reports whether the invitation can still be accepted at now
func (i *Invitation) IsLive(now time.Time) bool {
	return i.EffectiveStatus(now) == InvitationPending
}

// InvitationCreate represents invitation creation data. Role is optional and
// falls back to the workspace default role.
type InvitationCreate struct {
	Email   string `json:"email" validate:"required,email,max=255"`
	Role    Role   `json:"role,omitempty"`
	Message string `json:"message,omitempty" validate:"max=1000"`
}

// InvitationFilter narrows invitation listings. All set fields must match.
type InvitationFilter struct {
	Role   Role
	Status InvitationStatus
	Search string
}

// Matches applies the filter using the effective status at now
func (f InvitationFilter) Matches(inv Invitation, now time.Time) bool {
	if f.Role != "" && inv.Role != f.Role {
		return false
	}
	if f.Status != "" && inv.EffectiveStatus(now) != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(inv.Email, strings.ToLower(f.Search)) {
		return false
	}
	return true
}
