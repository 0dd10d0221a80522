package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemberStatus is the lifecycle state of a membership
type MemberStatus string

const (
	MemberStatusActive          MemberStatus = "active"
	MemberStatusInvited         MemberStatus = "invited"
	MemberStatusInactive        MemberStatus = "inactive"
	MemberStatusPendingApproval MemberStatus = "pendingApproval"
)

// Valid reports whether s is a known member status
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusActive, MemberStatusInvited, MemberStatusInactive, MemberStatusPendingApproval:
		return true
	}
	return false
}

// Member is an identity with standing in a workspace
type Member struct {
	ID           uuid.UUID    `json:"id"`
	WorkspaceID  uuid.UUID    `json:"workspace_id"`
	UserID       uuid.UUID    `json:"user_id"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name"`
	Role         Role         `json:"role"`
	Status       MemberStatus `json:"status"`
	JoinedAt     time.Time    `json:"joined_at"`
	LastActiveAt time.Time    `json:"last_active_at"`
	InvitedBy    *uuid.UUID   `json:"invited_by,omitempty"`
}

// IsOwner reports whether the member holds the owner role
func (m *Member) IsOwner() bool {
	return m.Role == RoleOwner
}

// CanAct reports whether the member's status lets it perform operations
func (m *Member) CanAct() bool {
	return m.Status == MemberStatusActive
}

// MemberCreate represents a direct member addition by an administrator
type MemberCreate struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Email       string    `json:"email" validate:"required,email,max=255"`
	DisplayName string    `json:"display_name" validate:"max=255"`
	Role        Role      `json:"role" validate:"required,oneof=admin editor viewer"`
}

// RoleUpdate represents a role change request
type RoleUpdate struct {
	Role Role `json:"role" validate:"required"`
}

// StatusUpdate represents a member status change request
type StatusUpdate struct {
	Status MemberStatus `json:"status" validate:"required,oneof=active inactive"`
}

// MemberFilter narrows member listings. All set fields must match.
type MemberFilter struct {
	Role   Role
	Status MemberStatus
	Search string
}

// Matches applies the filter to a member. Search is a case-insensitive
// substring match against display name or email.
func (f MemberFilter) Matches(m Member) bool {
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(m.DisplayName), q) &&
			!strings.Contains(strings.ToLower(m.Email), q) {
			return false
		}
	}
	return true
}

// NormalizeEmail lowercases and trims an email for comparisons and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
