package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can discover a workspace
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// InvitePolicy controls who may create invitations
type InvitePolicy string

const (
	InvitePolicyOwner  InvitePolicy = "owner"
	InvitePolicyAdmin  InvitePolicy = "admin"
	InvitePolicyAnyone InvitePolicy = "anyone"
)

// Permits reports whether a role satisfies the policy tier. The
// collaboration.invite grant is checked separately.
func (p InvitePolicy) Permits(r Role) bool {
	switch p {
	case InvitePolicyOwner:
		return r == RoleOwner
	case InvitePolicyAdmin:
		return r.Rank() >= RoleAdmin.Rank()
	case InvitePolicyAnyone:
		return r.Valid()
	}
	return false
}

// WorkspaceSettings holds the mutable workspace policy
type WorkspaceSettings struct {
	WorkspaceID      uuid.UUID    `json:"workspace_id"`
	Visibility       Visibility   `json:"visibility"`
	InvitePolicy     InvitePolicy `json:"invite_policy"`
	DefaultRole      Role         `json:"default_role"`
	AllowGuestAccess bool         `json:"allow_guest_access"`
	RequireApproval  bool         `json:"require_approval"`
	EnableComments   bool         `json:"enable_comments"`
	EnableVersioning bool         `json:"enable_versioning"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DefaultSettings returns the settings a new workspace starts with
func DefaultSettings(workspaceID uuid.UUID, now time.Time) WorkspaceSettings {
	return WorkspaceSettings{
		WorkspaceID:      workspaceID,
		Visibility:       VisibilityPrivate,
		InvitePolicy:     InvitePolicyAdmin,
		DefaultRole:      RoleViewer,
		AllowGuestAccess: false,
		RequireApproval:  false,
		EnableComments:   true,
		EnableVersioning: true,
		UpdatedAt:        now,
	}
}

// SettingsUpdate represents a partial settings update
type SettingsUpdate struct {
	Visibility       *Visibility   `json:"visibility,omitempty" validate:"omitempty,oneof=private team public"`
	InvitePolicy     *InvitePolicy `json:"invite_policy,omitempty" validate:"omitempty,oneof=owner admin anyone"`
	DefaultRole      *Role         `json:"default_role,omitempty" validate:"omitempty,oneof=viewer editor"`
	AllowGuestAccess *bool         `json:"allow_guest_access,omitempty"`
	RequireApproval  *bool         `json:"require_approval,omitempty"`
	EnableComments   *bool         `json:"enable_comments,omitempty"`
	EnableVersioning *bool         `json:"enable_versioning,omitempty"`
}

// Apply writes the set fields onto s and returns the names of changed fields
func (u SettingsUpdate) Apply(s *WorkspaceSettings) []string {
	var changed []string
	if u.Visibility != nil && *u.Visibility != s.Visibility {
		s.Visibility = *u.Visibility
		changed = append(changed, "visibility")
	}
	if u.InvitePolicy != nil && *u.InvitePolicy != s.InvitePolicy {
		s.InvitePolicy = *u.InvitePolicy
		changed = append(changed, "invite_policy")
	}
	if u.DefaultRole != nil && *u.DefaultRole != s.DefaultRole {
		s.DefaultRole = *u.DefaultRole
		changed = append(changed, "default_role")
	}
	if u.AllowGuestAccess != nil && *u.AllowGuestAccess != s.AllowGuestAccess {
		s.AllowGuestAccess = *u.AllowGuestAccess
		changed = append(changed, "allow_guest_access")
	}
	if u.RequireApproval != nil && *u.RequireApproval != s.RequireApproval {
		s.RequireApproval = *u.RequireApproval
		changed = append(changed, "require_approval")
	}
	if u.EnableComments != nil && *u.EnableComments != s.EnableComments {
		s.EnableComments = *u.EnableComments
		changed = append(changed, "enable_comments")
	}
	if u.EnableVersioning != nil && *u.EnableVersioning != s.EnableVersioning {
		s.EnableVersioning = *u.EnableVersioning
		changed = append(changed, "enable_versioning")
	}
	return changed
}
