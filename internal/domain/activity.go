package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activity action tags
const (
	ActivityWorkspaceCreated    = "workspace.created"
	ActivityMemberAdded         = "member.added"
	ActivityMemberJoined        = "member.joined"
	ActivityMemberRoleChanged   = "member.role_changed"
	ActivityMemberRemoved       = "member.removed"
	ActivityMemberLeft          = "member.left"
	ActivityMemberApproved      = "member.approved"
	ActivityMemberStatusChanged = "member.status_changed"
	ActivityOwnershipTransfer   = "workspace.ownership_transferred"
	ActivityInvitationCreated   = "invitation.created"
	ActivityInvitationAccepted  = "invitation.accepted"
	ActivityInvitationRejected  = "invitation.rejected"
	ActivityInvitationRevoked   = "invitation.revoked"
	ActivityInvitationResent    = "invitation.resent"
	ActivityInvitationExpired   = "invitation.expired"
	ActivitySettingsUpdated     = "settings.updated"
)

// reservedActionPrefixes are the namespaces written by the services
// themselves. Externally reported activity may not use them.
var reservedActionPrefixes = []string{"workspace.", "member.", "invitation.", "settings."}

// IsReservedAction reports whether action belongs to a service-owned namespace
func IsReservedAction(action string) bool {
	action = strings.ToLower(strings.TrimSpace(action))
	for _, prefix := range reservedActionPrefixes {
		if strings.HasPrefix(action, prefix) {
			return true
		}
	}
	return false
}

// Target types
const (
	TargetWorkspace  = "workspace"
	TargetMember     = "member"
	TargetInvitation = "invitation"
	TargetSettings   = "settings"
)

// Target identifies what an activity acted on
type Target struct {
	Type string `json:"type" validate:"required,max=64"`
	ID   string `json:"id" validate:"max=255"`
}

// ActivityRecord is an immutable audit entry describing one completed action.
// ActorID is nil for system actions such as expiry.
type ActivityRecord struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	Seq         int64          `json:"seq"`
	ActorID     *uuid.UUID     `json:"actor_id,omitempty"`
	Action      string         `json:"action"`
	TargetType  string         `json:"target_type"`
	TargetID    string         `json:"target_id"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ActivityCreate represents an externally reported activity
type ActivityCreate struct {
	Action  string         `json:"action" validate:"required,max=128"`
	Target  Target         `json:"target"`
	Details map[string]any `json:"details,omitempty"`
}

// ActivityPage is one slice of the audit log plus the cursor to resume from
type ActivityPage struct {
	Records    []ActivityRecord `json:"records"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

const cursorPrefix = "v1:"

// EncodeCursor builds an opaque cursor positioned after seq
func EncodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(seq, 10)))
}

// DecodeCursor returns the sequence a cursor points after. The empty cursor
// starts from the beginning.
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	seq, err := strconv.ParseInt(s, 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	return seq, nil
}
