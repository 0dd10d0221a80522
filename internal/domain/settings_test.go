package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInvitePolicyPermits(t *testing.T) {
	tests := []struct {
		policy InvitePolicy
		role   Role
		want   bool
	}{
		{InvitePolicyOwner, RoleOwner, true},
		{InvitePolicyOwner, RoleAdmin, false},
		{InvitePolicyAdmin, RoleAdmin, true},
		{InvitePolicyAdmin, RoleOwner, true},
		{InvitePolicyAdmin, RoleEditor, false},
		{InvitePolicyAnyone, RoleViewer, true},
		{InvitePolicyAnyone, Role("guest"), false},
		{InvitePolicy("nobody"), RoleOwner, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.policy.Permits(tt.role), "%s/%s", tt.policy, tt.role)
	}
}

func TestSettingsUpdateApply(t *testing.T) {
	s := DefaultSettings(uuid.New(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	same := VisibilityPrivate
	assert.Empty(t, SettingsUpdate{Visibility: &same}.Apply(&s))

	team := VisibilityTeam
	anyone := InvitePolicyAnyone
	yes := true
	changed := SettingsUpdate{Visibility: &team, InvitePolicy: &anyone, RequireApproval: &yes}.Apply(&s)

	assert.Equal(t, []string{"visibility", "invite_policy", "require_approval"}, changed)
	assert.Equal(t, VisibilityTeam, s.Visibility)
	assert.Equal(t, InvitePolicyAnyone, s.InvitePolicy)
	assert.True(t, s.RequireApproval)
	assert.True(t, s.EnableComments, "unset fields keep their value")
}
