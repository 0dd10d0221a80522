package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberFilter(t *testing.T) {
	m := Member{Email: "dana@acme.test", DisplayName: "Dana Scully", Role: RoleEditor, Status: MemberStatusActive}

	assert.True(t, MemberFilter{}.Matches(m))
	assert.True(t, MemberFilter{Role: RoleEditor, Status: MemberStatusActive}.Matches(m))
	assert.True(t, MemberFilter{Search: "scully"}.Matches(m))
	assert.True(t, MemberFilter{Search: "ACME"}.Matches(m))
	assert.False(t, MemberFilter{Role: RoleViewer}.Matches(m))
	assert.False(t, MemberFilter{Status: MemberStatusInactive}.Matches(m))
	assert.False(t, MemberFilter{Search: "mulder"}.Matches(m))
}

func TestMemberCanAct(t *testing.T) {
	for status, want := range map[MemberStatus]bool{
		MemberStatusActive:          true,
		MemberStatusInvited:         false,
		MemberStatusInactive:        false,
		MemberStatusPendingApproval: false,
	} {
		m := Member{Status: status}
		assert.Equal(t, want, m.CanAct(), string(status))
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dana@acme.test", NormalizeEmail("  Dana@ACME.test\t"))
}
