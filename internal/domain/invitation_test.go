package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func wrap(err error) error {
	return fmt.Errorf("%w: context", err)
}

func TestInvitationEffectiveStatus(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := Invitation{Status: InvitationPending, ExpiresAt: expires}

	assert.Equal(t, InvitationPending, inv.EffectiveStatus(expires.Add(-time.Nanosecond)))
	assert.True(t, inv.IsLive(expires.Add(-time.Nanosecond)))

	assert.Equal(t, InvitationExpired, inv.EffectiveStatus(expires), "expiry is inclusive")
	assert.False(t, inv.IsLive(expires))

	inv.Status = InvitationAccepted
	assert.Equal(t, InvitationAccepted, inv.EffectiveStatus(expires.Add(time.Hour)))
	assert.True(t, inv.Status.Terminal())
	assert.False(t, InvitationPending.Terminal())
}

func TestInvitationFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stale := Invitation{Email: "old@acme.test", Role: RoleViewer, Status: InvitationPending, ExpiresAt: now.Add(-time.Hour)}
	live := Invitation{Email: "new@acme.test", Role: RoleEditor, Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name   string
		filter InvitationFilter
		inv    Invitation
		want   bool
	}{
		{"empty matches", InvitationFilter{}, stale, true},
		{"status uses effective status", InvitationFilter{Status: InvitationExpired}, stale, true},
		{"stale is not pending", InvitationFilter{Status: InvitationPending}, stale, false},
		{"live is pending", InvitationFilter{Status: InvitationPending}, live, true},
		{"role", InvitationFilter{Role: RoleEditor}, stale, false},
		{"search is case insensitive", InvitationFilter{Search: "NEW@"}, live, true},
		{"search miss", InvitationFilter{Search: "zed"}, live, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.inv, now))
		})
	}
}
