package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
)

func TestMembershipService_AddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerMember(t)

	newcomer := newIdentity("newcomer")
	member, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
		UserID: newcomer.UserID, Email: "NewComer@acme.test", DisplayName: "New", Role: domain.RoleEditor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusInvited, member.Status)
	assert.Equal(t, "newcomer@acme.test", member.Email)
	require.NotNil(t, member.InvitedBy)
	assert.Equal(t, owner.ID, *member.InvitedBy)
	assert.Equal(t, domain.ActivityMemberAdded, f.lastRecord(t).Action)

	t.Run("duplicate identity", func(t *testing.T) {
		_, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
			UserID: newcomer.UserID, Email: "other@acme.test", Role: domain.RoleViewer,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateMember)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
			UserID: uuid.New(), Email: "newcomer@acme.test", Role: domain.RoleViewer,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateMember)
	})

	t.Run("owner role", func(t *testing.T) {
		_, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
			UserID: uuid.New(), Email: "boss@acme.test", Role: domain.RoleOwner,
		})
		assert.ErrorIs(t, err, domain.ErrOwnerImmutable)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
			UserID: uuid.New(), Email: "x@acme.test", Role: "superuser",
		})
		assert.ErrorIs(t, err, domain.ErrUnknownRole)
	})

	t.Run("editor lacks manageUsers", func(t *testing.T) {
		editor, _ := f.join(t, "editor", domain.RoleEditor)
		_, err := f.members.AddMember(ctx, f.ws.ID, editor.UserID, domain.MemberCreate{
			UserID: uuid.New(), Email: "y@acme.test", Role: domain.RoleViewer,
		})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

func TestMembershipService_TouchActivatesAddedMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newcomer := newIdentity("newcomer")
	member, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
		UserID: newcomer.UserID, Email: newcomer.Email, Role: domain.RoleViewer,
	})
	require.NoError(t, err)

	_, err = f.members.ListMembers(ctx, f.ws.ID, newcomer.UserID, domain.MemberFilter{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied, "invited members cannot act yet")

	f.clock.Advance(time.Minute)
	require.NoError(t, f.members.Touch(ctx, f.ws.ID, newcomer.UserID))

	got, err := f.store.Members().GetByID(ctx, f.ws.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusActive, got.Status)
	assert.True(t, got.LastActiveAt.After(member.LastActiveAt))
	assert.Equal(t, domain.ActivityMemberJoined, f.lastRecord(t).Action)

	before := len(f.actions(t))
	require.NoError(t, f.members.Touch(ctx, f.ws.ID, newcomer.UserID))
	assert.Len(t, f.actions(t), before, "later touches are not audited")

	assert.ErrorIs(t, f.members.Touch(ctx, f.ws.ID, uuid.New()), domain.ErrNotFound)
}

func TestMembershipService_UpdateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerMember(t)
	admin, _ := f.join(t, "admin", domain.RoleAdmin)
	_, viewer := f.join(t, "viewer", domain.RoleViewer)

	updated, err := f.members.UpdateRole(ctx, f.ws.ID, admin.UserID, viewer.ID, domain.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, updated.Role)

	rec := f.lastRecord(t)
	assert.Equal(t, domain.ActivityMemberRoleChanged, rec.Action)
	assert.Equal(t, "viewer", rec.Details["from"])
	assert.Equal(t, "editor", rec.Details["to"])

	before := len(f.actions(t))
	_, err = f.members.UpdateRole(ctx, f.ws.ID, admin.UserID, viewer.ID, domain.RoleEditor)
	require.NoError(t, err)
	assert.Len(t, f.actions(t), before, "unchanged role is not audited")

	_, err = f.members.UpdateRole(ctx, f.ws.ID, admin.UserID, owner.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrOwnerImmutable)

	_, err = f.members.UpdateRole(ctx, f.ws.ID, f.owner.UserID, viewer.ID, domain.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrOwnerImmutable)

	_, err = f.members.UpdateRole(ctx, f.ws.ID, admin.UserID, viewer.ID, "root")
	assert.ErrorIs(t, err, domain.ErrUnknownRole)

	_, err = f.members.UpdateRole(ctx, f.ws.ID, admin.UserID, uuid.New(), domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	editor, _ := f.join(t, "editor", domain.RoleEditor)
	_, err = f.members.UpdateRole(ctx, f.ws.ID, editor.UserID, viewer.ID, domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestMembershipService_RemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerMember(t)
	admin, adminMember := f.join(t, "admin", domain.RoleAdmin)
	viewer, viewerMember := f.join(t, "viewer", domain.RoleViewer)

	err := f.members.RemoveMember(ctx, f.ws.ID, viewer.UserID, adminMember.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	err = f.members.RemoveMember(ctx, f.ws.ID, admin.UserID, owner.ID)
	assert.ErrorIs(t, err, domain.ErrOwnerImmutable)

	err = f.members.RemoveMember(ctx, f.ws.ID, f.owner.UserID, owner.ID)
	assert.ErrorIs(t, err, domain.ErrOwnerImmutable, "the owner cannot leave")

	require.NoError(t, f.members.RemoveMember(ctx, f.ws.ID, viewer.UserID, viewerMember.ID))
	assert.Equal(t, domain.ActivityMemberLeft, f.lastRecord(t).Action)

	require.NoError(t, f.members.RemoveMember(ctx, f.ws.ID, f.owner.UserID, adminMember.ID))
	rec := f.lastRecord(t)
	assert.Equal(t, domain.ActivityMemberRemoved, rec.Action)
	assert.Equal(t, adminMember.ID.String(), rec.TargetID)

	members, err := f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner.ID, members[0].ID)

	_, err = f.members.ListMembers(ctx, f.ws.ID, admin.UserID, domain.MemberFilter{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied, "removed members lose access")
}

func TestMembershipService_SetMemberStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerMember(t)
	admin, adminMember := f.join(t, "admin", domain.RoleAdmin)
	_, editor := f.join(t, "editor", domain.RoleEditor)

	_, err := f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, editor.ID, domain.MemberStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityMemberStatusChanged, f.lastRecord(t).Action)

	before := len(f.actions(t))
	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, editor.ID, domain.MemberStatusInactive)
	require.NoError(t, err)
	assert.Len(t, f.actions(t), before)

	reactivated, err := f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, editor.ID, domain.MemberStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusActive, reactivated.Status)

	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, owner.ID, domain.MemberStatusInactive)
	assert.ErrorIs(t, err, domain.ErrOwnerImmutable)

	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, adminMember.ID, domain.MemberStatusInactive)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, admin.UserID, editor.ID, domain.MemberStatusPendingApproval)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMembershipService_ApprovalFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireApproval := true
	_, err := f.settings.UpdateSettings(ctx, f.ws.ID, f.owner.UserID, domain.SettingsUpdate{RequireApproval: &requireApproval})
	require.NoError(t, err)

	guest, member := f.join(t, "guest", domain.RoleEditor)
	assert.Equal(t, domain.MemberStatusPendingApproval, member.Status)

	ok, err := f.authorization.Can(ctx, f.ws.ID, guest.UserID, domain.ActionWorkflowsRead)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, f.owner.UserID, member.ID, domain.MemberStatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "approval has its own operation")

	approved, err := f.members.ApproveMember(ctx, f.ws.ID, f.owner.UserID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusActive, approved.Status)
	assert.Equal(t, domain.ActivityMemberApproved, f.lastRecord(t).Action)

	_, err = f.members.ApproveMember(ctx, f.ws.ID, f.owner.UserID, member.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ok, err = f.authorization.Can(ctx, f.ws.ID, guest.UserID, domain.ActionWorkflowsRead)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMembershipService_TransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerMember(t)
	admin, adminMember := f.join(t, "admin", domain.RoleAdmin)

	_, err := f.members.TransferOwnership(ctx, f.ws.ID, admin.UserID, owner.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.members.TransferOwnership(ctx, f.ws.ID, f.owner.UserID, owner.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	newOwner, err := f.members.TransferOwnership(ctx, f.ws.ID, f.owner.UserID, adminMember.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, newOwner.Role)
	assert.Equal(t, domain.ActivityOwnershipTransfer, f.lastRecord(t).Action)

	owners, err := f.members.ListMembers(ctx, f.ws.ID, admin.UserID, domain.MemberFilter{Role: domain.RoleOwner})
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, adminMember.ID, owners[0].ID)

	previous, err := f.store.Members().GetByID(ctx, f.ws.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, previous.Role)
}

func TestMembershipService_TransferOwnershipRequiresActiveTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newcomer := newIdentity("newcomer")
	member, err := f.members.AddMember(ctx, f.ws.ID, f.owner.UserID, domain.MemberCreate{
		UserID: newcomer.UserID, Email: newcomer.Email, Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = f.members.TransferOwnership(ctx, f.ws.ID, f.owner.UserID, member.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMembershipService_ListMembersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Advance(time.Second)
	f.join(t, "alice", domain.RoleEditor)
	f.clock.Advance(time.Second)
	f.join(t, "bob", domain.RoleViewer)
	f.clock.Advance(time.Second)
	f.join(t, "carol", domain.RoleEditor)

	all, err := f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"owner", "alice", "bob", "carol"}, displayNames(all))

	editors, err := f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{Role: domain.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, displayNames(editors))

	found, err := f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{Search: "BO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, displayNames(found))

	_, err = f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{Role: "guest"})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)

	_, err = f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{Status: "banned"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func displayNames(members []domain.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.DisplayName)
	}
	return out
}

func TestMembershipService_PromotionGrantsManageUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u2, u2Member := f.join(t, "u2", domain.RoleEditor)
	_, third := f.join(t, "third", domain.RoleViewer)

	err := f.members.RemoveMember(ctx, f.ws.ID, u2.UserID, third.ID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.members.UpdateRole(ctx, f.ws.ID, f.owner.UserID, u2Member.ID, domain.RoleAdmin)
	require.NoError(t, err)

	ok, err := f.authorization.Can(ctx, f.ws.ID, u2.UserID, domain.ActionAdminManageUsers)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.members.RemoveMember(ctx, f.ws.ID, u2.UserID, third.ID))
	assert.Equal(t, domain.ActivityMemberRemoved, f.lastRecord(t).Action)
}

func TestMembershipService_ConcurrentRoleUpdatesAndRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, target := f.join(t, "target", domain.RoleViewer)
	baseline := len(f.actions(t))

	const updates = 12
	roles := []domain.Role{domain.RoleEditor, domain.RoleAdmin, domain.RoleViewer}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		removed   int
	)
	start := make(chan struct{})
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func(role domain.Role) {
			defer wg.Done()
			<-start
			_, err := f.members.UpdateRole(ctx, f.ws.ID, f.owner.UserID, target.ID, role)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrNotFound)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(roles[i%len(roles)])
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		err := f.members.RemoveMember(ctx, f.ws.ID, f.owner.UserID, target.ID)
		assert.NoError(t, err)
		if err == nil {
			mu.Lock()
			removed++
			mu.Unlock()
		}
	}()
	close(start)
	wg.Wait()
	require.Equal(t, 1, removed)

	records, err := f.store.Activity().ListAfter(ctx, f.ws.ID, 0, 1000)
	require.NoError(t, err)
	records = records[baseline:]
	require.NotEmpty(t, records)
	assert.LessOrEqual(t, len(records), succeeded+removed, "no call writes more than one record")

	// Role changes form one chain ending in the removal.
	current := domain.RoleViewer
	for i, rec := range records {
		assert.Equal(t, target.ID.String(), rec.TargetID)
		if i == len(records)-1 {
			assert.Equal(t, domain.ActivityMemberRemoved, rec.Action)
			assert.Equal(t, string(current), rec.Details["role"])
			break
		}
		require.Equal(t, domain.ActivityMemberRoleChanged, rec.Action)
		assert.Equal(t, string(current), rec.Details["from"])
		assert.NotEqual(t, rec.Details["from"], rec.Details["to"])
		current = domain.Role(rec.Details["to"].(string))
	}

	gone, err := f.store.Members().GetByID(ctx, f.ws.ID, target.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	members, err := f.members.ListMembers(ctx, f.ws.ID, f.owner.UserID, domain.MemberFilter{})
	require.NoError(t, err)
	owners := 0
	for _, m := range members {
		if m.IsOwner() {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
}
