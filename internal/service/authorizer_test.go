package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
)

func TestAuthorizer_Matrix(t *testing.T) {
	a := NewAuthorizer()

	tests := []struct {
		role    domain.Role
		action  domain.Action
		allowed bool
	}{
		{domain.RoleOwner, domain.ActionAdminSystemSettings, true},
		{domain.RoleAdmin, domain.ActionAdminSystemSettings, false},
		{domain.RoleAdmin, domain.ActionAdminManageRoles, true},
		{domain.RoleEditor, domain.ActionWorkflowsDelete, false},
		{domain.RoleEditor, domain.ActionCollaborationInvite, true},
		{domain.RoleEditor, domain.ActionCollaborationManage, false},
		{domain.RoleViewer, domain.ActionWorkflowsRead, true},
		{domain.RoleViewer, domain.ActionWorkflowsExecute, false},
		{domain.RoleViewer, domain.ActionCollaborationExport, false},
		{domain.Role("guest"), domain.ActionWorkflowsRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.action.String(), func(t *testing.T) {
			member := &domain.Member{Role: tt.role, Status: domain.MemberStatusActive}
			assert.Equal(t, tt.allowed, a.Authorize(member, tt.action))
		})
	}

	assert.False(t, a.Authorize(nil, domain.ActionWorkflowsRead))
	err := a.Require(&domain.Member{Role: domain.RoleViewer}, domain.ActionAdminManageUsers)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestAuthorizationService_Can(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	editor, editorMember := f.join(t, "editor", domain.RoleEditor)

	ok, err := f.authorization.Can(ctx, f.ws.ID, editor.UserID, domain.ActionWorkflowsCreate)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.authorization.Can(ctx, f.ws.ID, editor.UserID, domain.ActionAdminManageUsers)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.authorization.Can(ctx, f.ws.ID, uuid.New(), domain.ActionWorkflowsRead)
	require.NoError(t, err)
	assert.False(t, ok, "non-members are denied")

	_, err = f.authorization.Can(ctx, uuid.New(), editor.UserID, domain.ActionWorkflowsRead)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Role changes take effect on the next check.
	_, err = f.members.UpdateRole(ctx, f.ws.ID, f.owner.UserID, editorMember.ID, domain.RoleViewer)
	require.NoError(t, err)
	ok, err = f.authorization.Can(ctx, f.ws.ID, editor.UserID, domain.ActionWorkflowsCreate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizationService_PermissionsOfInactiveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, adminMember := f.join(t, "admin", domain.RoleAdmin)

	perms, err := f.authorization.Permissions(ctx, f.ws.ID, admin.UserID)
	require.NoError(t, err)
	assert.True(t, perms.Permissions.Admin.ManageUsers)

	_, err = f.members.SetMemberStatus(ctx, f.ws.ID, f.owner.UserID, adminMember.ID, domain.MemberStatusInactive)
	require.NoError(t, err)

	perms, err = f.authorization.Permissions(ctx, f.ws.ID, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusInactive, perms.Member.Status)
	assert.Equal(t, domain.PermissionMatrix{}, perms.Permissions)

	ok, err := f.authorization.Can(ctx, f.ws.ID, admin.UserID, domain.ActionWorkflowsRead)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.authorization.Permissions(ctx, f.ws.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}
