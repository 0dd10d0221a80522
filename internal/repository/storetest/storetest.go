// Package storetest holds the behavioural suite every domain.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
)

// Factory returns a fresh, empty store
type Factory func(t *testing.T) domain.Store

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Run executes the suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("WorkspaceLifecycle", func(t *testing.T) { testWorkspaceLifecycle(t, newStore(t)) })
	t.Run("RollbackLeavesNoTrace", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Members", func(t *testing.T) { testMembers(t, newStore(t)) })
	t.Run("Invitations", func(t *testing.T) { testInvitations(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("ActivitySequence", func(t *testing.T) { testActivity(t, newStore(t)) })
	t.Run("ConcurrentAppends", func(t *testing.T) { testConcurrentAppends(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func seedWorkspace(t *testing.T, store domain.Store) (*domain.Workspace, *domain.Member) {
	t.Helper()
	ctx := context.Background()

	ws := &domain.Workspace{ID: uuid.New(), Name: "Acme", CreatedAt: base, UpdatedAt: base}
	owner := &domain.Member{
		ID:           uuid.New(),
		WorkspaceID:  ws.ID,
		UserID:       uuid.New(),
		Email:        "owner@acme.test",
		DisplayName:  "Owner",
		Role:         domain.RoleOwner,
		Status:       domain.MemberStatusActive,
		JoinedAt:     base,
		LastActiveAt: base,
	}
	err := store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		if err := tx.Workspaces().Create(ctx, ws); err != nil {
			return err
		}
		return tx.Members().Create(ctx, owner)
	})
	require.NoError(t, err)
	return ws, owner
}

func testWorkspaceLifecycle(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, owner := seedWorkspace(t, store)

	got, err := store.Workspaces().GetByID(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ws.Name, got.Name)
	assert.True(t, ws.CreatedAt.Equal(got.CreatedAt))

	missing, err := store.Workspaces().GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := store.Workspaces().ListByUserID(ctx, owner.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ws.ID, list[0].ID)

	list, err = store.Workspaces().ListByUserID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.Ping(ctx))
}

func testRollback(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, _ := seedWorkspace(t, store)
	boom := errors.New("boom")

	err := store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		m := &domain.Member{
			ID: uuid.New(), WorkspaceID: ws.ID, UserID: uuid.New(), Email: "x@acme.test",
			Role: domain.RoleViewer, Status: domain.MemberStatusActive, JoinedAt: base, LastActiveAt: base,
		}
		if err := tx.Members().Create(ctx, m); err != nil {
			return err
		}
		rec := &domain.ActivityRecord{ID: uuid.New(), WorkspaceID: ws.ID, Action: "member.added", TargetType: "member", TargetID: m.ID.String(), CreatedAt: base}
		if err := tx.Activity().Append(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	members, err := store.Members().ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	last, err := store.Activity().Last(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, last)

	other := uuid.New()
	err = store.WithinWorkspace(ctx, other, func(ctx context.Context, tx domain.Repositories) error {
		if err := tx.Workspaces().Create(ctx, &domain.Workspace{ID: other, Name: "gone", CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Workspaces().GetByID(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testMembers(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, owner := seedWorkspace(t, store)
	invitedBy := owner.ID

	editor := &domain.Member{
		ID: uuid.New(), WorkspaceID: ws.ID, UserID: uuid.New(), Email: "ed@acme.test", DisplayName: "Ed",
		Role: domain.RoleEditor, Status: domain.MemberStatusInvited,
		JoinedAt: base.Add(time.Minute), LastActiveAt: base.Add(time.Minute), InvitedBy: &invitedBy,
	}
	err := store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Members().Create(ctx, editor)
	})
	require.NoError(t, err)

	dup := *editor
	dup.ID = uuid.New()
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Members().Create(ctx, &dup)
	})
	assert.Error(t, err)

	byEmail, err := store.Members().GetByEmail(ctx, ws.ID, "ED@acme.test")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, editor.ID, byEmail.ID)
	require.NotNil(t, byEmail.InvitedBy)
	assert.Equal(t, owner.ID, *byEmail.InvitedBy)

	byUser, err := store.Members().GetByUserID(ctx, ws.ID, editor.UserID)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, domain.MemberStatusInvited, byUser.Status)

	byUser.Role = domain.RoleAdmin
	byUser.Status = domain.MemberStatusActive
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Members().Update(ctx, byUser)
	})
	require.NoError(t, err)

	got, err := store.Members().GetByID(ctx, ws.ID, editor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, domain.MemberStatusActive, got.Status)

	list, err := store.Members().ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, owner.ID, list[0].ID)
	assert.Equal(t, editor.ID, list[1].ID)

	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Members().Delete(ctx, ws.ID, editor.ID)
	})
	require.NoError(t, err)

	gone, err := store.Members().GetByID(ctx, ws.ID, editor.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func testInvitations(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, owner := seedWorkspace(t, store)

	inv := &domain.Invitation{
		ID: uuid.New(), WorkspaceID: ws.ID, Email: "new@acme.test", Role: domain.RoleEditor,
		InviterID: owner.ID, Status: domain.InvitationPending, Message: "hi",
		CreatedAt: base, ExpiresAt: base.Add(time.Hour),
	}
	err := store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Invitations().Create(ctx, inv)
	})
	require.NoError(t, err)

	second := *inv
	second.ID = uuid.New()
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Invitations().Create(ctx, &second)
	})
	assert.Error(t, err, "two pending invitations for one email")

	pending, err := store.Invitations().GetPendingByEmail(ctx, ws.ID, "NEW@acme.test")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, inv.ID, pending.ID)
	assert.Equal(t, "hi", pending.Message)
	assert.Nil(t, pending.RespondedAt)

	stale, err := store.Invitations().ListStalePending(ctx, base.Add(30*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	stale, err = store.Invitations().ListStalePending(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, inv.ID, stale[0].ID)

	responded := base.Add(10 * time.Minute)
	replacement := uuid.New()
	inv.Status = domain.InvitationExpired
	inv.RespondedAt = &responded
	inv.ReplacedByID = &replacement
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Invitations().Update(ctx, inv)
	})
	require.NoError(t, err)

	got, err := store.Invitations().GetByID(ctx, ws.ID, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.InvitationExpired, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.True(t, responded.Equal(*got.RespondedAt))
	require.NotNil(t, got.ReplacedByID)
	assert.Equal(t, replacement, *got.ReplacedByID)

	pending, err = store.Invitations().GetPendingByEmail(ctx, ws.ID, inv.Email)
	require.NoError(t, err)
	assert.Nil(t, pending)

	// A terminal invitation frees the email for a new pending one.
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Invitations().Create(ctx, &second)
	})
	require.NoError(t, err)

	all, err := store.Invitations().ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := store.Invitations().GetByID(ctx, uuid.New(), inv.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testSettings(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, _ := seedWorkspace(t, store)

	none, err := store.Settings().Get(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	settings := domain.DefaultSettings(ws.ID, base)
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Settings().Save(ctx, &settings)
	})
	require.NoError(t, err)

	settings.RequireApproval = true
	settings.InvitePolicy = domain.InvitePolicyAnyone
	err = store.WithinWorkspace(ctx, ws.ID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Settings().Save(ctx, &settings)
	})
	require.NoError(t, err)

	got, err := store.Settings().Get(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.RequireApproval)
	assert.Equal(t, domain.InvitePolicyAnyone, got.InvitePolicy)
	assert.Equal(t, domain.RoleViewer, got.DefaultRole)
	assert.True(t, got.EnableComments)
}

func appendRecord(ctx context.Context, store domain.Store, workspaceID uuid.UUID, actor *uuid.UUID, action string) (domain.ActivityRecord, error) {
	rec := domain.ActivityRecord{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		ActorID:     actor,
		Action:      action,
		TargetType:  domain.TargetWorkspace,
		TargetID:    workspaceID.String(),
		Details:     map[string]any{"action": action},
		CreatedAt:   base,
	}
	err := store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Activity().Append(ctx, &rec)
	})
	return rec, err
}

func testActivity(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, owner := seedWorkspace(t, store)

	for i, action := range []string{"a", "b", "c", "d"} {
		var actor *uuid.UUID
		if i%2 == 0 {
			actor = &owner.UserID
		}
		rec, err := appendRecord(ctx, store, ws.ID, actor, action)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), rec.Seq)
	}

	last, err := store.Activity().Last(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(4), last.Seq)
	assert.Nil(t, last.ActorID)

	page, err := store.Activity().ListAfter(ctx, ws.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Action)
	assert.Equal(t, "c", page[1].Action)
	require.NotNil(t, page[1].ActorID)
	assert.Equal(t, owner.UserID, *page[1].ActorID)
	assert.Equal(t, "c", page[1].Details["action"])

	page, err = store.Activity().ListAfter(ctx, ws.ID, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	// Sequences are per workspace.
	other, _ := seedWorkspace(t, store)
	rec, err := appendRecord(ctx, store, other.ID, nil, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Seq)
}

func testConcurrentAppends(t *testing.T, store domain.Store) {
	ctx := context.Background()
	ws, _ := seedWorkspace(t, store)

	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := appendRecord(ctx, store, ws.ID, nil, "concurrent"); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := store.Activity().ListAfter(ctx, ws.ID, 0, writers*perWriter+10)
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq)
	}
}

func testUsers(t *testing.T, store domain.Store) {
	ctx := context.Background()
	users := store.Users()

	user := &domain.User{
		ID: uuid.New(), Email: "Person@Acme.test", DisplayName: "Person",
		PasswordHash: "hash", CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, users.Create(ctx, user))

	exists, err := users.EmailExists(ctx, "person@acme.test")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := users.GetByEmail(ctx, "PERSON@acme.test")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "person@acme.test", got.Email)

	byID, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Person", byID.DisplayName)

	missing, err := users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := *user
	dup.ID = uuid.New()
	assert.Error(t, users.Create(ctx, &dup))
}
