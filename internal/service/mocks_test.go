package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/repository/memory"
)

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.InvitationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockArchive mocks the ActivityArchive interface
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, records []domain.ActivityRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

var epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

const testTTL = 72 * time.Hour

// fixture wires every service over one in-memory store and a fake clock
type fixture struct {
	store    *memory.Store
	clock    *clockwork.FakeClock
	notifier *MockNotifier
	archive  *MockArchive

	workspaces    *WorkspaceService
	members       *MembershipService
	invitations   *InvitationService
	settings      *SettingsService
	activity      *ActivityService
	authorization *AuthorizationService

	ws    *domain.Workspace
	owner domain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		clock:    clockwork.NewFakeClockAt(epoch),
		notifier: new(MockNotifier),
		archive:  new(MockArchive),
	}
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.archive.On("Archive", mock.Anything, mock.Anything).Return(nil).Maybe()

	authorizer := NewAuthorizer()
	auditor := NewAuditor(f.clock, f.archive)
	f.workspaces = NewWorkspaceService(f.store, auditor, f.clock)
	f.members = NewMembershipService(f.store, authorizer, auditor, f.clock)
	f.invitations = NewInvitationService(f.store, authorizer, auditor, f.notifier, f.clock, testTTL)
	f.settings = NewSettingsService(f.store, authorizer, auditor, f.clock)
	f.activity = NewActivityService(f.store, auditor)
	f.authorization = NewAuthorizationService(f.store, authorizer)

	f.owner = newIdentity("owner")
	ws, err := f.workspaces.Create(context.Background(), f.owner, domain.WorkspaceCreate{Name: "Acme"})
	require.NoError(t, err)
	f.ws = ws
	return f
}

func newIdentity(name string) domain.Identity {
	return domain.Identity{
		UserID:      uuid.New(),
		Email:       name + "@acme.test",
		DisplayName: name,
	}
}

// join invites a new identity at role and accepts on its behalf
func (f *fixture) join(t *testing.T, name string, role domain.Role) (domain.Identity, *domain.Member) {
	t.Helper()
	ctx := context.Background()

	identity := newIdentity(name)
	inv, err := f.invitations.CreateInvitation(ctx, f.ws.ID, f.owner.UserID, domain.InvitationCreate{Email: identity.Email, Role: role})
	require.NoError(t, err)
	member, err := f.invitations.AcceptInvitation(ctx, f.ws.ID, inv.ID, identity)
	require.NoError(t, err)
	return identity, member
}

func (f *fixture) ownerMember(t *testing.T) *domain.Member {
	t.Helper()
	m, err := f.store.Members().GetByUserID(context.Background(), f.ws.ID, f.owner.UserID)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

// actions returns the audit log actions in commit order
func (f *fixture) actions(t *testing.T) []string {
	t.Helper()
	records, err := f.store.Activity().ListAfter(context.Background(), f.ws.ID, 0, 1000)
	require.NoError(t, err)
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Action)
	}
	return out
}

func (f *fixture) lastRecord(t *testing.T) *domain.ActivityRecord {
	t.Helper()
	rec, err := f.store.Activity().Last(context.Background(), f.ws.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}
