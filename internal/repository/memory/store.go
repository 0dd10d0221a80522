package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
)

var errReadOnly = errors.New("writes must run inside WithinWorkspace")

// workspaceState is the full state of one workspace. A published state is
// never modified; transactions work on a clone and swap it in on success.
type workspaceState struct {
	workspace   *domain.Workspace
	members     map[uuid.UUID]domain.Member
	invitations map[uuid.UUID]domain.Invitation
	settings    *domain.WorkspaceSettings
	activity    []domain.ActivityRecord
}

func newWorkspaceState() *workspaceState {
	return &workspaceState{
		members:     make(map[uuid.UUID]domain.Member),
		invitations: make(map[uuid.UUID]domain.Invitation),
	}
}

func (s *workspaceState) clone() *workspaceState {
	if s == nil {
		return newWorkspaceState()
	}
	c := &workspaceState{
		workspace:   s.workspace,
		members:     maps.Clone(s.members),
		invitations: maps.Clone(s.invitations),
		settings:    s.settings,
		// Readers of the published state only look at [0:len], so appends
		// beyond it are invisible to them.
		activity: s.activity,
	}
	return c
}

// Store is an in-process domain.Store
type Store struct {
	mu         sync.RWMutex
	workspaces map[uuid.UUID]*workspaceState
	locks      map[uuid.UUID]*workspaceLock
	users      *UserRepository
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		workspaces: make(map[uuid.UUID]*workspaceState),
		locks:      make(map[uuid.UUID]*workspaceLock),
		users:      NewUserRepository(),
	}
}

// workspaceLock serializes transactions on one workspace. refs counts the
// holder and waiters; the entry is dropped when it reaches zero.
type workspaceLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) acquire(workspaceID uuid.UUID) *workspaceLock {
	s.mu.Lock()
	l, ok := s.locks[workspaceID]
	if !ok {
		l = &workspaceLock{}
		s.locks[workspaceID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Store) release(workspaceID uuid.UUID, l *workspaceLock) {
	l.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, workspaceID)
	}
}

func (s *Store) snapshot(workspaceID uuid.UUID) *workspaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspaces[workspaceID]
}

func (s *Store) snapshots() []*workspaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*workspaceState, 0, len(s.workspaces))
	for _, st := range s.workspaces {
		out = append(out, st)
	}
	return out
}

// WithinWorkspace runs fn against a private copy of the workspace state and
// publishes it only when fn succeeds.
func (s *Store) WithinWorkspace(ctx context.Context, workspaceID uuid.UUID, fn func(ctx context.Context, tx domain.Repositories) error) error {
	lock := s.acquire(workspaceID)
	defer s.release(workspaceID, lock)

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.snapshot(workspaceID).clone()
	tx := &txRepositories{store: s, workspaceID: workspaceID, state: working}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if working.workspace == nil {
		return nil
	}
	s.mu.Lock()
	s.workspaces[workspaceID] = working
	s.mu.Unlock()
	return nil
}

// Workspaces returns a read-only view of committed workspaces
func (s *Store) Workspaces() domain.WorkspaceRepository {
	return &workspaceRepo{store: s, view: s.committedView}
}

// Members returns a read-only view of committed members
func (s *Store) Members() domain.MemberRepository {
	return &memberRepo{view: s.committedView}
}

// Invitations returns a read-only view of committed invitations
func (s *Store) Invitations() domain.InvitationRepository {
	return &invitationRepo{store: s, view: s.committedView}
}

// Settings returns a read-only view of committed settings
func (s *Store) Settings() domain.SettingsRepository {
	return &settingsRepo{view: s.committedView}
}

// Activity returns a read-only view of the committed audit log
func (s *Store) Activity() domain.ActivityRepository {
	return &activityRepo{view: s.committedView}
}

// Users returns the user repository
func (s *Store) Users() domain.UserRepository {
	return s.users
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) committedView(workspaceID uuid.UUID, write bool) (*workspaceState, error) {
	if write {
		return nil, errReadOnly
	}
	return s.snapshot(workspaceID), nil
}

// viewFunc resolves the state a repository call operates on. write is true
// for mutating calls.
type viewFunc func(workspaceID uuid.UUID, write bool) (*workspaceState, error)

type txRepositories struct {
	store       *Store
	workspaceID uuid.UUID
	state       *workspaceState
}

func (t *txRepositories) view(workspaceID uuid.UUID, write bool) (*workspaceState, error) {
	if workspaceID == t.workspaceID {
		return t.state, nil
	}
	if write {
		return nil, errors.New("transaction is bound to another workspace")
	}
	return t.store.snapshot(workspaceID), nil
}

func (t *txRepositories) Workspaces() domain.WorkspaceRepository {
	return &workspaceRepo{store: t.store, view: t.view}
}

func (t *txRepositories) Members() domain.MemberRepository {
	return &memberRepo{view: t.view}
}

func (t *txRepositories) Invitations() domain.InvitationRepository {
	return &invitationRepo{store: t.store, view: t.view}
}

func (t *txRepositories) Settings() domain.SettingsRepository {
	return &settingsRepo{view: t.view}
}

func (t *txRepositories) Activity() domain.ActivityRepository {
	return &activityRepo{view: t.view}
}
