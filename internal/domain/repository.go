package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository lookups return (nil, nil) when the record does not exist.

// WorkspaceRepository defines the interface for workspace storage
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Workspace, error)
}

// MemberRepository defines the interface for member storage
type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, workspaceID, memberID uuid.UUID) (*Member, error)
	GetByUserID(ctx context.Context, workspaceID, userID uuid.UUID) (*Member, error)
	GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*Member, error)
	Update(ctx context.Context, member *Member) error
	Delete(ctx context.Context, workspaceID, memberID uuid.UUID) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]Member, error)
}

// InvitationRepository defines the interface for invitation storage
type InvitationRepository interface {
	Create(ctx context.Context, invitation *Invitation) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*Invitation, error)
	GetPendingByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*Invitation, error)
	Update(ctx context.Context, invitation *Invitation) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]Invitation, error)
	// ListStalePending returns pending invitations whose expiry is at or
	// before now, across all workspaces.
	ListStalePending(ctx context.Context, now time.Time, limit int) ([]Invitation, error)
}

// SettingsRepository defines the interface for workspace settings storage
type SettingsRepository interface {
	Get(ctx context.Context, workspaceID uuid.UUID) (*WorkspaceSettings, error)
	Save(ctx context.Context, settings *WorkspaceSettings) error
}

// ActivityRepository defines the interface for the append-only audit log
type ActivityRepository interface {
	// Append stores the record and assigns its Seq
	Append(ctx context.Context, record *ActivityRecord) error
	Last(ctx context.Context, workspaceID uuid.UUID) (*ActivityRecord, error)
	ListAfter(ctx context.Context, workspaceID uuid.UUID, afterSeq int64, limit int) ([]ActivityRecord, error)
}

// UserRepository defines the interface for identity provider user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Repositories groups the per-workspace repositories
type Repositories interface {
	Workspaces() WorkspaceRepository
	Members() MemberRepository
	Invitations() InvitationRepository
	Settings() SettingsRepository
	Activity() ActivityRepository
}

// Store is the persistence collaborator. Its embedded Repositories read
// committed state; every write goes through WithinWorkspace.
type Store interface {
	Repositories
	Users() UserRepository

	// WithinWorkspace runs fn with exclusive write access to one workspace.
	// Writers on the same workspace are serialized. If fn returns an error
	// none of its writes are kept.
	WithinWorkspace(ctx context.Context, workspaceID uuid.UUID, fn func(ctx context.Context, tx Repositories) error) error

	Ping(ctx context.Context) error
	Close() error
}
