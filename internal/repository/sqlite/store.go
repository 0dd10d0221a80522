package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/workspace-access/internal/domain"
)

// Store is a SQLite-backed domain.Store. SQLite has a single writer, so
// transactions are serialized process-wide rather than per workspace.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewStore creates a new store on top of db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type repositories struct {
	q querier
}

func (r repositories) Workspaces() domain.WorkspaceRepository {
	return &workspaceRepo{q: r.q}
}

func (r repositories) Members() domain.MemberRepository {
	return &memberRepo{q: r.q}
}

func (r repositories) Invitations() domain.InvitationRepository {
	return &invitationRepo{q: r.q}
}

func (r repositories) Settings() domain.SettingsRepository {
	return &settingsRepo{q: r.q}
}

func (r repositories) Activity() domain.ActivityRepository {
	return &activityRepo{q: r.q}
}

func (s *Store) Workspaces() domain.WorkspaceRepository {
	return repositories{q: s.db}.Workspaces()
}

func (s *Store) Members() domain.MemberRepository {
	return repositories{q: s.db}.Members()
}

func (s *Store) Invitations() domain.InvitationRepository {
	return repositories{q: s.db}.Invitations()
}

func (s *Store) Settings() domain.SettingsRepository {
	return repositories{q: s.db}.Settings()
}

func (s *Store) Activity() domain.ActivityRepository {
	return repositories{q: s.db}.Activity()
}

func (s *Store) Users() domain.UserRepository {
	return &userRepo{q: s.db, writeMu: &s.writeMu}
}

// WithinWorkspace runs fn in a transaction while holding the writer lock
func (s *Store) WithinWorkspace(ctx context.Context, workspaceID uuid.UUID, fn func(ctx context.Context, tx domain.Repositories) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Warn().Err(err).Str("workspace_id", workspaceID.String()).Msg("failed to roll back transaction")
		}
	}()

	if err := fn(ctx, repositories{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
