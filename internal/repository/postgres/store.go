package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/workspace-access/internal/domain"
)

// Store is a PostgreSQL-backed domain.Store. Writers on one workspace are
// serialized with a transaction-scoped advisory lock on the workspace id.
type Store struct {
	db *DB
}

// NewStore creates a new store on top of db
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

type repositories struct {
	q querier
}

func (r repositories) Workspaces() domain.WorkspaceRepository {
	return &WorkspaceRepository{q: r.q}
}

func (r repositories) Members() domain.MemberRepository {
	return &MemberRepository{q: r.q}
}

func (r repositories) Invitations() domain.InvitationRepository {
	return &InvitationRepository{q: r.q}
}

func (r repositories) Settings() domain.SettingsRepository {
	return &SettingsRepository{q: r.q}
}

func (r repositories) Activity() domain.ActivityRepository {
	return &ActivityRepository{q: r.q}
}

func (s *Store) Workspaces() domain.WorkspaceRepository {
	return repositories{q: s.db.Pool}.Workspaces()
}

func (s *Store) Members() domain.MemberRepository {
	return repositories{q: s.db.Pool}.Members()
}

func (s *Store) Invitations() domain.InvitationRepository {
	return repositories{q: s.db.Pool}.Invitations()
}

func (s *Store) Settings() domain.SettingsRepository {
	return repositories{q: s.db.Pool}.Settings()
}

func (s *Store) Activity() domain.ActivityRepository {
	return repositories{q: s.db.Pool}.Activity()
}

func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.db)
}

// WithinWorkspace runs fn in a read-committed transaction holding the
// workspace's advisory lock
func (s *Store) WithinWorkspace(ctx context.Context, workspaceID uuid.UUID, fn func(ctx context.Context, tx domain.Repositories) error) error {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Warn().Err(err).Str("workspace_id", workspaceID.String()).Msg("failed to roll back transaction")
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, workspaceID.String()); err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}

	if err := fn(ctx, repositories{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
