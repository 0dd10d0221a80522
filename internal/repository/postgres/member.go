package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/workspace-access/internal/domain"
)

const memberColumns = `id, workspace_id, user_id, email, display_name, role, status, joined_at, last_active_at, invited_by`

// MemberRepository handles workspace member data access
type MemberRepository struct {
	q querier
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID,
		&m.WorkspaceID,
		&m.UserID,
		&m.Email,
		&m.DisplayName,
		&m.Role,
		&m.Status,
		&m.JoinedAt,
		&m.LastActiveAt,
		&m.InvitedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) getOne(ctx context.Context, where string, args ...any) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM workspace_members WHERE ` + where
	m, err := scanMember(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// Create adds a member
func (r *MemberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO workspace_members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		member.ID,
		member.WorkspaceID,
		member.UserID,
		member.Email,
		member.DisplayName,
		member.Role,
		member.Status,
		member.JoinedAt,
		member.LastActiveAt,
		member.InvitedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetByID retrieves a member by member ID
func (r *MemberRepository) GetByID(ctx context.Context, workspaceID, memberID uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = $1 AND id = $2`, workspaceID, memberID)
}

// GetByUserID retrieves a member by identity
func (r *MemberRepository) GetByUserID(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = $1 AND user_id = $2`, workspaceID, userID)
}

// GetByEmail retrieves a member by normalized email
func (r *MemberRepository) GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = $1 AND email = $2`, workspaceID, domain.NormalizeEmail(email))
}

// Update writes the mutable member fields
func (r *MemberRepository) Update(ctx context.Context, member *domain.Member) error {
	query := `
		UPDATE workspace_members
		SET display_name = $3, role = $4, status = $5, last_active_at = $6
		WHERE workspace_id = $1 AND id = $2
	`

	tag, err := r.q.Exec(ctx, query,
		member.WorkspaceID,
		member.ID,
		member.DisplayName,
		member.Role,
		member.Status,
		member.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s does not exist", member.ID)
	}
	return nil
}

// Delete removes a member
func (r *MemberRepository) Delete(ctx context.Context, workspaceID, memberID uuid.UUID) error {
	query := `DELETE FROM workspace_members WHERE workspace_id = $1 AND id = $2`

	tag, err := r.q.Exec(ctx, query, workspaceID, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s does not exist", memberID)
	}
	return nil
}

// ListByWorkspace returns all members in join order
func (r *MemberRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members
		WHERE workspace_id = $1
		ORDER BY joined_at, id
	`

	rows, err := r.q.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
