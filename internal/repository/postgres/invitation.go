package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/workspace-access/internal/domain"
)

const invitationColumns = `id, workspace_id, email, role, inviter_id, status, message, created_at, expires_at, responded_at, replaces_id, replaced_by_id`

// InvitationRepository handles invitation data access
type InvitationRepository struct {
	q querier
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.WorkspaceID,
		&inv.Email,
		&inv.Role,
		&inv.InviterID,
		&inv.Status,
		&inv.Message,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.RespondedAt,
		&inv.ReplacesID,
		&inv.ReplacedByID,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Create stores a new invitation
func (r *InvitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	query := `
		INSERT INTO invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		invitation.ID,
		invitation.WorkspaceID,
		invitation.Email,
		invitation.Role,
		invitation.InviterID,
		invitation.Status,
		invitation.Message,
		invitation.CreatedAt,
		invitation.ExpiresAt,
		invitation.RespondedAt,
		invitation.ReplacesID,
		invitation.ReplacedByID,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation within a workspace
func (r *InvitationRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE workspace_id = $1 AND id = $2`

	inv, err := scanInvitation(r.q.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetPendingByEmail retrieves the pending invitation for an email, if any
func (r *InvitationRepository) GetPendingByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE workspace_id = $1 AND email = $2 AND status = 'pending'
	`

	inv, err := scanInvitation(r.q.QueryRow(ctx, query, workspaceID, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending invitation: %w", err)
	}
	return inv, nil
}

// Update writes the mutable invitation fields
func (r *InvitationRepository) Update(ctx context.Context, invitation *domain.Invitation) error {
	query := `
		UPDATE invitations
		SET status = $3, responded_at = $4, replaced_by_id = $5
		WHERE workspace_id = $1 AND id = $2
	`

	tag, err := r.q.Exec(ctx, query,
		invitation.WorkspaceID,
		invitation.ID,
		invitation.Status,
		invitation.RespondedAt,
		invitation.ReplacedByID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invitation %s does not exist", invitation.ID)
	}
	return nil
}

// ListByWorkspace returns all invitations of a workspace in creation order
func (r *InvitationRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE workspace_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, workspaceID)
}

// ListStalePending returns pending invitations expired at now, oldest first
func (r *InvitationRepository) ListStalePending(ctx context.Context, now time.Time, limit int) ([]domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at, id
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}
