package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/workspace-access/internal/domain"
)

// SettingsRepository handles workspace settings data access
type SettingsRepository struct {
	q querier
}

// Get retrieves the settings of a workspace
func (r *SettingsRepository) Get(ctx context.Context, workspaceID uuid.UUID) (*domain.WorkspaceSettings, error) {
	query := `
		SELECT workspace_id, visibility, invite_policy, default_role, allow_guest_access,
		       require_approval, enable_comments, enable_versioning, updated_at
		FROM workspace_settings
		WHERE workspace_id = $1
	`

	var s domain.WorkspaceSettings
	err := r.q.QueryRow(ctx, query, workspaceID).Scan(
		&s.WorkspaceID,
		&s.Visibility,
		&s.InvitePolicy,
		&s.DefaultRole,
		&s.AllowGuestAccess,
		&s.RequireApproval,
		&s.EnableComments,
		&s.EnableVersioning,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// Save inserts or replaces the settings of a workspace
func (r *SettingsRepository) Save(ctx context.Context, s *domain.WorkspaceSettings) error {
	query := `
		INSERT INTO workspace_settings (workspace_id, visibility, invite_policy, default_role,
			allow_guest_access, require_approval, enable_comments, enable_versioning, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workspace_id) DO UPDATE SET
			visibility = EXCLUDED.visibility,
			invite_policy = EXCLUDED.invite_policy,
			default_role = EXCLUDED.default_role,
			allow_guest_access = EXCLUDED.allow_guest_access,
			require_approval = EXCLUDED.require_approval,
			enable_comments = EXCLUDED.enable_comments,
			enable_versioning = EXCLUDED.enable_versioning,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query,
		s.WorkspaceID,
		s.Visibility,
		s.InvitePolicy,
		s.DefaultRole,
		s.AllowGuestAccess,
		s.RequireApproval,
		s.EnableComments,
		s.EnableVersioning,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
