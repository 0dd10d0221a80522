package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// WorkspaceService handles workspace operations
type WorkspaceService struct {
	store   domain.Store
	auditor *Auditor
	clock   clockwork.Clock
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(store domain.Store, auditor *Auditor, clock clockwork.Clock) *WorkspaceService {
	return &WorkspaceService{store: store, auditor: auditor, clock: clock}
}

// Create creates a new workspace with default settings and the creator as
// its sole owner
func (s *WorkspaceService) Create(ctx context.Context, identity domain.Identity, input domain.WorkspaceCreate) (*domain.Workspace, error) {
	if err := validateInput(identity); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	workspace := &domain.Workspace{
		ID:        uuid.New(),
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &domain.Member{
		ID:           uuid.New(),
		WorkspaceID:  workspace.ID,
		UserID:       identity.UserID,
		Email:        domain.NormalizeEmail(identity.Email),
		DisplayName:  identity.DisplayName,
		Role:         domain.RoleOwner,
		Status:       domain.MemberStatusActive,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	settings := domain.DefaultSettings(workspace.ID, now)

	var record domain.ActivityRecord
	err := s.store.WithinWorkspace(ctx, workspace.ID, func(ctx context.Context, tx domain.Repositories) error {
		if err := tx.Workspaces().Create(ctx, workspace); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		if err := tx.Settings().Save(ctx, &settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		if err := tx.Members().Create(ctx, owner); err != nil {
			return fmt.Errorf("failed to add owner: %w", err)
		}

		var err error
		record, err = s.auditor.Append(ctx, tx, workspace.ID, &identity.UserID, domain.ActivityWorkspaceCreated,
			domain.Target{Type: domain.TargetWorkspace, ID: workspace.ID.String()},
			map[string]any{"name": workspace.Name, "owner_member_id": owner.ID.String()})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Export(ctx, record)
	log.Info().
		Str("workspace_id", workspace.ID.String()).
		Str("owner", identity.UserID.String()).
		Msg("workspace created")

	return workspace, nil
}

// GetByID retrieves a workspace by ID with access check
func (s *WorkspaceService) GetByID(ctx context.Context, userID, workspaceID uuid.UUID) (*domain.Workspace, error) {
	workspace, err := requireWorkspace(ctx, s.store, workspaceID)
	if err != nil {
		return nil, err
	}

	member, err := s.store.Members().GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: not a member of this workspace", domain.ErrPermissionDenied)
	}

	return workspace, nil
}

// ListByUser retrieves all workspaces for a user
func (s *WorkspaceService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	workspaces, err := s.store.Workspaces().ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	if workspaces == nil {
		workspaces = []domain.Workspace{}
	}
	return workspaces, nil
}
