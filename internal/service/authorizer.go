package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
)

// Authorizer answers whether a member may perform an action. It holds no
// state: every call reads the member's current role.
type Authorizer struct{}

// NewAuthorizer creates a new authorizer
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Authorize returns the matrix grant for the member's role
func (a *Authorizer) Authorize(actor *domain.Member, action domain.Action) bool {
	if actor == nil {
		return false
	}
	matrix, err := domain.PermissionsFor(actor.Role)
	if err != nil {
		return false
	}
	return matrix.Allows(action)
}

// Require fails with ErrPermissionDenied when Authorize returns false
func (a *Authorizer) Require(actor *domain.Member, action domain.Action) error {
	if !a.Authorize(actor, action) {
		return fmt.Errorf("%w: %s requires %s", domain.ErrPermissionDenied, actor.Role, action)
	}
	return nil
}

// requireWorkspace fails with ErrNotFound when the workspace does not exist
func requireWorkspace(ctx context.Context, repos domain.Repositories, workspaceID uuid.UUID) (*domain.Workspace, error) {
	ws, err := repos.Workspaces().GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: workspace %s", domain.ErrNotFound, workspaceID)
	}
	return ws, nil
}

// loadActor resolves the calling user's current membership. Only active
// members may act.
func loadActor(ctx context.Context, repos domain.Repositories, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	if _, err := requireWorkspace(ctx, repos, workspaceID); err != nil {
		return nil, err
	}
	actor, err := repos.Members().GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: not a member of this workspace", domain.ErrPermissionDenied)
	}
	if !actor.CanAct() {
		return nil, fmt.Errorf("%w: membership is %s", domain.ErrPermissionDenied, actor.Status)
	}
	return actor, nil
}

// MemberPermissions is a member together with its effective grants
type MemberPermissions struct {
	Member      domain.Member           `json:"member"`
	Permissions domain.PermissionMatrix `json:"permissions"`
}

// AuthorizationService exposes the evaluator per workspace
type AuthorizationService struct {
	store      domain.Store
	authorizer *Authorizer
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(store domain.Store, authorizer *Authorizer) *AuthorizationService {
	return &AuthorizationService{store: store, authorizer: authorizer}
}

// Can reports whether the user may perform action in the workspace right now.
// Non-members and members that are not active get false.
func (s *AuthorizationService) Can(ctx context.Context, workspaceID, userID uuid.UUID, action domain.Action) (bool, error) {
	if _, err := requireWorkspace(ctx, s.store, workspaceID); err != nil {
		return false, err
	}
	member, err := s.store.Members().GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil || !member.CanAct() {
		return false, nil
	}
	return s.authorizer.Authorize(member, action), nil
}

// Permissions returns the caller's membership and permission matrix
func (s *AuthorizationService) Permissions(ctx context.Context, workspaceID, userID uuid.UUID) (*MemberPermissions, error) {
	if _, err := requireWorkspace(ctx, s.store, workspaceID); err != nil {
		return nil, err
	}
	member, err := s.store.Members().GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: not a member of this workspace", domain.ErrPermissionDenied)
	}
	matrix, err := domain.PermissionsFor(member.Role)
	if err != nil {
		return nil, err
	}
	if !member.CanAct() {
		matrix = domain.PermissionMatrix{}
	}
	return &MemberPermissions{Member: *member, Permissions: matrix}, nil
}
