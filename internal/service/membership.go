package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MembershipService manages the members of a workspace
type MembershipService struct {
	store      domain.Store
	authorizer *Authorizer
	auditor    *Auditor
	clock      clockwork.Clock
}

// NewMembershipService creates a new membership service
func NewMembershipService(store domain.Store, authorizer *Authorizer, auditor *Auditor, clock clockwork.Clock) *MembershipService {
	return &MembershipService{
		store:      store,
		authorizer: authorizer,
		auditor:    auditor,
		clock:      clock,
	}
}

// mutate runs fn inside the workspace boundary with the resolved actor and
// exports the record fn produced once the transaction commits.
func (s *MembershipService) mutate(ctx context.Context, workspaceID, actorUserID uuid.UUID, fn func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error)) error {
	var record *domain.ActivityRecord
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		actor, err := loadActor(ctx, tx, workspaceID, actorUserID)
		if err != nil {
			return err
		}
		record, err = fn(ctx, tx, actor)
		return err
	})
	if err != nil {
		return err
	}
	if record != nil {
		s.auditor.Export(ctx, *record)
	}
	return nil
}

func (s *MembershipService) getTarget(ctx context.Context, tx domain.Repositories, workspaceID, memberID uuid.UUID) (*domain.Member, error) {
	target, err := tx.Members().GetByID(ctx, workspaceID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, memberID)
	}
	return target, nil
}

func memberTarget(m *domain.Member) domain.Target {
	return domain.Target{Type: domain.TargetMember, ID: m.ID.String()}
}

// AddMember adds an existing identity directly. The member starts as invited
// and becomes active on first activity.
func (s *MembershipService) AddMember(ctx context.Context, workspaceID, actorUserID uuid.UUID, input domain.MemberCreate) (*domain.Member, error) {
	if input.Role == domain.RoleOwner {
		return nil, fmt.Errorf("%w: the owner role cannot be granted", domain.ErrOwnerImmutable)
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(input.Role))
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var member *domain.Member
	err := s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		if err := s.authorizer.Require(actor, domain.ActionAdminManageUsers); err != nil {
			return nil, err
		}
		if input.Role.Outranks(actor.Role) {
			return nil, fmt.Errorf("%w: cannot grant %s as %s", domain.ErrPermissionDenied, input.Role, actor.Role)
		}

		email := domain.NormalizeEmail(input.Email)
		if err := ensureNotMember(ctx, tx, workspaceID, input.UserID, email); err != nil {
			return nil, err
		}

		now := s.clock.Now().UTC()
		invitedBy := actor.ID
		member = &domain.Member{
			ID:           uuid.New(),
			WorkspaceID:  workspaceID,
			UserID:       input.UserID,
			Email:        email,
			DisplayName:  input.DisplayName,
			Role:         input.Role,
			Status:       domain.MemberStatusInvited,
			JoinedAt:     now,
			LastActiveAt: now,
			InvitedBy:    &invitedBy,
		}
		if err := tx.Members().Create(ctx, member); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, domain.ActivityMemberAdded, memberTarget(member),
			map[string]any{"email": member.Email, "role": string(member.Role)})
		return &record, err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// ensureNotMember fails with ErrDuplicateMember if the identity or its email
// already has a membership
func ensureNotMember(ctx context.Context, tx domain.Repositories, workspaceID, userID uuid.UUID, email string) error {
	existing, err := tx.Members().GetByUserID(ctx, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if existing == nil {
		existing, err = tx.Members().GetByEmail(ctx, workspaceID, email)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateMember, email)
	}
	return nil
}

// UpdateRole changes a member's role. The owner's role is fixed and the
// owner role cannot be granted this way.
func (s *MembershipService) UpdateRole(ctx context.Context, workspaceID, actorUserID, memberID uuid.UUID, newRole domain.Role) (*domain.Member, error) {
	if !newRole.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(newRole))
	}

	var member *domain.Member
	err := s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		if err := s.authorizer.Require(actor, domain.ActionAdminManageRoles); err != nil {
			return nil, err
		}
		target, err := s.getTarget(ctx, tx, workspaceID, memberID)
		if err != nil {
			return nil, err
		}
		if target.IsOwner() {
			return nil, fmt.Errorf("%w: the owner's role cannot be changed", domain.ErrOwnerImmutable)
		}
		if newRole == domain.RoleOwner {
			return nil, fmt.Errorf("%w: use ownership transfer to assign the owner role", domain.ErrOwnerImmutable)
		}

		member = target
		if target.Role == newRole {
			return nil, nil
		}

		previous := target.Role
		target.Role = newRole
		if err := tx.Members().Update(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to update member: %w", err)
		}

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, domain.ActivityMemberRoleChanged, memberTarget(target),
			map[string]any{"from": string(previous), "to": string(newRole)})
		return &record, err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember removes a member. Any non-owner may remove itself; removing
// others requires admin.manageUsers.
func (s *MembershipService) RemoveMember(ctx context.Context, workspaceID, actorUserID, memberID uuid.UUID) error {
	return s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		target, err := s.getTarget(ctx, tx, workspaceID, memberID)
		if err != nil {
			return nil, err
		}

		self := target.ID == actor.ID
		if !self {
			if err := s.authorizer.Require(actor, domain.ActionAdminManageUsers); err != nil {
				return nil, err
			}
		}
		if target.IsOwner() {
			return nil, fmt.Errorf("%w: the owner cannot be removed", domain.ErrOwnerImmutable)
		}

		if err := tx.Members().Delete(ctx, workspaceID, target.ID); err != nil {
			return nil, fmt.Errorf("failed to remove member: %w", err)
		}

		action := domain.ActivityMemberRemoved
		if self {
			action = domain.ActivityMemberLeft
		}
		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, action, memberTarget(target),
			map[string]any{"email": target.Email, "role": string(target.Role)})
		return &record, err
	})
}

// ApproveMember activates a member that joined while approval was required
func (s *MembershipService) ApproveMember(ctx context.Context, workspaceID, actorUserID, memberID uuid.UUID) (*domain.Member, error) {
	var member *domain.Member
	err := s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		if err := s.authorizer.Require(actor, domain.ActionAdminManageUsers); err != nil {
			return nil, err
		}
		target, err := s.getTarget(ctx, tx, workspaceID, memberID)
		if err != nil {
			return nil, err
		}
		if target.Status != domain.MemberStatusPendingApproval {
			return nil, fmt.Errorf("%w: member is %s, not awaiting approval", domain.ErrInvalidInput, target.Status)
		}

		target.Status = domain.MemberStatusActive
		if err := tx.Members().Update(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to update member: %w", err)
		}
		member = target

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, domain.ActivityMemberApproved, memberTarget(target), nil)
		return &record, err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// SetMemberStatus deactivates or reactivates a member
func (s *MembershipService) SetMemberStatus(ctx context.Context, workspaceID, actorUserID, memberID uuid.UUID, status domain.MemberStatus) (*domain.Member, error) {
	if status != domain.MemberStatusActive && status != domain.MemberStatusInactive {
		return nil, fmt.Errorf("%w: status must be active or inactive", domain.ErrInvalidInput)
	}

	var member *domain.Member
	err := s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		if err := s.authorizer.Require(actor, domain.ActionAdminManageUsers); err != nil {
			return nil, err
		}
		target, err := s.getTarget(ctx, tx, workspaceID, memberID)
		if err != nil {
			return nil, err
		}
		if target.IsOwner() {
			return nil, fmt.Errorf("%w: the owner's status cannot be changed", domain.ErrOwnerImmutable)
		}
		if target.ID == actor.ID {
			return nil, fmt.Errorf("%w: members cannot change their own status", domain.ErrInvalidInput)
		}
		if target.Status == domain.MemberStatusPendingApproval {
			return nil, fmt.Errorf("%w: member is awaiting approval", domain.ErrInvalidInput)
		}

		member = target
		if target.Status == status {
			return nil, nil
		}

		previous := target.Status
		target.Status = status
		if err := tx.Members().Update(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to update member: %w", err)
		}

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, domain.ActivityMemberStatusChanged, memberTarget(target),
			map[string]any{"from": string(previous), "to": string(status)})
		return &record, err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// TransferOwnership hands the owner role to another active member. The
// previous owner becomes an admin in the same transaction.
func (s *MembershipService) TransferOwnership(ctx context.Context, workspaceID, actorUserID, memberID uuid.UUID) (*domain.Member, error) {
	var newOwner *domain.Member
	err := s.mutate(ctx, workspaceID, actorUserID, func(ctx context.Context, tx domain.Repositories, actor *domain.Member) (*domain.ActivityRecord, error) {
		if !actor.IsOwner() {
			return nil, fmt.Errorf("%w: only the owner can transfer ownership", domain.ErrPermissionDenied)
		}
		target, err := s.getTarget(ctx, tx, workspaceID, memberID)
		if err != nil {
			return nil, err
		}
		if target.ID == actor.ID {
			return nil, fmt.Errorf("%w: already the owner", domain.ErrInvalidInput)
		}
		if !target.CanAct() {
			return nil, fmt.Errorf("%w: new owner must be an active member", domain.ErrInvalidInput)
		}

		previousRole := target.Role
		actor.Role = domain.RoleAdmin
		target.Role = domain.RoleOwner
		if err := tx.Members().Update(ctx, actor); err != nil {
			return nil, fmt.Errorf("failed to update member: %w", err)
		}
		if err := tx.Members().Update(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to update member: %w", err)
		}
		newOwner = target

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actor.UserID, domain.ActivityOwnershipTransfer, memberTarget(target),
			map[string]any{"previous_owner_member_id": actor.ID.String(), "previous_role": string(previousRole)})
		return &record, err
	})
	if err != nil {
		return nil, err
	}
	return newOwner, nil
}

// Touch records that the user was seen in the workspace. A member added
// directly becomes active on first touch.
func (s *MembershipService) Touch(ctx context.Context, workspaceID, userID uuid.UUID) error {
	var record *domain.ActivityRecord
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		member, err := tx.Members().GetByUserID(ctx, workspaceID, userID)
		if err != nil {
			return fmt.Errorf("failed to get member: %w", err)
		}
		if member == nil {
			return fmt.Errorf("%w: not a member of this workspace", domain.ErrNotFound)
		}

		member.LastActiveAt = s.clock.Now().UTC()
		joined := member.Status == domain.MemberStatusInvited
		if joined {
			member.Status = domain.MemberStatusActive
		}
		if err := tx.Members().Update(ctx, member); err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}

		if joined {
			r, err := s.auditor.Append(ctx, tx, workspaceID, &userID, domain.ActivityMemberJoined, memberTarget(member), nil)
			if err != nil {
				return err
			}
			record = &r
		}
		return nil
	})
	if err != nil {
		return err
	}
	if record != nil {
		s.auditor.Export(ctx, *record)
	}
	return nil
}

// ListMembers returns members matching every set filter field, in join order
func (s *MembershipService) ListMembers(ctx context.Context, workspaceID, actorUserID uuid.UUID, filter domain.MemberFilter) ([]domain.Member, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(filter.Role))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, string(filter.Status))
	}

	if _, err := loadActor(ctx, s.store, workspaceID, actorUserID); err != nil {
		return nil, err
	}

	members, err := s.store.Members().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}
