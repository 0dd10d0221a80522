package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultInvitationTTL is how long an invitation stays acceptable
const DefaultInvitationTTL = 7 * 24 * time.Hour

const sweepBatchSize = 500

// InvitationService runs the invitation lifecycle:
// pending -> accepted | rejected | expired
type InvitationService struct {
	store      domain.Store
	authorizer *Authorizer
	auditor    *Auditor
	notifier   domain.Notifier
	clock      clockwork.Clock
	ttl        time.Duration
}

// NewInvitationService creates a new invitation service. notifier may be nil.
func NewInvitationService(store domain.Store, authorizer *Authorizer, auditor *Auditor, notifier domain.Notifier, clock clockwork.Clock, ttl time.Duration) *InvitationService {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &InvitationService{
		store:      store,
		authorizer: authorizer,
		auditor:    auditor,
		notifier:   notifier,
		clock:      clock,
		ttl:        ttl,
	}
}

func invitationTarget(inv *domain.Invitation) domain.Target {
	return domain.Target{Type: domain.TargetInvitation, ID: inv.ID.String()}
}

func loadSettings(ctx context.Context, repos domain.Repositories, workspaceID uuid.UUID, now time.Time) (*domain.WorkspaceSettings, error) {
	settings, err := repos.Settings().Get(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		defaults := domain.DefaultSettings(workspaceID, now)
		settings = &defaults
	}
	return settings, nil
}

// requireInvitePermission checks the invite policy tier and the
// collaboration.invite grant
func (s *InvitationService) requireInvitePermission(actor *domain.Member, settings *domain.WorkspaceSettings) error {
	if !settings.InvitePolicy.Permits(actor.Role) {
		return fmt.Errorf("%w: invite policy %s does not admit %s", domain.ErrPermissionDenied, settings.InvitePolicy, actor.Role)
	}
	return s.authorizer.Require(actor, domain.ActionCollaborationInvite)
}

func (s *InvitationService) getInvitation(ctx context.Context, tx domain.Repositories, workspaceID, invitationID uuid.UUID) (*domain.Invitation, error) {
	inv, err := tx.Invitations().GetByID(ctx, workspaceID, invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: invitation %s", domain.ErrNotFound, invitationID)
	}
	return inv, nil
}

// expire persists the expired status of a stale pending invitation. The
// transition is a system action and carries no actor.
func (s *InvitationService) expire(ctx context.Context, tx domain.Repositories, inv *domain.Invitation, now time.Time) (domain.ActivityRecord, error) {
	inv.Status = domain.InvitationExpired
	inv.RespondedAt = &now
	if err := tx.Invitations().Update(ctx, inv); err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("failed to expire invitation: %w", err)
	}
	return s.auditor.Append(ctx, tx, inv.WorkspaceID, nil, domain.ActivityInvitationExpired, invitationTarget(inv),
		map[string]any{"email": inv.Email, "expired_at": inv.ExpiresAt})
}

// transition checks that inv is still pending at now. A stale pending
// invitation is flipped to expired and reported through expired so the
// caller can commit the flip before failing.
func (s *InvitationService) transition(ctx context.Context, tx domain.Repositories, inv *domain.Invitation, now time.Time) (expired *domain.ActivityRecord, err error) {
	if inv.Status != domain.InvitationPending {
		return nil, fmt.Errorf("%w: invitation is %s", domain.ErrInvitationNotPending, inv.Status)
	}
	if inv.IsExpiredAt(now) {
		record, err := s.expire(ctx, tx, inv, now)
		if err != nil {
			return nil, err
		}
		return &record, nil
	}
	return nil, nil
}

func (s *InvitationService) notify(ctx context.Context, eventType string, inv domain.Invitation) {
	if s.notifier == nil {
		return
	}
	event := domain.InvitationEvent{
		Type:       eventType,
		Invitation: inv,
		OccurredAt: s.clock.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("event", eventType).
			Str("invitation_id", inv.ID.String()).
			Str("workspace_id", inv.WorkspaceID.String()).
			Msg("failed to deliver invitation notification")
	}
}

func expiredError(inv *domain.Invitation) error {
	return fmt.Errorf("%w: invitation expired at %s", domain.ErrInvitationExpired, inv.ExpiresAt.Format(time.RFC3339))
}

// CreateInvitation issues a pending invitation for an email address
func (s *InvitationService) CreateInvitation(ctx context.Context, workspaceID, actorUserID uuid.UUID, input domain.InvitationCreate) (*domain.Invitation, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Role == domain.RoleOwner {
		return nil, fmt.Errorf("%w: the owner role cannot be offered", domain.ErrOwnerImmutable)
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(input.Role))
	}
	email := domain.NormalizeEmail(input.Email)

	var (
		invitation *domain.Invitation
		records    []domain.ActivityRecord
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		records = records[:0]
		now := s.clock.Now().UTC()

		actor, err := loadActor(ctx, tx, workspaceID, actorUserID)
		if err != nil {
			return err
		}
		settings, err := loadSettings(ctx, tx, workspaceID, now)
		if err != nil {
			return err
		}
		if err := s.requireInvitePermission(actor, settings); err != nil {
			return err
		}

		role := input.Role
		if role == "" {
			role = settings.DefaultRole
		}
		if err := requireRoleCeiling(actor, role); err != nil {
			return err
		}

		member, err := tx.Members().GetByEmail(ctx, workspaceID, email)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if member != nil {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyMember, email)
		}

		pending, err := tx.Invitations().GetPendingByEmail(ctx, workspaceID, email)
		if err != nil {
			return fmt.Errorf("failed to check pending invitations: %w", err)
		}
		if pending != nil {
			if pending.IsLive(now) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicatePendingInvite, email)
			}
			record, err := s.expire(ctx, tx, pending, now)
			if err != nil {
				return err
			}
			records = append(records, record)
		}

		invitation = &domain.Invitation{
			ID:          uuid.New(),
			WorkspaceID: workspaceID,
			Email:       email,
			Role:        role,
			InviterID:   actor.ID,
			Status:      domain.InvitationPending,
			Message:     input.Message,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}
		if err := tx.Invitations().Create(ctx, invitation); err != nil {
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		record, err := s.auditor.Append(ctx, tx, workspaceID, &actorUserID, domain.ActivityInvitationCreated, invitationTarget(invitation),
			map[string]any{"email": email, "role": string(role)})
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Export(ctx, records...)
	s.notify(ctx, domain.InvitationEventCreated, *invitation)

	log.Info().
		Str("workspace_id", workspaceID.String()).
		Str("invitation_id", invitation.ID.String()).
		Str("role", string(invitation.Role)).
		Msg("invitation created")

	return invitation, nil
}

// AcceptInvitation turns a live invitation into a membership for the
// invitee. Under RequireApproval the member waits in pendingApproval.
func (s *InvitationService) AcceptInvitation(ctx context.Context, workspaceID, invitationID uuid.UUID, identity domain.Identity) (*domain.Member, error) {
	if err := validateInput(identity); err != nil {
		return nil, err
	}

	var (
		member  *domain.Member
		record  domain.ActivityRecord
		expired *domain.ActivityRecord
		inv     *domain.Invitation
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		now := s.clock.Now().UTC()

		if _, err := requireWorkspace(ctx, tx, workspaceID); err != nil {
			return err
		}
		var err error
		inv, err = s.getInvitation(ctx, tx, workspaceID, invitationID)
		if err != nil {
			return err
		}
		if inv.Email != domain.NormalizeEmail(identity.Email) {
			return fmt.Errorf("%w: invitation was issued to a different email", domain.ErrPermissionDenied)
		}
		expired, err = s.transition(ctx, tx, inv, now)
		if err != nil || expired != nil {
			return err
		}

		if err := ensureNotMember(ctx, tx, workspaceID, identity.UserID, inv.Email); err != nil {
			return err
		}
		settings, err := loadSettings(ctx, tx, workspaceID, now)
		if err != nil {
			return err
		}

		status := domain.MemberStatusActive
		if settings.RequireApproval {
			status = domain.MemberStatusPendingApproval
		}
		inviter := inv.InviterID
		member = &domain.Member{
			ID:           uuid.New(),
			WorkspaceID:  workspaceID,
			UserID:       identity.UserID,
			Email:        inv.Email,
			DisplayName:  identity.DisplayName,
			Role:         inv.Role,
			Status:       status,
			JoinedAt:     now,
			LastActiveAt: now,
			InvitedBy:    &inviter,
		}
		if err := tx.Members().Create(ctx, member); err != nil {
			return fmt.Errorf("failed to create member: %w", err)
		}

		inv.Status = domain.InvitationAccepted
		inv.RespondedAt = &now
		if err := tx.Invitations().Update(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		record, err = s.auditor.Append(ctx, tx, workspaceID, &identity.UserID, domain.ActivityInvitationAccepted, invitationTarget(inv),
			map[string]any{"member_id": member.ID.String(), "role": string(member.Role), "status": string(member.Status)})
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		s.auditor.Export(ctx, *expired)
		return nil, expiredError(inv)
	}

	s.auditor.Export(ctx, record)
	log.Info().
		Str("workspace_id", workspaceID.String()).
		Str("invitation_id", invitationID.String()).
		Str("member_id", member.ID.String()).
		Str("status", string(member.Status)).
		Msg("invitation accepted")

	return member, nil
}

// RejectInvitation lets the invitee decline a live invitation
func (s *InvitationService) RejectInvitation(ctx context.Context, workspaceID, invitationID uuid.UUID, identity domain.Identity) (*domain.Invitation, error) {
	if err := validateInput(identity); err != nil {
		return nil, err
	}

	var (
		inv     *domain.Invitation
		record  domain.ActivityRecord
		expired *domain.ActivityRecord
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		now := s.clock.Now().UTC()

		if _, err := requireWorkspace(ctx, tx, workspaceID); err != nil {
			return err
		}
		var err error
		inv, err = s.getInvitation(ctx, tx, workspaceID, invitationID)
		if err != nil {
			return err
		}
		if inv.Email != domain.NormalizeEmail(identity.Email) {
			return fmt.Errorf("%w: invitation was issued to a different email", domain.ErrPermissionDenied)
		}
		expired, err = s.transition(ctx, tx, inv, now)
		if err != nil || expired != nil {
			return err
		}

		inv.Status = domain.InvitationRejected
		inv.RespondedAt = &now
		if err := tx.Invitations().Update(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		record, err = s.auditor.Append(ctx, tx, workspaceID, &identity.UserID, domain.ActivityInvitationRejected, invitationTarget(inv),
			map[string]any{"email": inv.Email})
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		s.auditor.Export(ctx, *expired)
		return nil, expiredError(inv)
	}

	s.auditor.Export(ctx, record)
	return inv, nil
}

// RevokeInvitation withdraws a live invitation on behalf of the workspace
func (s *InvitationService) RevokeInvitation(ctx context.Context, workspaceID, actorUserID, invitationID uuid.UUID) (*domain.Invitation, error) {
	var (
		inv     *domain.Invitation
		record  domain.ActivityRecord
		expired *domain.ActivityRecord
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		now := s.clock.Now().UTC()

		actor, err := loadActor(ctx, tx, workspaceID, actorUserID)
		if err != nil {
			return err
		}
		settings, err := loadSettings(ctx, tx, workspaceID, now)
		if err != nil {
			return err
		}
		if err := s.requireInvitePermission(actor, settings); err != nil {
			return err
		}

		inv, err = s.getInvitation(ctx, tx, workspaceID, invitationID)
		if err != nil {
			return err
		}
		if err := requireRoleCeiling(actor, inv.Role); err != nil {
			return err
		}
		expired, err = s.transition(ctx, tx, inv, now)
		if err != nil || expired != nil {
			return err
		}

		inv.Status = domain.InvitationRejected
		inv.RespondedAt = &now
		if err := tx.Invitations().Update(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		record, err = s.auditor.Append(ctx, tx, workspaceID, &actorUserID, domain.ActivityInvitationRevoked, invitationTarget(inv),
			map[string]any{"email": inv.Email})
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		s.auditor.Export(ctx, *expired)
		return nil, expiredError(inv)
	}

	s.auditor.Export(ctx, record)
	s.notify(ctx, domain.InvitationEventRevoked, *inv)
	return inv, nil
}

// ResendInvitation re-issues a live invitation with a fresh expiry. The old
// record is closed as expired and linked to its replacement, so the email
// never has two pending invitations.
func (s *InvitationService) ResendInvitation(ctx context.Context, workspaceID, actorUserID, invitationID uuid.UUID) (*domain.Invitation, error) {
	var (
		old, fresh *domain.Invitation
		record     domain.ActivityRecord
		expired    *domain.ActivityRecord
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		now := s.clock.Now().UTC()

		actor, err := loadActor(ctx, tx, workspaceID, actorUserID)
		if err != nil {
			return err
		}
		settings, err := loadSettings(ctx, tx, workspaceID, now)
		if err != nil {
			return err
		}
		if err := s.requireInvitePermission(actor, settings); err != nil {
			return err
		}

		old, err = s.getInvitation(ctx, tx, workspaceID, invitationID)
		if err != nil {
			return err
		}
		if err := requireRoleCeiling(actor, old.Role); err != nil {
			return err
		}
		expired, err = s.transition(ctx, tx, old, now)
		if err != nil || expired != nil {
			return err
		}

		oldID := old.ID
		fresh = &domain.Invitation{
			ID:          uuid.New(),
			WorkspaceID: workspaceID,
			Email:       old.Email,
			Role:        old.Role,
			InviterID:   actor.ID,
			Status:      domain.InvitationPending,
			Message:     old.Message,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
			ReplacesID:  &oldID,
		}
		freshID := fresh.ID

		old.Status = domain.InvitationExpired
		old.RespondedAt = &now
		old.ReplacedByID = &freshID
		if err := tx.Invitations().Update(ctx, old); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}
		if err := tx.Invitations().Create(ctx, fresh); err != nil {
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		record, err = s.auditor.Append(ctx, tx, workspaceID, &actorUserID, domain.ActivityInvitationResent, invitationTarget(fresh),
			map[string]any{"email": fresh.Email, "replaces_id": oldID.String()})
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		s.auditor.Export(ctx, *expired)
		return nil, expiredError(old)
	}

	s.auditor.Export(ctx, record)
	s.notify(ctx, domain.InvitationEventResent, *fresh)
	return fresh, nil
}

// ListInvitations returns invitations matching the filter, newest first.
// Pending invitations past their expiry are reported as expired.
func (s *InvitationService) ListInvitations(ctx context.Context, workspaceID, actorUserID uuid.UUID, filter domain.InvitationFilter) ([]domain.Invitation, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(filter.Role))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, string(filter.Status))
	}

	if _, err := loadActor(ctx, s.store, workspaceID, actorUserID); err != nil {
		return nil, err
	}

	invitations, err := s.store.Invitations().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	now := s.clock.Now().UTC()
	out := make([]domain.Invitation, 0, len(invitations))
	for _, inv := range invitations {
		if !filter.Matches(inv, now) {
			continue
		}
		inv.Status = inv.EffectiveStatus(now)
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetInvitation returns one invitation to an active member
func (s *InvitationService) GetInvitation(ctx context.Context, workspaceID, actorUserID, invitationID uuid.UUID) (*domain.Invitation, error) {
	if _, err := loadActor(ctx, s.store, workspaceID, actorUserID); err != nil {
		return nil, err
	}
	inv, err := s.getInvitation(ctx, s.store, workspaceID, invitationID)
	if err != nil {
		return nil, err
	}
	inv.Status = inv.EffectiveStatus(s.clock.Now().UTC())
	return inv, nil
}

// SweepExpired flips pending invitations past their expiry to expired. Each
// workspace is swept inside its own boundary, so a concurrent accept either
// wins or observes the expired status.
func (s *InvitationService) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		now := s.clock.Now().UTC()
		stale, err := s.store.Invitations().ListStalePending(ctx, now, sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list stale invitations: %w", err)
		}
		if len(stale) == 0 {
			return total, nil
		}

		byWorkspace := make(map[uuid.UUID][]uuid.UUID)
		var order []uuid.UUID
		for _, inv := range stale {
			if _, ok := byWorkspace[inv.WorkspaceID]; !ok {
				order = append(order, inv.WorkspaceID)
			}
			byWorkspace[inv.WorkspaceID] = append(byWorkspace[inv.WorkspaceID], inv.ID)
		}

		swept := 0
		var errs []error
		for _, workspaceID := range order {
			n, err := s.sweepWorkspace(ctx, workspaceID, byWorkspace[workspaceID], now)
			swept += n
			if err != nil {
				errs = append(errs, err)
			}
		}
		total += swept

		if err := errors.Join(errs...); err != nil {
			return total, err
		}
		if len(stale) < sweepBatchSize || swept == 0 {
			return total, nil
		}
	}
}

func (s *InvitationService) sweepWorkspace(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error) {
	var records []domain.ActivityRecord
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		records = records[:0]
		for _, id := range ids {
			inv, err := tx.Invitations().GetByID(ctx, workspaceID, id)
			if err != nil {
				return fmt.Errorf("failed to get invitation: %w", err)
			}
			if inv == nil || inv.Status != domain.InvitationPending || !inv.IsExpiredAt(now) {
				continue
			}
			record, err := s.expire(ctx, tx, inv, now)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep workspace %s: %w", workspaceID, err)
	}
	s.auditor.Export(ctx, records...)
	return len(records), nil
}

// requireRoleCeiling refuses to let actor hand out or manage an offer of a
// role above its own.
func requireRoleCeiling(actor *domain.Member, role domain.Role) error {
	if role.Outranks(actor.Role) {
		return fmt.Errorf("%w: cannot offer %s as %s", domain.ErrPermissionDenied, role, actor.Role)
	}
	return nil
}
