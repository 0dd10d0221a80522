package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
)

type workspaceRepo struct {
	store *Store
	view  viewFunc
}

func (r *workspaceRepo) Create(ctx context.Context, workspace *domain.Workspace) error {
	st, err := r.view(workspace.ID, true)
	if err != nil {
		return err
	}
	if st.workspace != nil {
		return fmt.Errorf("workspace %s already exists", workspace.ID)
	}
	ws := *workspace
	st.workspace = &ws
	return nil
}

func (r *workspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	st, err := r.view(id, false)
	if err != nil || st == nil || st.workspace == nil {
		return nil, err
	}
	ws := *st.workspace
	return &ws, nil
}

func (r *workspaceRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	var out []domain.Workspace
	for _, st := range r.store.snapshots() {
		if st.workspace == nil {
			continue
		}
		for _, m := range st.members {
			if m.UserID == userID {
				out = append(out, *st.workspace)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memberRepo struct {
	view viewFunc
}

func (r *memberRepo) Create(ctx context.Context, member *domain.Member) error {
	st, err := r.view(member.WorkspaceID, true)
	if err != nil {
		return err
	}
	for _, m := range st.members {
		if m.UserID == member.UserID || m.Email == member.Email {
			return fmt.Errorf("member for user %s already exists", member.UserID)
		}
	}
	st.members[member.ID] = *member
	return nil
}

func (r *memberRepo) GetByID(ctx context.Context, workspaceID, memberID uuid.UUID) (*domain.Member, error) {
	return r.find(workspaceID, func(m domain.Member) bool { return m.ID == memberID })
}

func (r *memberRepo) GetByUserID(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	return r.find(workspaceID, func(m domain.Member) bool { return m.UserID == userID })
}

func (r *memberRepo) GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Member, error) {
	email = domain.NormalizeEmail(email)
	return r.find(workspaceID, func(m domain.Member) bool { return m.Email == email })
}

func (r *memberRepo) find(workspaceID uuid.UUID, match func(domain.Member) bool) (*domain.Member, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	for _, m := range st.members {
		if match(m) {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memberRepo) Update(ctx context.Context, member *domain.Member) error {
	st, err := r.view(member.WorkspaceID, true)
	if err != nil {
		return err
	}
	if _, ok := st.members[member.ID]; !ok {
		return fmt.Errorf("member %s does not exist", member.ID)
	}
	st.members[member.ID] = *member
	return nil
}

func (r *memberRepo) Delete(ctx context.Context, workspaceID, memberID uuid.UUID) error {
	st, err := r.view(workspaceID, true)
	if err != nil {
		return err
	}
	delete(st.members, memberID)
	return nil
}

func (r *memberRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Member, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(st.members))
	for _, m := range st.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

type invitationRepo struct {
	store *Store
	view  viewFunc
}

func (r *invitationRepo) Create(ctx context.Context, invitation *domain.Invitation) error {
	st, err := r.view(invitation.WorkspaceID, true)
	if err != nil {
		return err
	}
	if invitation.Status == domain.InvitationPending {
		for _, inv := range st.invitations {
			if inv.Status == domain.InvitationPending && inv.Email == invitation.Email {
				return fmt.Errorf("pending invitation for %s already exists", invitation.Email)
			}
		}
	}
	st.invitations[invitation.ID] = *invitation
	return nil
}

func (r *invitationRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Invitation, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	inv, ok := st.invitations[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *invitationRepo) GetPendingByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Invitation, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	for _, inv := range st.invitations {
		if inv.Status == domain.InvitationPending && inv.Email == email {
			out := inv
			return &out, nil
		}
	}
	return nil, nil
}

func (r *invitationRepo) Update(ctx context.Context, invitation *domain.Invitation) error {
	st, err := r.view(invitation.WorkspaceID, true)
	if err != nil {
		return err
	}
	if _, ok := st.invitations[invitation.ID]; !ok {
		return fmt.Errorf("invitation %s does not exist", invitation.ID)
	}
	st.invitations[invitation.ID] = *invitation
	return nil
}

func (r *invitationRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	out := make([]domain.Invitation, 0, len(st.invitations))
	for _, inv := range st.invitations {
		out = append(out, inv)
	}
	sortInvitations(out)
	return out, nil
}

func (r *invitationRepo) ListStalePending(ctx context.Context, now time.Time, limit int) ([]domain.Invitation, error) {
	var out []domain.Invitation
	for _, st := range r.store.snapshots() {
		for _, inv := range st.invitations {
			if inv.Status == domain.InvitationPending && inv.IsExpiredAt(now) {
				out = append(out, inv)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortInvitations(out []domain.Invitation) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

type settingsRepo struct {
	view viewFunc
}

func (r *settingsRepo) Get(ctx context.Context, workspaceID uuid.UUID) (*domain.WorkspaceSettings, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil || st.settings == nil {
		return nil, err
	}
	s := *st.settings
	return &s, nil
}

func (r *settingsRepo) Save(ctx context.Context, settings *domain.WorkspaceSettings) error {
	st, err := r.view(settings.WorkspaceID, true)
	if err != nil {
		return err
	}
	s := *settings
	st.settings = &s
	return nil
}

type activityRepo struct {
	view viewFunc
}

func (r *activityRepo) Append(ctx context.Context, record *domain.ActivityRecord) error {
	st, err := r.view(record.WorkspaceID, true)
	if err != nil {
		return err
	}
	record.Seq = int64(len(st.activity)) + 1
	st.activity = append(st.activity, *record)
	return nil
}

func (r *activityRepo) Last(ctx context.Context, workspaceID uuid.UUID) (*domain.ActivityRecord, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil || len(st.activity) == 0 {
		return nil, err
	}
	last := st.activity[len(st.activity)-1]
	return &last, nil
}

func (r *activityRepo) ListAfter(ctx context.Context, workspaceID uuid.UUID, afterSeq int64, limit int) ([]domain.ActivityRecord, error) {
	st, err := r.view(workspaceID, false)
	if err != nil || st == nil {
		return nil, err
	}
	// Seq is 1-based and dense, so it doubles as an index.
	start := int(afterSeq)
	if start >= len(st.activity) {
		return []domain.ActivityRecord{}, nil
	}
	end := len(st.activity)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]domain.ActivityRecord, end-start)
	copy(out, st.activity[start:end])
	return out, nil
}
