package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/workspace-access/internal/domain"
)

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func checkAffected(res sql.Result, what string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s does not exist", what, id)
	}
	return nil
}

type workspaceRepo struct {
	q querier
}

func scanWorkspace(row scanner) (*domain.Workspace, error) {
	var (
		ws               domain.Workspace
		created, updated int64
	)
	if err := row.Scan(&ws.ID, &ws.Name, &created, &updated); err != nil {
		return nil, err
	}
	ws.CreatedAt = fromNanos(created)
	ws.UpdatedAt = fromNanos(updated)
	return &ws, nil
}

func (r *workspaceRepo) Create(ctx context.Context, workspace *domain.Workspace) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		workspace.ID, workspace.Name, toNanos(workspace.CreatedAt), toNanos(workspace.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (r *workspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	ws, err := scanWorkspace(r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM workspaces WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

func (r *workspaceRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT w.id, w.name, w.created_at, w.updated_at
		FROM workspaces w
		INNER JOIN workspace_members wm ON w.id = wm.workspace_id
		WHERE wm.user_id = ?
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []domain.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

const memberColumns = `id, workspace_id, user_id, email, display_name, role, status, joined_at, last_active_at, invited_by`

type memberRepo struct {
	q querier
}

func scanMember(row scanner) (*domain.Member, error) {
	var (
		m              domain.Member
		joined, active int64
		invitedBy      uuid.NullUUID
	)
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Email, &m.DisplayName,
		&m.Role, &m.Status, &joined, &active, &invitedBy)
	if err != nil {
		return nil, err
	}
	m.JoinedAt = fromNanos(joined)
	m.LastActiveAt = fromNanos(active)
	m.InvitedBy = fromNullUUID(invitedBy)
	return &m, nil
}

func (r *memberRepo) getOne(ctx context.Context, where string, args ...any) (*domain.Member, error) {
	m, err := scanMember(r.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM workspace_members WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (r *memberRepo) Create(ctx context.Context, m *domain.Member) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO workspace_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.WorkspaceID, m.UserID, m.Email, m.DisplayName, m.Role, m.Status,
		toNanos(m.JoinedAt), toNanos(m.LastActiveAt), nullUUID(m.InvitedBy))
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (r *memberRepo) GetByID(ctx context.Context, workspaceID, memberID uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = ? AND id = ?`, workspaceID, memberID)
}

func (r *memberRepo) GetByUserID(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = ? AND user_id = ?`, workspaceID, userID)
}

func (r *memberRepo) GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Member, error) {
	return r.getOne(ctx, `workspace_id = ? AND email = ?`, workspaceID, domain.NormalizeEmail(email))
}

func (r *memberRepo) Update(ctx context.Context, m *domain.Member) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE workspace_members
		SET display_name = ?, role = ?, status = ?, last_active_at = ?
		WHERE workspace_id = ? AND id = ?`,
		m.DisplayName, m.Role, m.Status, toNanos(m.LastActiveAt), m.WorkspaceID, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return checkAffected(res, "member", m.ID)
}

func (r *memberRepo) Delete(ctx context.Context, workspaceID, memberID uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM workspace_members WHERE workspace_id = ? AND id = ?`, workspaceID, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return checkAffected(res, "member", memberID)
}

func (r *memberRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Member, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM workspace_members WHERE workspace_id = ? ORDER BY joined_at, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

const invitationColumns = `id, workspace_id, email, role, inviter_id, status, message, created_at, expires_at, responded_at, replaces_id, replaced_by_id`

type invitationRepo struct {
	q querier
}

func scanInvitation(row scanner) (*domain.Invitation, error) {
	var (
		inv                  domain.Invitation
		created, expires     int64
		responded            sql.NullInt64
		replaces, replacedBy uuid.NullUUID
	)
	err := row.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.InviterID, &inv.Status,
		&inv.Message, &created, &expires, &responded, &replaces, &replacedBy)
	if err != nil {
		return nil, err
	}
	inv.CreatedAt = fromNanos(created)
	inv.ExpiresAt = fromNanos(expires)
	inv.RespondedAt = fromNullNanos(responded)
	inv.ReplacesID = fromNullUUID(replaces)
	inv.ReplacedByID = fromNullUUID(replacedBy)
	return &inv, nil
}

func (r *invitationRepo) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
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

func (r *invitationRepo) getOne(ctx context.Context, where string, args ...any) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func (r *invitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.WorkspaceID, inv.Email, inv.Role, inv.InviterID, inv.Status, inv.Message,
		toNanos(inv.CreatedAt), toNanos(inv.ExpiresAt), nullNanos(inv.RespondedAt),
		nullUUID(inv.ReplacesID), nullUUID(inv.ReplacedByID))
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *invitationRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Invitation, error) {
	return r.getOne(ctx, `workspace_id = ? AND id = ?`, workspaceID, id)
}

func (r *invitationRepo) GetPendingByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Invitation, error) {
	return r.getOne(ctx, `workspace_id = ? AND email = ? AND status = 'pending'`, workspaceID, domain.NormalizeEmail(email))
}

func (r *invitationRepo) Update(ctx context.Context, inv *domain.Invitation) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations
		SET status = ?, responded_at = ?, replaced_by_id = ?
		WHERE workspace_id = ? AND id = ?`,
		inv.Status, nullNanos(inv.RespondedAt), nullUUID(inv.ReplacedByID), inv.WorkspaceID, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return checkAffected(res, "invitation", inv.ID)
}

func (r *invitationRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	return r.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE workspace_id = ? ORDER BY created_at, id`, workspaceID)
}

func (r *invitationRepo) ListStalePending(ctx context.Context, now time.Time, limit int) ([]domain.Invitation, error) {
	return r.list(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE status = 'pending' AND expires_at <= ?
		ORDER BY expires_at, id
		LIMIT ?`, toNanos(now), limit)
}

type settingsRepo struct {
	q querier
}

func (r *settingsRepo) Get(ctx context.Context, workspaceID uuid.UUID) (*domain.WorkspaceSettings, error) {
	var (
		s       domain.WorkspaceSettings
		updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT workspace_id, visibility, invite_policy, default_role, allow_guest_access,
		       require_approval, enable_comments, enable_versioning, updated_at
		FROM workspace_settings WHERE workspace_id = ?`, workspaceID).Scan(
		&s.WorkspaceID, &s.Visibility, &s.InvitePolicy, &s.DefaultRole, &s.AllowGuestAccess,
		&s.RequireApproval, &s.EnableComments, &s.EnableVersioning, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	s.UpdatedAt = fromNanos(updated)
	return &s, nil
}

func (r *settingsRepo) Save(ctx context.Context, s *domain.WorkspaceSettings) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO workspace_settings (workspace_id, visibility, invite_policy, default_role,
			allow_guest_access, require_approval, enable_comments, enable_versioning, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (workspace_id) DO UPDATE SET
			visibility = excluded.visibility,
			invite_policy = excluded.invite_policy,
			default_role = excluded.default_role,
			allow_guest_access = excluded.allow_guest_access,
			require_approval = excluded.require_approval,
			enable_comments = excluded.enable_comments,
			enable_versioning = excluded.enable_versioning,
			updated_at = excluded.updated_at`,
		s.WorkspaceID, s.Visibility, s.InvitePolicy, s.DefaultRole, s.AllowGuestAccess,
		s.RequireApproval, s.EnableComments, s.EnableVersioning, toNanos(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

const activityColumns = `id, workspace_id, seq, actor_id, action, target_type, target_id, details, created_at`

type activityRepo struct {
	q querier
}

func scanActivity(row scanner) (*domain.ActivityRecord, error) {
	var (
		rec     domain.ActivityRecord
		actor   uuid.NullUUID
		details sql.NullString
		created int64
	)
	err := row.Scan(&rec.ID, &rec.WorkspaceID, &rec.Seq, &actor, &rec.Action,
		&rec.TargetType, &rec.TargetID, &details, &created)
	if err != nil {
		return nil, err
	}
	rec.ActorID = fromNullUUID(actor)
	rec.CreatedAt = fromNanos(created)
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &rec.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
	}
	return &rec, nil
}

func (r *activityRepo) Append(ctx context.Context, rec *domain.ActivityRecord) error {
	var details sql.NullString
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO activity_records (`+activityColumns+`)
		VALUES (?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM activity_records WHERE workspace_id = ?),
			?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		rec.ID, rec.WorkspaceID, rec.WorkspaceID, nullUUID(rec.ActorID), rec.Action,
		rec.TargetType, rec.TargetID, details, toNanos(rec.CreatedAt)).Scan(&rec.Seq)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (r *activityRepo) Last(ctx context.Context, workspaceID uuid.UUID) (*domain.ActivityRecord, error) {
	rec, err := scanActivity(r.q.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activity_records WHERE workspace_id = ? ORDER BY seq DESC LIMIT 1`, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last activity: %w", err)
	}
	return rec, nil
}

func (r *activityRepo) ListAfter(ctx context.Context, workspaceID uuid.UUID, afterSeq int64, limit int) ([]domain.ActivityRecord, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_records WHERE workspace_id = ? AND seq > ? ORDER BY seq LIMIT ?`,
		workspaceID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	out := []domain.ActivityRecord{}
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
