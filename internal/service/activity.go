package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// Auditor appends activity records inside a workspace transaction and hands
// committed records to the archive.
type Auditor struct {
	clock   clockwork.Clock
	archive domain.ActivityArchive
}

// NewAuditor creates a new auditor. archive may be nil.
func NewAuditor(clock clockwork.Clock, archive domain.ActivityArchive) *Auditor {
	return &Auditor{clock: clock, archive: archive}
}

// Append writes one record. Timestamps never go backwards within a
// workspace, so sequence order and time order agree.
func (a *Auditor) Append(ctx context.Context, tx domain.Repositories, workspaceID uuid.UUID, actorID *uuid.UUID, action string, target domain.Target, details map[string]any) (domain.ActivityRecord, error) {
	now := a.clock.Now().UTC()
	last, err := tx.Activity().Last(ctx, workspaceID)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("failed to read activity log: %w", err)
	}
	if last != nil && now.Before(last.CreatedAt) {
		now = last.CreatedAt
	}

	record := domain.ActivityRecord{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      action,
		TargetType:  target.Type,
		TargetID:    target.ID,
		Details:     details,
		CreatedAt:   now,
	}
	if err := tx.Activity().Append(ctx, &record); err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("failed to append activity: %w", err)
	}
	return record, nil
}

// Export forwards committed records to the archive. Failures are logged.
func (a *Auditor) Export(ctx context.Context, records ...domain.ActivityRecord) {
	if a.archive == nil || len(records) == 0 {
		return
	}
	if err := a.archive.Archive(ctx, records); err != nil {
		log.Error().Err(err).
			Str("workspace_id", records[0].WorkspaceID.String()).
			Int("records", len(records)).
			Msg("failed to archive activity records")
	}
}

// ActivityService exposes the audit log
type ActivityService struct {
	store   domain.Store
	auditor *Auditor
}

// NewActivityService creates a new activity service
func NewActivityService(store domain.Store, auditor *Auditor) *ActivityService {
	return &ActivityService{store: store, auditor: auditor}
}

// Record appends an externally reported action. Only active members may
// record, and the service-owned action namespaces are refused.
func (s *ActivityService) Record(ctx context.Context, workspaceID, actorUserID uuid.UUID, input domain.ActivityCreate) (*domain.ActivityRecord, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if domain.IsReservedAction(input.Action) {
		return nil, fmt.Errorf("%w: action %q is reserved", domain.ErrInvalidInput, input.Action)
	}

	var record domain.ActivityRecord
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		if _, err := loadActor(ctx, tx, workspaceID, actorUserID); err != nil {
			return err
		}
		var err error
		record, err = s.auditor.Append(ctx, tx, workspaceID, &actorUserID, input.Action, input.Target, input.Details)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Export(ctx, record)
	return &record, nil
}

// List returns records after cursor in commit order. The returned cursor
// always points after the last record seen, so callers can poll with it.
func (s *ActivityService) List(ctx context.Context, workspaceID, actorUserID uuid.UUID, cursor string, limit int) (*domain.ActivityPage, error) {
	afterSeq, err := domain.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	if _, err := loadActor(ctx, s.store, workspaceID, actorUserID); err != nil {
		return nil, err
	}

	records, err := s.store.Activity().ListAfter(ctx, workspaceID, afterSeq, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	page := &domain.ActivityPage{NextCursor: cursor}
	if len(records) > limit {
		records = records[:limit]
		page.HasMore = true
	}
	page.Records = records
	if len(records) > 0 {
		page.NextCursor = domain.EncodeCursor(records[len(records)-1].Seq)
	}
	return page, nil
}
