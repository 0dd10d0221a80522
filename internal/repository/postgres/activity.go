package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/workspace-access/internal/domain"
)

const activityColumns = `id, workspace_id, seq, actor_id, action, target_type, target_id, details, created_at`

// ActivityRepository handles audit log data access
type ActivityRepository struct {
	q querier
}

func scanActivity(row pgx.Row) (*domain.ActivityRecord, error) {
	var (
		rec     domain.ActivityRecord
		details []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.WorkspaceID,
		&rec.Seq,
		&rec.ActorID,
		&rec.Action,
		&rec.TargetType,
		&rec.TargetID,
		&details,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
	}
	return &rec, nil
}

// Append stores a record with the next sequence number of its workspace.
// Callers hold the workspace lock, so MAX(seq)+1 cannot race.
func (r *ActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	var details []byte
	if len(record.Details) > 0 {
		var err error
		details, err = json.Marshal(record.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO activity_records (` + activityColumns + `)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM activity_records WHERE workspace_id = $2),
			$3, $4, $5, $6, $7, $8)
		RETURNING seq
	`

	err := r.q.QueryRow(ctx, query,
		record.ID,
		record.WorkspaceID,
		record.ActorID,
		record.Action,
		record.TargetType,
		record.TargetID,
		details,
		record.CreatedAt,
	).Scan(&record.Seq)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// Last returns the most recent record of a workspace
func (r *ActivityRepository) Last(ctx context.Context, workspaceID uuid.UUID) (*domain.ActivityRecord, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity_records
		WHERE workspace_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`

	rec, err := scanActivity(r.q.QueryRow(ctx, query, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last activity: %w", err)
	}
	return rec, nil
}

// ListAfter returns up to limit records with seq greater than afterSeq
func (r *ActivityRepository) ListAfter(ctx context.Context, workspaceID uuid.UUID, afterSeq int64, limit int) ([]domain.ActivityRecord, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity_records
		WHERE workspace_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, workspaceID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	records := []domain.ActivityRecord{}
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
