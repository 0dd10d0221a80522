package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SettingsService reads and updates workspace policy
type SettingsService struct {
	store      domain.Store
	authorizer *Authorizer
	auditor    *Auditor
	clock      clockwork.Clock
}

// NewSettingsService creates a new settings service
func NewSettingsService(store domain.Store, authorizer *Authorizer, auditor *Auditor, clock clockwork.Clock) *SettingsService {
	return &SettingsService{
		store:      store,
		authorizer: authorizer,
		auditor:    auditor,
		clock:      clock,
	}
}

// GetSettings returns the workspace settings to any active member
func (s *SettingsService) GetSettings(ctx context.Context, workspaceID, actorUserID uuid.UUID) (*domain.WorkspaceSettings, error) {
	if _, err := loadActor(ctx, s.store, workspaceID, actorUserID); err != nil {
		return nil, err
	}
	return loadSettings(ctx, s.store, workspaceID, s.clock.Now().UTC())
}

// UpdateSettings applies a partial update. An update that changes nothing is
// not recorded.
func (s *SettingsService) UpdateSettings(ctx context.Context, workspaceID, actorUserID uuid.UUID, input domain.SettingsUpdate) (*domain.WorkspaceSettings, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		settings *domain.WorkspaceSettings
		record   *domain.ActivityRecord
		changed  []string
	)
	err := s.store.WithinWorkspace(ctx, workspaceID, func(ctx context.Context, tx domain.Repositories) error {
		actor, err := loadActor(ctx, tx, workspaceID, actorUserID)
		if err != nil {
			return err
		}
		if err := s.authorizer.Require(actor, domain.ActionAdminSystemSettings); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		settings, err = loadSettings(ctx, tx, workspaceID, now)
		if err != nil {
			return err
		}

		changed = input.Apply(settings)
		if len(changed) == 0 {
			return nil
		}
		settings.UpdatedAt = now
		if err := tx.Settings().Save(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}

		r, err := s.auditor.Append(ctx, tx, workspaceID, &actorUserID, domain.ActivitySettingsUpdated,
			domain.Target{Type: domain.TargetSettings, ID: workspaceID.String()},
			map[string]any{"changed": changed})
		if err != nil {
			return err
		}
		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if record != nil {
		s.auditor.Export(ctx, *record)
		log.Info().
			Str("workspace_id", workspaceID.String()).
			Strs("changed", changed).
			Msg("workspace settings updated")
	}
	return settings, nil
}
