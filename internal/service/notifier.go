package service

import (
	"context"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/rs/zerolog/log"
)

// LogNotifier writes invitation events to the application log. It is used
// when no message broker is configured.
type LogNotifier struct{}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the event
func (n *LogNotifier) Notify(_ context.Context, event domain.InvitationEvent) error {
	log.Info().
		Str("event", event.Type).
		Str("invitation_id", event.Invitation.ID.String()).
		Str("workspace_id", event.Invitation.WorkspaceID.String()).
		Str("email", event.Invitation.Email).
		Time("expires_at", event.Invitation.ExpiresAt).
		Msg("invitation notification")
	return nil
}
