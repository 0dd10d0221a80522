package domain

import (
	"context"
	"time"
)

// Invitation event types delivered to the notification collaborator
const (
	InvitationEventCreated = "invitation.created"
	InvitationEventResent  = "invitation.resent"
	InvitationEventRevoked = "invitation.revoked"
)

// InvitationEvent describes an invitation change that should reach the invitee
type InvitationEvent struct {
	Type       string     `json:"type"`
	Invitation Invitation `json:"invitation"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Notifier delivers invitation events out of band. Failures never roll back
// the domain change.
type Notifier interface {
	Notify(ctx context.Context, event InvitationEvent) error
}

// ActivityArchive receives committed activity records for long-term storage
type ActivityArchive interface {
	Archive(ctx context.Context, records []ActivityRecord) error
}
