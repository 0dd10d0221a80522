package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Rrens/workspace-access/internal/domain"
)

// StreamNotifier publishes invitation events to a Redis stream for the
// delivery workers to consume
type StreamNotifier struct {
	client    *Client
	stream    string
	maxLength int64
}

// NewStreamNotifier creates a notifier writing to stream. A positive
// maxLength trims the stream approximately to that many entries.
func NewStreamNotifier(client *Client, stream string, maxLength int64) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, maxLength: maxLength}
}

// Notify appends the event to the stream
func (n *StreamNotifier) Notify(ctx context.Context, event domain.InvitationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"type":          event.Type,
			"workspace_id":  event.Invitation.WorkspaceID.String(),
			"invitation_id": event.Invitation.ID.String(),
			"email":         event.Invitation.Email,
			"payload":       string(payload),
		},
	}
	if n.maxLength > 0 {
		args.MaxLen = n.maxLength
		args.Approx = true
	}

	if err := n.client.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish invitation event: %w", err)
	}
	return nil
}
