package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.FlushDB(context.Background()).Err())

	client := NewClientFrom(rdb)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRateLimiterWindow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 10, 0, time.UTC))
	limiter := NewRateLimiter(client, clock, 2, 1)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 1, 0, 0, time.UTC), d.ResetAt)

	other, err := limiter.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	clock.Advance(time.Minute)
	d, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestStreamNotifierPublishes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	notifier := NewStreamNotifier(client, "test:invitations", 100)

	event := domain.InvitationEvent{
		Type: domain.InvitationEventCreated,
		Invitation: domain.Invitation{
			ID:          uuid.New(),
			WorkspaceID: uuid.New(),
			Email:       "guest@acme.test",
			Role:        domain.RoleEditor,
			Status:      domain.InvitationPending,
		},
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, notifier.Notify(ctx, event))

	entries, err := client.rdb.XRange(ctx, "test:invitations", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.InvitationEventCreated, entries[0].Values["type"])
	assert.Equal(t, "guest@acme.test", entries[0].Values["email"])

	var decoded domain.InvitationEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &decoded))
	assert.Equal(t, event.Invitation.ID, decoded.Invitation.ID)
}
