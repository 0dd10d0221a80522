package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/config"
	"github.com/Rrens/workspace-access/internal/domain"
)

func TestDocumentKeepsSystemActorEmpty(t *testing.T) {
	rec := domain.ActivityRecord{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Seq:         3,
		Action:      domain.ActivityInvitationExpired,
		TargetType:  domain.TargetInvitation,
		TargetID:    uuid.NewString(),
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	doc := toDocument(rec)
	assert.Nil(t, doc.ActorID)
	assert.Equal(t, rec.ID.String(), doc.ID)

	back, err := doc.record()
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestDocumentRejectsCorruptIDs(t *testing.T) {
	doc := toDocument(domain.ActivityRecord{ID: uuid.New(), WorkspaceID: uuid.New()})
	doc.WorkspaceID = "not-a-uuid"

	_, err := doc.record()
	assert.Error(t, err)
}

func TestArchiveRoundTrip(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()

	archive, err := NewArchive(ctx, config.ArchiveConfig{
		URI:        uri,
		Database:   "workspace_access_test",
		Collection: "activity_" + uuid.NewString()[:8],
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		archive.collection.Drop(context.Background())
		archive.Close()
	})

	workspaceID := uuid.New()
	actor := uuid.New()
	records := []domain.ActivityRecord{
		{ID: uuid.New(), WorkspaceID: workspaceID, Seq: 1, ActorID: &actor, Action: domain.ActivityWorkspaceCreated, TargetType: domain.TargetWorkspace, TargetID: workspaceID.String(), CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
		{ID: uuid.New(), WorkspaceID: workspaceID, Seq: 2, Action: domain.ActivityInvitationExpired, TargetType: domain.TargetInvitation, TargetID: "x", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
	}

	require.NoError(t, archive.Archive(ctx, records))
	// exporting the same records again is not an error
	require.NoError(t, archive.Archive(ctx, records))

	got, err := archive.ListAfter(ctx, workspaceID, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	require.NotNil(t, got[0].ActorID)
	assert.Equal(t, actor, *got[0].ActorID)
	assert.Nil(t, got[1].ActorID)
}
