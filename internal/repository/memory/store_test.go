package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/repository/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store { return NewStore() })
}

func TestCommittedViewRejectsWrites(t *testing.T) {
	store := NewStore()
	err := store.Workspaces().Create(context.Background(), &domain.Workspace{ID: uuid.New(), Name: "x"})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestTransactionBoundToOneWorkspace(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	bound := uuid.New()

	err := store.WithinWorkspace(ctx, bound, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Workspaces().Create(ctx, &domain.Workspace{ID: uuid.New(), Name: "elsewhere"})
	})
	assert.Error(t, err)
}

func TestCancelledContextSkipsTransaction(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithinWorkspace(ctx, uuid.New(), func(ctx context.Context, tx domain.Repositories) error {
		called = true
		return nil
	})
	require.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestFailedAppendDoesNotLeakIntoLaterTransactions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	wsID := uuid.New()

	require.NoError(t, store.WithinWorkspace(ctx, wsID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Workspaces().Create(ctx, &domain.Workspace{ID: wsID, Name: "ws"})
	}))

	boom := errors.New("boom")
	err := store.WithinWorkspace(ctx, wsID, func(ctx context.Context, tx domain.Repositories) error {
		if err := tx.Activity().Append(ctx, &domain.ActivityRecord{ID: uuid.New(), WorkspaceID: wsID, Action: "discarded"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.WithinWorkspace(ctx, wsID, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Activity().Append(ctx, &domain.ActivityRecord{ID: uuid.New(), WorkspaceID: wsID, Action: "kept"})
	}))

	records, err := store.Activity().ListAfter(ctx, wsID, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Action)
	assert.Equal(t, int64(1), records[0].Seq)
}

func (s *Store) lockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locks)
}

func TestUnknownWorkspacesLeaveNoLocks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		err := store.WithinWorkspace(ctx, uuid.New(), func(ctx context.Context, tx domain.Repositories) error {
			return domain.ErrNotFound
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Zero(t, store.lockCount())
}

func TestWaitersShareOneLock(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	wsID := uuid.New()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinWorkspace(ctx, wsID, func(ctx context.Context, tx domain.Repositories) error {
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				inside--
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, store.lockCount())
}
