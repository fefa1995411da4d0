package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	claimID := id.NewClaimID()
	err := pub.Emit(context.Background(), audit.Event{
		ClaimID: claimID,
		Action:  string(audit.EventClaimCreated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), claimID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventClaimCreated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	claimID := id.NewClaimID()
	err := pub.Emit(context.Background(), audit.Event{
		ClaimID: claimID,
		Action:  string(audit.EventDamageAdded),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), claimID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	claimID := id.NewClaimID()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			ClaimID: claimID,
			Action:  string(audit.EventDamageAdded),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByClaim(context.Background(), claimID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{ClaimID: id.NewClaimID(), Action: "x"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		dropped int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				ClaimID: id.NewClaimID(),
				Action:  string(audit.EventDamageAdded),
			})
			if errors.Is(err, ErrBufferFull) {
				mu.Lock()
				dropped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	pub.Close()

	assert.Equal(t, 50, store.Len()+dropped, "every event is either stored or reported dropped")
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	claimID := id.NewClaimID()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{ClaimID: claimID, Action: string(audit.EventClaimUpdated)}))

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{ClaimID: claimID, Action: string(audit.EventClaimUpdated), Timestamp: custom}))

	events, err := pub.List(context.Background(), claimID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, custom, events[1].Timestamp)
}

type appendOnly struct{}

func (appendOnly) Append(context.Context, audit.Event) error { return nil }

func TestPublisher_ListRequiresReader(t *testing.T) {
	pub := NewPublisher(appendOnly{})
	assert.False(t, pub.Listable())
	_, err := pub.List(context.Background(), id.NewClaimID())
	assert.ErrorIs(t, err, ErrNotListable)

	assert.True(t, NewPublisher(memory.NewInMemoryStore()).Listable())
}
