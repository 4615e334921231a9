package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/pkg/platform/audit"
	"marlin/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		SessionID: "sid",
		Action:    string(audit.EventExemptionCreated),
	})
	require.NoError(t, err)

	events := store.BySession("sid")
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventExemptionCreated), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is stamped on emit")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		SessionID: "sid",
		Action:    string(audit.EventSiteDetailsUpdated),
	})
	require.NoError(t, err)

	// Wait for async processing
	deadline := time.Now().Add(2 * time.Second)
	for len(store.BySession("sid")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	events := store.BySession("sid")
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSiteDetailsUpdated), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			SessionID: "sid",
			Action:    string(audit.EventSiteDetailsUpdated),
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	assert.Len(t, store.BySession("sid"), 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseIsDropped(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		SessionID: "sid",
		Action:    string(audit.EventSiteDetailsUpdated),
	})
	require.NoError(t, err)
	assert.Empty(t, store.BySession("sid"), "events after close are dropped")
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}
