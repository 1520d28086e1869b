package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
)

// TestStore is the suite every Store implementation must pass. walletID is
// the wallet the store was created for.
func TestStore(t *testing.T, store Store, walletID string) {
	t.Run("QueueRoundTrip", func(t *testing.T) { testQueueRoundTrip(t, store, walletID) })
	t.Run("LogDedupe", func(t *testing.T) { testLogDedupe(t, store, walletID) })
	t.Run("CursorAndFingerprint", func(t *testing.T) { testCursorAndFingerprint(t, store) })
	t.Run("ProjectionRoundTrip", func(t *testing.T) { testProjectionRoundTrip(t, store, walletID) })
	t.Run("ClearSyncedKeepsUnsynced", func(t *testing.T) { testClearSynced(t, store, walletID) })
}

func queuedEvent(walletID string, at time.Time) QueuedEvent {
	return QueuedEvent{
		Event: deptmaster.Event{
			ID:            uuid.NewString(),
			WalletID:      walletID,
			AggregateType: deptmaster.AggregateContact,
			AggregateID:   uuid.NewString(),
			EventType:     deptmaster.EventCreated,
			Data:          map[string]interface{}{"name": "Queued"},
			Timestamp:     at,
		},
	}
}

func testQueueRoundTrip(t *testing.T, store Store, walletID string) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	first := queuedEvent(walletID, now)
	second := queuedEvent(walletID, now.Add(time.Second))

	require.NoError(t, store.Enqueue(first))
	require.NoError(t, store.Enqueue(second))

	queue, err := store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.Event.ID, queue[0].Event.ID, "queue must drain in enqueue order")
	assert.False(t, queue[0].Synced)

	// Re-enqueueing with the same id replaces, not duplicates.
	first.Synced = true
	require.NoError(t, store.Enqueue(first))
	queue, err = store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 2)
	for _, qe := range queue {
		if qe.Event.ID == first.Event.ID {
			assert.True(t, qe.Synced)
		}
	}

	require.NoError(t, store.DeleteQueued(first.Event.ID))
	require.NoError(t, store.DeleteQueued(second.Event.ID))
	queue, err = store.Queue()
	require.NoError(t, err)
	assert.Len(t, queue, 0)
}

func testLogDedupe(t *testing.T, store Store, walletID string) {
	e := queuedEvent(walletID, time.Now().UTC()).Event
	e.Version = 1

	require.NoError(t, store.PutLog([]deptmaster.Event{e}))
	require.NoError(t, store.PutLog([]deptmaster.Event{e}))

	events, err := store.Log()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, 1, events[0].Version)

	require.NoError(t, store.ClearSynced())
}

func testCursorAndFingerprint(t *testing.T, store Store) {
	cursor, err := store.Cursor()
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SaveCursor(now))
	cursor, err = store.Cursor()
	require.NoError(t, err)
	assert.True(t, now.Equal(cursor))

	fingerprint, err := store.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, "", fingerprint)

	require.NoError(t, store.SaveFingerprint("abcd"))
	fingerprint, err = store.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, "abcd", fingerprint)

	require.NoError(t, store.ClearSynced())
}

func testProjectionRoundTrip(t *testing.T, store Store, walletID string) {
	p, err := store.Projection()
	require.NoError(t, err)
	assert.Equal(t, walletID, p.WalletID)
	assert.Len(t, p.Contacts, 0)

	contactID := uuid.NewString()
	p.Contacts[contactID] = &deptmaster.Contact{ID: contactID, WalletID: walletID, Name: "Stored", Deleted: true}
	require.NoError(t, store.SaveProjection(p))

	loaded, err := store.Projection()
	require.NoError(t, err)
	require.Contains(t, loaded.Contacts, contactID)
	assert.True(t, loaded.Contacts[contactID].Deleted, "tombstones must survive the round trip")

	require.NoError(t, store.ClearSynced())
}

func testClearSynced(t *testing.T, store Store, walletID string) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	synced := queuedEvent(walletID, now)
	synced.Synced = true
	unsynced := queuedEvent(walletID, now.Add(time.Second))

	require.NoError(t, store.Enqueue(synced))
	require.NoError(t, store.Enqueue(unsynced))
	require.NoError(t, store.PutLog([]deptmaster.Event{synced.Event}))
	require.NoError(t, store.SaveCursor(now))
	require.NoError(t, store.SaveFingerprint("abcd"))

	require.NoError(t, store.ClearSynced())

	queue, err := store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, unsynced.Event.ID, queue[0].Event.ID)

	events, err := store.Log()
	require.NoError(t, err)
	assert.Len(t, events, 0)

	cursor, err := store.Cursor()
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())

	fingerprint, err := store.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, "", fingerprint)

	require.NoError(t, store.DeleteQueued(unsynced.Event.ID))
}
