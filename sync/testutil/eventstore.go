package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
)

func newContactEvent(walletID, aggregateID string, t deptmaster.EventType, data map[string]interface{}) deptmaster.Event {
	return deptmaster.Event{
		ID:            uuid.NewString(),
		WalletID:      walletID,
		AggregateType: deptmaster.AggregateContact,
		AggregateID:   aggregateID,
		EventType:     t,
		Data:          data,
	}
}

// TestEventStore exercises the append/read contract every event store must
// honor: server-assigned versions, idempotent appends, conflict rejection,
// ordered reads and per-aggregate lookups.
func TestEventStore(t *testing.T, store deptmaster.EventStore) {
	walletID := uuid.NewString()
	contactID := uuid.NewString()

	created := newContactEvent(walletID, contactID, deptmaster.EventCreated, map[string]interface{}{"name": "Carol"})
	updated := newContactEvent(walletID, contactID, deptmaster.EventUpdated, map[string]interface{}{"name": "Carol Smith"})

	// Versions count up per aggregate
	result, err := store.Append(created)
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusAccepted, result.Status)

	result, err = store.Append(updated)
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusAccepted, result.Status)

	events, err := store.Read(walletID, time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamps are assigned at append")

	// A second aggregate starts at version 1 again
	otherContact := uuid.NewString()
	result, err = store.Append(newContactEvent(walletID, otherContact, deptmaster.EventCreated, map[string]interface{}{"name": "Bob"}))
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusAccepted, result.Status)

	events, err = store.Aggregate(walletID, otherContact)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Version)

	// Retrying the exact same event is a duplicate, not an error
	result, err = store.Append(created)
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusDuplicate, result.Status)

	// Same id with different data is an id collision
	collision := created
	collision.Data = map[string]interface{}{"name": "Mallory"}
	result, err = store.Append(collision)
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusRejected, result.Status)
	assert.Equal(t, deptmaster.ReasonConflict, result.Reason)

	// The log did not grow from the duplicate or the collision
	events, err = store.Read(walletID, time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	// Get by id
	e, found, err := store.Get(walletID, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.ID, e.ID)
	assert.Equal(t, "Carol", e.Data["name"])

	_, found, err = store.Get(walletID, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, found)

	// LastForAggregate sees the latest fold input
	last, found, err := store.LastForAggregate(walletID, contactID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated.ID, last.ID)

	// Incremental reads cut at since, inclusively
	since := events[len(events)-1].Timestamp
	tail, err := store.Read(walletID, since, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, tail, "since cut is inclusive")
	for _, e := range tail {
		assert.False(t, e.Timestamp.Before(since))
	}

	// Filters narrow reads
	filtered, err := store.Read(walletID, time.Time{}, func(e deptmaster.Event) bool {
		return e.AggregateID == contactID
	})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	// Wallets are isolated
	events, err = store.Read(uuid.NewString(), time.Time{}, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestProjectionStore exercises the save/load/delete round trip.
func TestProjectionStore(t *testing.T, store deptmaster.ProjectionStore) {
	walletID := uuid.NewString()
	contactID := uuid.NewString()

	// A wallet never saved loads as an empty projection
	p, err := store.Load(walletID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Empty(t, p.Contacts)

	p.Contacts[contactID] = &deptmaster.Contact{
		ID:       contactID,
		WalletID: walletID,
		Name:     "Carol",
	}
	require.NoError(t, store.Save(p))

	loaded, err := store.Load(walletID)
	require.NoError(t, err)
	require.Contains(t, loaded.Contacts, contactID)
	assert.Equal(t, "Carol", loaded.Contacts[contactID].Name)

	require.NoError(t, store.Delete(walletID))
	p, err = store.Load(walletID)
	require.NoError(t, err)
	assert.Empty(t, p.Contacts)
}
