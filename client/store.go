package client

import (
	"encoding/json"
	"time"

	"github.com/dark-cli/deptmaster"
)

// QueuedEvent is a locally created event waiting in the outbound queue.
// Synced flips once the server has accepted it; the entry is removed when
// the event comes back in a pull with its server-assigned metadata.
type QueuedEvent struct {
	Event  deptmaster.Event `json:"event"`
	Synced bool             `json:"synced"`
}

// Store is the session's durable state for one wallet: the outbound queue,
// the pulled event log, the sync cursor, the folded projection and the
// cached permission fingerprint.
type Store interface {
	// Queue returns the queued events in enqueue order.
	Queue() ([]QueuedEvent, error)
	// Enqueue inserts, or replaces by event id.
	Enqueue(QueuedEvent) error
	DeleteQueued(eventID string) error

	// Log returns the pulled events; callers sort before folding.
	Log() ([]deptmaster.Event, error)
	// PutLog upserts pulled events by id.
	PutLog([]deptmaster.Event) error

	Cursor() (time.Time, error)
	SaveCursor(time.Time) error

	Projection() (*deptmaster.Projection, error)
	SaveProjection(*deptmaster.Projection) error

	Fingerprint() (string, error)
	SaveFingerprint(string) error

	// ClearSynced drops everything the server can give back: the log, the
	// cursor, the projection, the fingerprint and the synced queue entries.
	// Unsynced queue entries survive.
	ClearSynced() error
}

// marshalProjection round-trips the full projection, tombstones included,
// unlike Projection.Marshal which renders the active view.
func marshalProjection(p *deptmaster.Projection) ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalProjection(data []byte) (*deptmaster.Projection, error) {
	var p deptmaster.Projection
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Contacts == nil {
		p.Contacts = map[string]*deptmaster.Contact{}
	}
	if p.Transactions == nil {
		p.Transactions = map[string]*deptmaster.Transaction{}
	}
	return &p, nil
}
