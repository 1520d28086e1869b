package deptmaster

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type AggregateType string

const (
	AggregateContact     AggregateType = "contact"
	AggregateTransaction AggregateType = "transaction"
)

type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
	EventUndo    EventType = "UNDO"
)

// UndoWindow is how long after an event a client may void it with an UNDO.
const UndoWindow = 5 * time.Second

// Event is the immutable unit of change. The id is client-generated so that
// retried pushes stay idempotent; Version and Timestamp are assigned by the
// event store at acceptance and are zero until then.
type Event struct {
	ID            string                 `json:"id"`
	WalletID      string                 `json:"wallet_id"`
	AggregateType AggregateType          `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	EventType     EventType              `json:"event_type"`
	Data          map[string]interface{} `json:"event_data"`
	Version       int                    `json:"version"`
	Timestamp     time.Time              `json:"timestamp"`
	ActorID       string                 `json:"actor_id,omitempty"`
}

// Validate checks the structural rules for an event payload. It does not
// look at permissions or at other events; those checks belong to the store
// and the sync service.
func (e Event) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("invalid event id %q", e.ID)
	}
	if _, err := uuid.Parse(e.AggregateID); err != nil {
		return fmt.Errorf("invalid aggregate id %q", e.AggregateID)
	}

	switch e.AggregateType {
	case AggregateContact, AggregateTransaction:
	default:
		return fmt.Errorf("invalid aggregate_type %q", e.AggregateType)
	}

	switch e.EventType {
	case EventCreated, EventUpdated, EventDeleted, EventUndo:
	default:
		return fmt.Errorf("invalid event_type %q", e.EventType)
	}

	switch e.EventType {
	case EventUndo:
		undone, _ := e.Data["undone_event_id"].(string)
		if undone == "" {
			return fmt.Errorf("UNDO events must carry undone_event_id")
		}
		if _, err := uuid.Parse(undone); err != nil {
			return fmt.Errorf("undone_event_id must be a UUID")
		}
	case EventCreated, EventUpdated:
		if e.AggregateType == AggregateContact {
			if e.EventType == EventCreated {
				if name, _ := e.Data["name"].(string); name == "" {
					return fmt.Errorf("CREATED contact events must carry name")
				}
			}
			return nil
		}

		// Transaction payloads. Amounts arrive as json numbers.
		if _, ok := numberField(e.Data, "amount"); !ok {
			return fmt.Errorf("transaction events must carry amount")
		}
		direction, _ := e.Data["direction"].(string)
		if !Direction(direction).Valid() {
			return fmt.Errorf("transaction direction must be owed or lent")
		}
		if e.EventType == EventCreated {
			contactID, _ := e.Data["contact_id"].(string)
			if _, err := uuid.Parse(contactID); err != nil {
				return fmt.Errorf("CREATED transaction events must carry a UUID contact_id")
			}
		}
	}
	return nil
}

// EqualPayload reports whether two events with the same id describe the same
// change. Stores use it to tell an idempotent retry (duplicate) from an id
// collision (conflict). Server-assigned fields are ignored.
func (e Event) EqualPayload(other Event) bool {
	if e.WalletID != other.WalletID ||
		e.AggregateType != other.AggregateType ||
		e.AggregateID != other.AggregateID ||
		e.EventType != other.EventType {
		return false
	}

	// json.Marshal writes map keys in sorted order, which makes the
	// comparison canonical.
	a, err := json.Marshal(e.Data)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other.Data)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// UndoneEventID returns the event id voided by an UNDO event, or "".
func (e Event) UndoneEventID() string {
	if e.EventType != EventUndo {
		return ""
	}
	undone, _ := e.Data["undone_event_id"].(string)
	return undone
}

func numberField(data map[string]interface{}, key string) (int64, bool) {
	switch v := data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// SortEvents orders events the one way everything folds and hashes them:
// timestamp, then version, then id. Wall clocks across replicas are not
// trusted on their own; version is assigned once at append time and the id
// breaks the remaining ties deterministically.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].Version != events[j].Version {
			return events[i].Version < events[j].Version
		}
		return events[i].ID < events[j].ID
	})
}

const digestDomain = "deptmaster/eventlog/v1"

// Digest computes the hash-check digest over an ordered, permission-filtered
// event stream. Two replicas seeing the same permitted events compute the
// same digest. The caller must pass events already in SortEvents order.
func Digest(events []Event) string {
	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	for _, e := range events {
		fmt.Fprintf(h, "%s\x00%d\x00", e.ID, e.Version)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EventFilter decides event visibility for one actor. Read and hash paths
// must share the same filter so pull results always match the digest.
type EventFilter func(Event) bool

// FilterEvents returns the events the filter admits, preserving order.
// A nil filter admits everything.
func FilterEvents(events []Event, filter EventFilter) []Event {
	if filter == nil {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if filter(e) {
			out = append(out, e)
		}
	}
	return out
}

// AppendStatus is the per-event outcome of a push.
type AppendStatus string

const (
	StatusAccepted  AppendStatus = "accepted"
	StatusDuplicate AppendStatus = "duplicate"
	StatusRejected  AppendStatus = "rejected"
)

// Rejection reason codes carried on the wire.
const (
	ReasonPermissionDenied = "permission_denied"
	ReasonInvalidAggregate = "invalid_aggregate"
	ReasonMalformedPayload = "malformed_payload"
	ReasonConflict         = "conflict"
)

// AppendResult reports what the store (or the service in front of it) did
// with one pushed event.
type AppendResult struct {
	EventID string       `json:"id"`
	Status  AppendStatus `json:"status"`
	Reason  string       `json:"reason,omitempty"`
}

// EventStore is the server-authoritative, append-only log. Implementations
// must serialize appends per aggregate so version assignment stays unique,
// and must keep Read consistent with the filter used for hashing.
type EventStore interface {
	Append(Event) (AppendResult, error)
	Read(walletID string, since time.Time, filter EventFilter) ([]Event, error)
	Get(walletID, eventID string) (Event, bool, error)
	Aggregate(walletID, aggregateID string) ([]Event, error)
	LastForAggregate(walletID, aggregateID string) (Event, bool, error)
}
