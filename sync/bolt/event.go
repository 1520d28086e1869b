package bolt

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster"
)

var (
	eventBucket   = []byte("events")
	versionBucket = []byte("versions")
)

// EventStore persists the append-only log in a bolt database. Events are
// keyed wallet/event-id; the versions bucket tracks the last version handed
// out per aggregate. Bolt runs a single write transaction at a time, which
// is the per-aggregate serializer: the idempotency check, the version bump
// and the event write all commit atomically.
type EventStore struct {
	Driver *Driver

	now func() time.Time
}

func NewEventStore(driver *Driver) *EventStore {
	return &EventStore{
		Driver: driver,
		now:    time.Now,
	}
}

func eventKey(walletID, eventID string) []byte {
	return []byte(walletID + "/" + eventID)
}

func versionKey(walletID, aggregateID string) []byte {
	return []byte(walletID + "/" + aggregateID)
}

func (s *EventStore) Append(e deptmaster.Event) (deptmaster.AppendResult, error) {
	var result deptmaster.AppendResult

	err := s.Driver.store.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(eventBucket)

		if data := events.Get(eventKey(e.WalletID, e.ID)); data != nil {
			var existing deptmaster.Event
			if err := json.Unmarshal(data, &existing); err != nil {
				return err
			}
			if existing.EqualPayload(e) {
				result = deptmaster.AppendResult{EventID: e.ID, Status: deptmaster.StatusDuplicate}
			} else {
				result = deptmaster.AppendResult{
					EventID: e.ID,
					Status:  deptmaster.StatusRejected,
					Reason:  deptmaster.ReasonConflict,
				}
			}
			return nil
		}

		versions := tx.Bucket(versionBucket)
		vKey := versionKey(e.WalletID, e.AggregateID)
		version := 0
		if data := versions.Get(vKey); data != nil {
			version = int(binary.BigEndian.Uint64(data))
		}

		e.Version = version + 1
		e.Timestamp = s.now().UTC()

		vData := make([]byte, 8)
		binary.BigEndian.PutUint64(vData, uint64(e.Version))
		if err := versions.Put(vKey, vData); err != nil {
			return err
		}

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := events.Put(eventKey(e.WalletID, e.ID), data); err != nil {
			return err
		}

		result = deptmaster.AppendResult{EventID: e.ID, Status: deptmaster.StatusAccepted}
		return nil
	})
	if err != nil {
		return deptmaster.AppendResult{}, err
	}

	return result, nil
}

func (s *EventStore) Read(walletID string, since time.Time, filter deptmaster.EventFilter) ([]deptmaster.Event, error) {
	events, err := s.walletEvents(walletID)
	if err != nil {
		return nil, err
	}

	out := make([]deptmaster.Event, 0, len(events))
	for _, e := range events {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e)
	}
	deptmaster.SortEvents(out)
	return out, nil
}

func (s *EventStore) Get(walletID, eventID string) (deptmaster.Event, bool, error) {
	var e deptmaster.Event
	found := false
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(eventBucket).Get(eventKey(walletID, eventID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &e)
	})
	return e, found, err
}

func (s *EventStore) Aggregate(walletID, aggregateID string) ([]deptmaster.Event, error) {
	events, err := s.walletEvents(walletID)
	if err != nil {
		return nil, err
	}

	out := make([]deptmaster.Event, 0)
	for _, e := range events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	deptmaster.SortEvents(out)
	return out, nil
}

func (s *EventStore) LastForAggregate(walletID, aggregateID string) (deptmaster.Event, bool, error) {
	events, err := s.Aggregate(walletID, aggregateID)
	if err != nil || len(events) == 0 {
		return deptmaster.Event{}, false, err
	}
	return events[len(events)-1], true, nil
}

func (s *EventStore) walletEvents(walletID string) ([]deptmaster.Event, error) {
	prefix := []byte(walletID + "/")
	events := make([]deptmaster.Event, 0)

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(eventBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, data = c.Next() {
			var e deptmaster.Event
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
