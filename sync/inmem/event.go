package inmem

import (
	"sync"
	"time"

	"github.com/dark-cli/deptmaster"
)

// InMemEventStore keeps the whole log in memory. The mutex is the
// per-aggregate serializer: version assignment and the idempotency check
// happen under it, so two concurrent appends to one aggregate can never get
// the same version.
type InMemEventStore struct {
	mu     sync.Mutex
	events []deptmaster.Event

	now func() time.Time
}

func NewInMemEventStore() *InMemEventStore {
	return &InMemEventStore{
		events: make([]deptmaster.Event, 0),
		now:    time.Now,
	}
}

func (s *InMemEventStore) Append(e deptmaster.Event) (deptmaster.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events {
		if existing.WalletID != e.WalletID || existing.ID != e.ID {
			continue
		}
		if existing.EqualPayload(e) {
			return deptmaster.AppendResult{EventID: e.ID, Status: deptmaster.StatusDuplicate}, nil
		}
		return deptmaster.AppendResult{
			EventID: e.ID,
			Status:  deptmaster.StatusRejected,
			Reason:  deptmaster.ReasonConflict,
		}, nil
	}

	version := 0
	for _, existing := range s.events {
		if existing.WalletID == e.WalletID && existing.AggregateID == e.AggregateID && existing.Version > version {
			version = existing.Version
		}
	}

	e.Version = version + 1
	e.Timestamp = s.now().UTC()
	s.events = append(s.events, e)

	return deptmaster.AppendResult{EventID: e.ID, Status: deptmaster.StatusAccepted}, nil
}

// Read returns the wallet's permitted events with timestamp >= since, in
// SortEvents order. The cut is inclusive so that clients polling with their
// last seen timestamp cannot miss an event sharing it; they dedupe by id.
func (s *InMemEventStore) Read(walletID string, since time.Time, filter deptmaster.EventFilter) ([]deptmaster.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]deptmaster.Event, 0)
	for _, e := range s.events {
		if e.WalletID != walletID {
			continue
		}
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

func (s *InMemEventStore) Get(walletID, eventID string) (deptmaster.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.WalletID == walletID && e.ID == eventID {
			return e, true, nil
		}
	}
	return deptmaster.Event{}, false, nil
}

func (s *InMemEventStore) Aggregate(walletID, aggregateID string) ([]deptmaster.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]deptmaster.Event, 0)
	for _, e := range s.events {
		if e.WalletID == walletID && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	deptmaster.SortEvents(out)
	return out, nil
}

func (s *InMemEventStore) LastForAggregate(walletID, aggregateID string) (deptmaster.Event, bool, error) {
	events, err := s.Aggregate(walletID, aggregateID)
	if err != nil || len(events) == 0 {
		return deptmaster.Event{}, false, err
	}
	return events[len(events)-1], true, nil
}
