package client

import (
	"sync"
	"time"

	"github.com/dark-cli/deptmaster"
)

// InMemStore keeps the session state in memory. It backs tests and
// throwaway sessions; durable clients use the bolt store.
type InMemStore struct {
	mutex sync.Mutex

	walletID    string
	queue       []QueuedEvent
	log         map[string]deptmaster.Event
	cursor      time.Time
	projection  []byte
	fingerprint string
}

func NewInMemStore(walletID string) *InMemStore {
	return &InMemStore{
		walletID: walletID,
		log:      map[string]deptmaster.Event{},
	}
}

func (s *InMemStore) Queue() ([]QueuedEvent, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	queue := make([]QueuedEvent, len(s.queue))
	copy(queue, s.queue)
	return queue, nil
}

func (s *InMemStore) Enqueue(qe QueuedEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, existing := range s.queue {
		if existing.Event.ID == qe.Event.ID {
			s.queue[i] = qe
			return nil
		}
	}
	s.queue = append(s.queue, qe)
	return nil
}

func (s *InMemStore) DeleteQueued(eventID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, existing := range s.queue {
		if existing.Event.ID == eventID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *InMemStore) Log() ([]deptmaster.Event, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	events := make([]deptmaster.Event, 0, len(s.log))
	for _, e := range s.log {
		events = append(events, e)
	}
	return events, nil
}

func (s *InMemStore) PutLog(events []deptmaster.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, e := range events {
		s.log[e.ID] = e
	}
	return nil
}

func (s *InMemStore) Cursor() (time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cursor, nil
}

func (s *InMemStore) SaveCursor(cursor time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cursor = cursor
	return nil
}

func (s *InMemStore) Projection() (*deptmaster.Projection, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.projection == nil {
		return deptmaster.NewProjection(s.walletID), nil
	}

	return unmarshalProjection(s.projection)
}

func (s *InMemStore) SaveProjection(p *deptmaster.Projection) error {
	data, err := marshalProjection(p)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.projection = data
	return nil
}

func (s *InMemStore) Fingerprint() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fingerprint, nil
}

func (s *InMemStore) SaveFingerprint(fp string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.fingerprint = fp
	return nil
}

func (s *InMemStore) ClearSynced() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	unsynced := make([]QueuedEvent, 0, len(s.queue))
	for _, qe := range s.queue {
		if !qe.Synced {
			unsynced = append(unsynced, qe)
		}
	}
	s.queue = unsynced
	s.log = map[string]deptmaster.Event{}
	s.cursor = time.Time{}
	s.projection = nil
	s.fingerprint = ""
	return nil
}
