package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/log"
)

// Session is one replica of one wallet. Mutations go through the local
// queue first so they survive being offline; Sync exchanges state with the
// server and refolds the local projection. Sessions are independent: a
// process may hold several, for different wallets or different servers.
type Session struct {
	api      *API
	store    Store
	walletID string

	logger  log.Logger
	backoff *Backoff
	now     func() time.Time

	mu sync.Mutex
}

func NewSession(api *API, store Store, walletID string, logger log.Logger) *Session {
	return &Session{
		api:      api,
		store:    store,
		walletID: walletID,

		logger:  logger.WithField("wallet", walletID),
		backoff: NewBackoff(time.Second, time.Minute),
		now:     time.Now,
	}
}

// Projection returns the local folded state.
func (s *Session) Projection() (*deptmaster.Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Projection()
}

// CreateContact queues a CREATED event and returns the new contact id.
func (s *Session) CreateContact(fields map[string]interface{}) (string, error) {
	contactID := uuid.NewString()
	e := s.newEvent(deptmaster.AggregateContact, contactID, deptmaster.EventCreated, fields)
	return contactID, s.mutate(e)
}

func (s *Session) UpdateContact(contactID string, fields map[string]interface{}) error {
	e := s.newEvent(deptmaster.AggregateContact, contactID, deptmaster.EventUpdated, fields)
	return s.mutate(e)
}

func (s *Session) DeleteContact(contactID string) error {
	e := s.newEvent(deptmaster.AggregateContact, contactID, deptmaster.EventDeleted, map[string]interface{}{})
	return s.mutate(e)
}

// CreateTransaction queues a CREATED event under the given contact and
// returns the new transaction id.
func (s *Session) CreateTransaction(contactID string, fields map[string]interface{}) (string, error) {
	transactionID := uuid.NewString()

	data := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["contact_id"] = contactID

	e := s.newEvent(deptmaster.AggregateTransaction, transactionID, deptmaster.EventCreated, data)
	return transactionID, s.mutate(e)
}

func (s *Session) UpdateTransaction(transactionID string, fields map[string]interface{}) error {
	e := s.newEvent(deptmaster.AggregateTransaction, transactionID, deptmaster.EventUpdated, fields)
	return s.mutate(e)
}

// DeleteTransaction removes a transaction. When its last event is still
// inside the undo window the deletion is expressed as an UNDO, so a fat
// finger right after creation leaves no tombstone behind.
func (s *Session) DeleteTransaction(transactionID string) error {
	s.mu.Lock()
	last, found, err := s.lastForAggregate(transactionID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if found && s.now().UTC().Sub(last.Timestamp) <= deptmaster.UndoWindow {
		e := s.newEvent(deptmaster.AggregateTransaction, transactionID, deptmaster.EventUndo,
			map[string]interface{}{"undone_event_id": last.ID})
		return s.mutate(e)
	}

	e := s.newEvent(deptmaster.AggregateTransaction, transactionID, deptmaster.EventDeleted, map[string]interface{}{})
	return s.mutate(e)
}

// Undo voids the last event of an aggregate, contact or transaction, while
// it is still inside the undo window.
func (s *Session) Undo(aggregateType deptmaster.AggregateType, aggregateID string) error {
	s.mu.Lock()
	last, found, err := s.lastForAggregate(aggregateID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if !found {
		return errors.New("nothing to undo", errors.NotFound())
	}
	if s.now().UTC().Sub(last.Timestamp) > deptmaster.UndoWindow {
		return errors.New("undo window expired", errors.WithCode(http.StatusConflict))
	}

	e := s.newEvent(aggregateType, aggregateID, deptmaster.EventUndo,
		map[string]interface{}{"undone_event_id": last.ID})
	return s.mutate(e)
}

// Sync exchanges state with the server: flush the queue, detect permission
// changes, pull, and verify convergence against the server digest. Queued
// events survive any network failure; only events the server explicitly
// rejected are dropped, and that rejection is the returned error.
func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rejected, err := s.pushQueue(ctx)
	if err != nil {
		return err
	}

	if err := s.checkPermissions(ctx); err != nil {
		return err
	}

	if err := s.pull(ctx); err != nil {
		return err
	}

	// The digest covers server-acknowledged events only; a mismatch after
	// a pull means the permitted histories diverged and the local log
	// cannot be trusted any more.
	hash, err := s.api.Hash(ctx, s.walletID)
	if err != nil {
		return err
	}
	localDigest, err := s.logDigest()
	if err != nil {
		return err
	}
	if localDigest != hash.Digest {
		s.logger.Debugf("digest mismatch, full resync")
		if err := s.fullResync(ctx); err != nil {
			return err
		}
	}

	if err := s.refold(); err != nil {
		return err
	}
	return rejectionError(rejected)
}

// Run syncs until the context is cancelled: once at startup, after every
// server notification, and on a fixed interval as a safety net. Failed
// attempts back off exponentially; a success resets the schedule.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	notifications := s.notifications(ctx)

	wait := interval
	for {
		if err := s.Sync(ctx); err != nil {
			wait = s.backoff.Next()
			s.logger.Errorf("sync failed, retrying in %s: %v", wait, err)
		} else {
			s.backoff.Reset()
			wait = interval
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-notifications:
			if !ok {
				// Stream lost; the interval takes over.
				notifications = nil
			}
		case <-time.After(wait):
		}
	}
}

// notifications opens the server's wake-up stream. Not being able to is not
// an error: the session falls back to interval polling.
func (s *Session) notifications(ctx context.Context) <-chan struct{} {
	notifications, err := s.api.Notifications(ctx, s.walletID)
	if err != nil {
		s.logger.Debugf("notification stream unavailable, polling only: %v", err)
		return nil
	}
	return notifications
}

func (s *Session) newEvent(aggregateType deptmaster.AggregateType, aggregateID string, eventType deptmaster.EventType, data map[string]interface{}) deptmaster.Event {
	return deptmaster.Event{
		ID:            uuid.NewString(),
		WalletID:      s.walletID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Data:          data,

		// Local timestamp, used only to order the event after pulled
		// history until the server assigns the authoritative one.
		Timestamp: s.now().UTC(),
	}
}

// mutate queues the event, refolds the local projection and attempts an
// immediate push. Being offline is not an error; an explicit server
// rejection is.
func (s *Session) mutate(e deptmaster.Event) error {
	if err := e.Validate(); err != nil {
		return errors.New("invalid event", errors.BadRequest(), errors.WithCause(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Enqueue(QueuedEvent{Event: e}); err != nil {
		return err
	}
	if err := s.refold(); err != nil {
		return err
	}

	rejected, err := s.pushQueue(context.Background())
	if err != nil {
		s.logger.Debugf("push after mutation failed, queue kept: %v", err)
		return nil
	}
	if len(rejected) > 0 {
		if err := s.refold(); err != nil {
			return err
		}
	}
	return rejectionError(rejected)
}

// pushQueue sends the unsynced queue entries and returns the results the
// server explicitly rejected; their events were dropped from the queue. A
// transport failure drops nothing and the caller may retry.
func (s *Session) pushQueue(ctx context.Context) ([]deptmaster.AppendResult, error) {
	queue, err := s.store.Queue()
	if err != nil {
		return nil, err
	}

	pending := make([]deptmaster.Event, 0, len(queue))
	for _, qe := range queue {
		if !qe.Synced {
			pending = append(pending, qe.Event)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	results, err := s.api.Push(ctx, s.walletID, pending)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]deptmaster.Event, len(pending))
	for _, e := range pending {
		byID[e.ID] = e
	}

	var rejected []deptmaster.AppendResult
	for _, result := range results {
		e, ok := byID[result.EventID]
		if !ok {
			continue
		}

		switch result.Status {
		case deptmaster.StatusAccepted, deptmaster.StatusDuplicate:
			if err := s.store.Enqueue(QueuedEvent{Event: e, Synced: true}); err != nil {
				return rejected, err
			}
		case deptmaster.StatusRejected:
			if err := s.store.DeleteQueued(e.ID); err != nil {
				return rejected, err
			}
			rejected = append(rejected, result)
		}
	}
	return rejected, nil
}

// rejectionError folds explicit rejections into the error reported to the
// caller. Permission denials trump other reasons.
func rejectionError(rejected []deptmaster.AppendResult) error {
	if len(rejected) == 0 {
		return nil
	}
	for _, result := range rejected {
		if result.Reason == deptmaster.ReasonPermissionDenied {
			return errors.New("event rejected: permission denied", errors.Forbidden())
		}
	}
	return errors.New("event rejected: "+rejected[0].Reason, errors.WithCode(http.StatusConflict))
}

// checkPermissions compares the server's permission fingerprint with the
// cached one. Any change means events may have appeared or disappeared from
// the caller's permitted stream, so the synced local state is cleared and
// repulled from scratch.
func (s *Session) checkPermissions(ctx context.Context) error {
	fingerprint, err := s.api.Fingerprint(ctx, s.walletID)
	if err != nil {
		return err
	}

	cached, err := s.store.Fingerprint()
	if err != nil {
		return err
	}

	if cached != "" && cached != fingerprint {
		s.logger.Debugf("permissions changed, clearing local state")
		if err := s.store.ClearSynced(); err != nil {
			return err
		}
	}
	return s.store.SaveFingerprint(fingerprint)
}

// pull fetches events from the cursor on. The cut is inclusive server-side,
// so re-received events are deduped by id in the store.
func (s *Session) pull(ctx context.Context) error {
	cursor, err := s.store.Cursor()
	if err != nil {
		return err
	}

	events, err := s.api.Pull(ctx, s.walletID, cursor)
	if err != nil {
		return err
	}

	if err := s.store.PutLog(events); err != nil {
		return err
	}

	for _, e := range events {
		// The server copy carries the authoritative version and
		// timestamp; the queue entry has served its purpose.
		if err := s.store.DeleteQueued(e.ID); err != nil {
			return err
		}
		if e.Timestamp.After(cursor) {
			cursor = e.Timestamp
		}
	}
	return s.store.SaveCursor(cursor)
}

func (s *Session) fullResync(ctx context.Context) error {
	if err := s.store.ClearSynced(); err != nil {
		return err
	}
	return s.pull(ctx)
}

// refold rebuilds the local projection from the pulled log plus the queued
// events not yet acknowledged. Queued events fold last, so an unconfirmed
// local edit wins over a stale pulled value until the server settles it.
func (s *Session) refold() error {
	merged, err := s.localEvents()
	if err != nil {
		return err
	}
	return s.store.SaveProjection(deptmaster.Rebuild(s.walletID, merged))
}

func (s *Session) localEvents() ([]deptmaster.Event, error) {
	events, err := s.store.Log()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(events))
	for _, e := range events {
		seen[e.ID] = true
	}

	queue, err := s.store.Queue()
	if err != nil {
		return nil, err
	}
	for _, qe := range queue {
		if !seen[qe.Event.ID] {
			events = append(events, qe.Event)
		}
	}

	deptmaster.SortEvents(events)
	return events, nil
}

// logDigest hashes the server-acknowledged part of the local state, the
// exact stream the server digests for this caller.
func (s *Session) logDigest() (string, error) {
	events, err := s.store.Log()
	if err != nil {
		return "", err
	}
	deptmaster.SortEvents(events)
	return deptmaster.Digest(events), nil
}

// lastForAggregate looks up the newest local event of one aggregate.
func (s *Session) lastForAggregate(aggregateID string) (deptmaster.Event, bool, error) {
	events, err := s.localEvents()
	if err != nil {
		return deptmaster.Event{}, false, err
	}

	var last deptmaster.Event
	found := false
	for _, e := range events {
		if e.AggregateID == aggregateID {
			last = e
			found = true
		}
	}
	return last, found, nil
}
