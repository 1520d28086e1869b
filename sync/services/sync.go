package services

import (
	"time"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	authservices "github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/log"
)

// HashResult is the server's answer to a hash-check: the digest over the
// caller's permitted event stream plus enough metadata for the client to
// decide between an incremental pull and a full resync.
type HashResult struct {
	Digest        string    `json:"digest"`
	Count         int       `json:"count"`
	LastTimestamp time.Time `json:"last_timestamp"`
}

// SyncService is the server side of the protocol: it gates pushed events on
// permissions, applies accepted ones to the wallet projection, and serves
// permission-filtered pulls and digests that are always consistent with each
// other.
type SyncService struct {
	events      deptmaster.EventStore
	projections deptmaster.ProjectionStore
	index       deptmaster.ContactIndex
	permissions *authservices.PermissionService
	wallets     auth.WalletRepository

	logger log.Logger
	now    func() time.Time
}

// NewSyncService wires the sync protocol. index may be nil when no full-text
// search is served.
func NewSyncService(
	events deptmaster.EventStore,
	projections deptmaster.ProjectionStore,
	index deptmaster.ContactIndex,
	permissions *authservices.PermissionService,
	wallets auth.WalletRepository,
	logger log.Logger,
) *SyncService {
	return &SyncService{
		events:      events,
		projections: projections,
		index:       index,
		permissions: permissions,
		wallets:     wallets,
		logger:      logger,
		now:         time.Now,
	}
}

// CheckRead verifies the caller may read the wallet's event stream.
func (s *SyncService) CheckRead(callerID, walletID string) error {
	return s.permissions.CheckMember(callerID, walletID)
}

func rejected(e deptmaster.Event, reason string) deptmaster.AppendResult {
	return deptmaster.AppendResult{
		EventID: e.ID,
		Status:  deptmaster.StatusRejected,
		Reason:  reason,
	}
}

// Push appends a batch of client events. Resolution is per event: one bad
// event never blocks the rest of the batch, the client inspects the result
// list to know which of its queue entries may be marked synced.
func (s *SyncService) Push(callerID, walletID string, batch []deptmaster.Event) ([]deptmaster.AppendResult, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return nil, err
	}

	projection, err := s.projections.Load(walletID)
	if err != nil {
		return nil, err
	}

	results := make([]deptmaster.AppendResult, 0, len(batch))
	rebuildNeeded := false

	for _, e := range batch {
		if e.WalletID != walletID {
			results = append(results, rejected(e, deptmaster.ReasonMalformedPayload))
			continue
		}
		if err := e.Validate(); err != nil {
			results = append(results, rejected(e, deptmaster.ReasonMalformedPayload))
			continue
		}

		contactID, reason := s.contactFor(e)
		if reason != "" {
			results = append(results, rejected(e, reason))
			continue
		}

		if e.EventType == deptmaster.EventUndo {
			if reason := s.checkUndo(e); reason != "" {
				results = append(results, rejected(e, reason))
				continue
			}
		}

		caps, err := s.permissions.CapabilitiesForContact(walletID, callerID, contactID)
		if err != nil {
			return nil, err
		}
		if !caps.Has(deptmaster.CapabilityForEvent(e.EventType)) {
			results = append(results, rejected(e, deptmaster.ReasonPermissionDenied))
			continue
		}

		e.ActorID = callerID
		result, err := s.events.Append(e)
		if err != nil {
			return nil, err
		}
		results = append(results, result)

		if result.Status != deptmaster.StatusAccepted {
			continue
		}

		if e.EventType == deptmaster.EventUndo {
			// UNDO voids history, the projection cannot absorb it
			// incrementally.
			rebuildNeeded = true
			continue
		}

		// Fold the stored event, which carries the assigned version and
		// timestamp.
		stored, found, err := s.events.Get(walletID, e.ID)
		if err != nil {
			return nil, err
		}
		if found {
			projection.Apply(stored)
		}
	}

	if rebuildNeeded {
		if err := s.Rebuild(walletID); err != nil {
			return nil, err
		}
		return results, nil
	}

	if err := s.projections.Save(projection); err != nil {
		return nil, err
	}
	if err := s.reindex(projection); err != nil {
		return nil, err
	}

	return results, nil
}

// Pull returns the caller's permitted events from since on, in fold order.
// A zero since returns the full permitted history.
func (s *SyncService) Pull(callerID, walletID string, since time.Time) ([]deptmaster.Event, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return nil, err
	}

	permitted, err := s.permittedEvents(callerID, walletID)
	if err != nil {
		return nil, err
	}

	if since.IsZero() {
		return permitted, nil
	}

	out := make([]deptmaster.Event, 0, len(permitted))
	for _, e := range permitted {
		// Inclusive cut: an event sharing the cursor timestamp is
		// resent rather than risk being skipped; clients dedupe on id.
		if e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Hash digests the same permitted stream Pull would return from the
// beginning, so a client digesting its local log compares like for like.
func (s *SyncService) Hash(callerID, walletID string) (HashResult, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return HashResult{}, err
	}

	permitted, err := s.permittedEvents(callerID, walletID)
	if err != nil {
		return HashResult{}, err
	}

	result := HashResult{
		Digest: deptmaster.Digest(permitted),
		Count:  len(permitted),
	}
	if len(permitted) > 0 {
		result.LastTimestamp = permitted[len(permitted)-1].Timestamp
	}
	return result, nil
}

// Rebuild replays the wallet's full log into the projection store. It is
// idempotent: replaying an unchanged log yields identical state.
func (s *SyncService) Rebuild(walletID string) error {
	events, err := s.events.Read(walletID, time.Time{}, nil)
	if err != nil {
		return err
	}

	s.logger.Debugf("rebuilding projection for wallet %s from %d events", walletID, len(events))
	projection := deptmaster.Rebuild(walletID, events)
	if err := s.projections.Save(projection); err != nil {
		return err
	}
	return s.reindex(projection)
}

// reindex refreshes the full-text entries for the wallet's contacts.
// Tombstones are removed so deleted contacts stop matching immediately.
func (s *SyncService) reindex(projection *deptmaster.Projection) error {
	if s.index == nil {
		return nil
	}

	for _, contact := range projection.Contacts {
		if contact.Deleted {
			if err := s.index.Delete(contact.ID); err != nil {
				return err
			}
			continue
		}
		if err := s.index.Index(contact); err != nil {
			return err
		}
	}
	return nil
}

// RebuildAll rebuilds every wallet's projection.
func (s *SyncService) RebuildAll() error {
	wallets, err := s.wallets.List()
	if err != nil {
		return err
	}

	for _, wallet := range wallets {
		if err := s.Rebuild(wallet.ID); err != nil {
			return err
		}
	}
	return nil
}

// RebuildWallet is the owner-gated entry point behind the admin endpoint.
func (s *SyncService) RebuildWallet(callerID, walletID string) error {
	if err := s.permissions.CheckOwner(callerID, walletID); err != nil {
		return err
	}
	return s.Rebuild(walletID)
}

// Projection loads the wallet's materialized state for members.
func (s *SyncService) Projection(callerID, walletID string) (*deptmaster.Projection, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return nil, err
	}
	return s.projections.Load(walletID)
}

// permittedEvents reads the full wallet log and keeps the events whose
// contact the caller may view. Transactions resolve through their contact,
// looked up from the aggregate's creation event so that updates and deletes
// are treated like the row they touch.
func (s *SyncService) permittedEvents(callerID, walletID string) ([]deptmaster.Event, error) {
	all, err := s.events.Read(walletID, time.Time{}, nil)
	if err != nil {
		return nil, err
	}

	// transaction aggregate id -> contact id
	contactOf := map[string]string{}
	for _, e := range all {
		if e.AggregateType != deptmaster.AggregateTransaction {
			continue
		}
		if id, ok := e.Data["contact_id"].(string); ok && id != "" {
			if _, seen := contactOf[e.AggregateID]; !seen {
				contactOf[e.AggregateID] = id
			}
		}
	}

	viewable := map[string]bool{}
	canView := func(contactID string) (bool, error) {
		if allowed, ok := viewable[contactID]; ok {
			return allowed, nil
		}
		caps, err := s.permissions.CapabilitiesForContact(walletID, callerID, contactID)
		if err != nil {
			return false, err
		}
		allowed := caps.Has(deptmaster.CanView)
		viewable[contactID] = allowed
		return allowed, nil
	}

	out := make([]deptmaster.Event, 0, len(all))
	for _, e := range all {
		contactID := e.AggregateID
		if e.AggregateType == deptmaster.AggregateTransaction {
			var ok bool
			contactID, ok = contactOf[e.AggregateID]
			if !ok {
				continue
			}
		}

		allowed, err := canView(contactID)
		if err != nil {
			return nil, err
		}
		if allowed {
			out = append(out, e)
		}
	}
	return out, nil
}

// contactFor resolves the contact whose groups gate the event.
func (s *SyncService) contactFor(e deptmaster.Event) (string, string) {
	if e.AggregateType == deptmaster.AggregateContact {
		if e.EventType == deptmaster.EventCreated {
			// The contact does not exist yet: only wallet-wide rules
			// can grant create.
			return "", ""
		}
		return e.AggregateID, ""
	}

	// Transactions carry contact_id on creation; later events resolve
	// through the stored aggregate.
	if id, ok := e.Data["contact_id"].(string); ok && id != "" {
		return id, ""
	}

	events, err := s.events.Aggregate(e.WalletID, e.AggregateID)
	if err != nil || len(events) == 0 {
		return "", deptmaster.ReasonInvalidAggregate
	}
	for _, stored := range events {
		if id, ok := stored.Data["contact_id"].(string); ok && id != "" {
			return id, ""
		}
	}
	return "", deptmaster.ReasonInvalidAggregate
}

// checkUndo enforces the grace window: the voided event must exist, belong
// to the same aggregate, and still be young enough.
func (s *SyncService) checkUndo(e deptmaster.Event) string {
	target, found, err := s.events.Get(e.WalletID, e.UndoneEventID())
	if err != nil || !found {
		return deptmaster.ReasonInvalidAggregate
	}
	if target.AggregateID != e.AggregateID {
		return deptmaster.ReasonInvalidAggregate
	}
	if s.now().UTC().Sub(target.Timestamp) > deptmaster.UndoWindow {
		return deptmaster.ReasonConflict
	}
	return ""
}
