package deptmaster

import (
	"encoding/json"
	"sort"
)

// Projection is the materialized current state of one wallet: the fold of
// its events. The same fold runs server-side against the authoritative log
// and client-side against the local queue, so both converge on identical
// state for identical permitted event sets.
type Projection struct {
	WalletID     string                  `json:"wallet_id"`
	Contacts     map[string]*Contact     `json:"contacts"`
	Transactions map[string]*Transaction `json:"transactions"`
}

func NewProjection(walletID string) *Projection {
	return &Projection{
		WalletID:     walletID,
		Contacts:     map[string]*Contact{},
		Transactions: map[string]*Transaction{},
	}
}

// Rebuild replays a full event log from empty state. It is deterministic:
// events are folded in SortEvents order, UNDO events and the events they
// void are skipped entirely, and running it twice over the same log yields
// byte-identical state.
func Rebuild(walletID string, events []Event) *Projection {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	SortEvents(sorted)

	undone := map[string]bool{}
	for _, e := range sorted {
		if id := e.UndoneEventID(); id != "" {
			undone[id] = true
		}
	}

	p := NewProjection(walletID)
	for _, e := range sorted {
		if e.EventType == EventUndo || undone[e.ID] {
			continue
		}
		p.Apply(e)
	}
	p.recomputeBalances()
	return p
}

// Apply folds one event into the projection. UNDO events cannot be applied
// incrementally (they void history); callers detect them and trigger a
// Rebuild instead.
func (p *Projection) Apply(e Event) {
	switch e.AggregateType {
	case AggregateContact:
		p.applyContact(e)
	case AggregateTransaction:
		p.applyTransaction(e)
	}
}

func (p *Projection) applyContact(e Event) {
	switch e.EventType {
	case EventCreated:
		c := &Contact{
			ID:          e.AggregateID,
			WalletID:    p.WalletID,
			CreatedAt:   e.Timestamp,
			UpdatedAt:   e.Timestamp,
			LastEventID: e.ID,
		}
		mergeContactFields(c, e.Data)
		p.Contacts[e.AggregateID] = c
	case EventUpdated:
		c, ok := p.Contacts[e.AggregateID]
		if !ok {
			return
		}
		mergeContactFields(c, e.Data)
		c.UpdatedAt = e.Timestamp
		c.LastEventID = e.ID
	case EventDeleted:
		c, ok := p.Contacts[e.AggregateID]
		if !ok {
			return
		}
		c.Deleted = true
		c.UpdatedAt = e.Timestamp
		c.LastEventID = e.ID

		// Tombstoning a contact cascades to its transactions in the
		// projection only; no synthetic child events are written, the
		// log stays a faithful record of what actually happened.
		for _, t := range p.Transactions {
			if t.ContactID == e.AggregateID && !t.Deleted {
				t.Deleted = true
				t.UpdatedAt = e.Timestamp
			}
		}
	}
}

func (p *Projection) applyTransaction(e Event) {
	switch e.EventType {
	case EventCreated:
		contactID, _ := e.Data["contact_id"].(string)
		c, ok := p.Contacts[contactID]
		if !ok || c.Deleted {
			// Orphan: the parent contact is gone, the transaction is
			// not independently addressable any more.
			return
		}
		t := &Transaction{
			ID:          e.AggregateID,
			WalletID:    p.WalletID,
			ContactID:   contactID,
			CreatedAt:   e.Timestamp,
			UpdatedAt:   e.Timestamp,
			LastEventID: e.ID,
		}
		mergeTransactionFields(t, e.Data)
		p.Transactions[e.AggregateID] = t
	case EventUpdated:
		t, ok := p.Transactions[e.AggregateID]
		if !ok {
			return
		}
		mergeTransactionFields(t, e.Data)
		t.UpdatedAt = e.Timestamp
		t.LastEventID = e.ID
	case EventDeleted:
		t, ok := p.Transactions[e.AggregateID]
		if !ok {
			return
		}
		t.Deleted = true
		t.UpdatedAt = e.Timestamp
		t.LastEventID = e.ID
	}
}

// mergeContactFields copies only the fields present in the payload; absent
// fields stay untouched.
func mergeContactFields(c *Contact, data map[string]interface{}) {
	if v, ok := data["name"].(string); ok {
		c.Name = v
	}
	if v, ok := data["username"].(string); ok {
		c.Username = v
	}
	if v, ok := data["phone"].(string); ok {
		c.Phone = v
	}
	if v, ok := data["email"].(string); ok {
		c.Email = v
	}
	if v, ok := data["notes"].(string); ok {
		c.Notes = v
	}
}

func mergeTransactionFields(t *Transaction, data map[string]interface{}) {
	if v, ok := data["contact_id"].(string); ok && v != "" {
		t.ContactID = v
	}
	if v, ok := data["direction"].(string); ok && Direction(v).Valid() {
		t.Direction = Direction(v)
	}
	if v, ok := numberField(data, "amount"); ok {
		t.Amount = v
	}
	if v, ok := data["currency"].(string); ok {
		t.Currency = v
	}
	if v, ok := data["description"].(string); ok {
		t.Description = v
	}
	if v, ok := data["transaction_date"].(string); ok {
		t.Date = v
	}
	if v, ok := data["due_date"].(string); ok {
		t.DueDate = v
	}
}

func (p *Projection) recomputeBalances() {
	for _, c := range p.Contacts {
		c.Balance = 0
	}
	for _, t := range p.Transactions {
		if t.Deleted {
			continue
		}
		c, ok := p.Contacts[t.ContactID]
		if !ok || c.Deleted {
			continue
		}
		switch t.Direction {
		case DirectionLent:
			c.Balance += t.Amount
		case DirectionOwed:
			c.Balance -= t.Amount
		}
	}
}

// ActiveContacts lists untombstoned contacts in a deterministic order.
func (p *Projection) ActiveContacts() []Contact {
	p.recomputeBalances()
	out := make([]Contact, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		if !c.Deleted {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveTransactions lists untombstoned transactions, optionally narrowed
// to one contact. Transactions of tombstoned contacts are excluded.
func (p *Projection) ActiveTransactions(contactID string) []Transaction {
	out := make([]Transaction, 0, len(p.Transactions))
	for _, t := range p.Transactions {
		if t.Deleted {
			continue
		}
		if contactID != "" && t.ContactID != contactID {
			continue
		}
		if c, ok := p.Contacts[t.ContactID]; !ok || c.Deleted {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TotalDebt is the wallet-wide sum over active transactions, lent positive,
// owed negative.
func (p *Projection) TotalDebt() int64 {
	var total int64
	for _, t := range p.ActiveTransactions("") {
		switch t.Direction {
		case DirectionLent:
			total += t.Amount
		case DirectionOwed:
			total -= t.Amount
		}
	}
	return total
}

// Marshal renders the projection in a canonical form, usable to compare two
// projections byte for byte.
func (p *Projection) Marshal() ([]byte, error) {
	snapshot := struct {
		WalletID     string        `json:"wallet_id"`
		Contacts     []Contact     `json:"contacts"`
		Transactions []Transaction `json:"transactions"`
	}{
		WalletID:     p.WalletID,
		Contacts:     p.ActiveContacts(),
		Transactions: p.ActiveTransactions(""),
	}
	return json.Marshal(snapshot)
}

// ProjectionStore persists per-wallet projections. The sync service keeps
// them current incrementally and rebuilds them from the log on demand.
type ProjectionStore interface {
	Save(*Projection) error
	Load(walletID string) (*Projection, error)
	Delete(walletID string) error
}
