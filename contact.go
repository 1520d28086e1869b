package deptmaster

import (
	"time"
)

// Contact is an aggregate owned by a wallet. Its current state is always
// the fold of its events; Deleted marks a tombstone that stays out of
// active listings but keeps the row for audit.
type Contact struct {
	ID       string `json:"id"`
	WalletID string `json:"wallet_id"`

	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Notes    string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Deleted bool `json:"deleted,omitempty"`

	// Balance is derived from the contact's active transactions:
	// lent counts positive, owed negative.
	Balance int64 `json:"balance"`

	// LastEventID is the id of the last event folded into this row.
	LastEventID string `json:"last_event_id,omitempty"`
}

// ContactSearch narrows a full-text lookup to one wallet. An empty Q
// matches every contact of the wallet.
type ContactSearch struct {
	WalletID string
	Q        string
	Limit    uint64
}

// ContactIndex is the full-text index over contact rows. It returns ids
// only; callers resolve them against the projection, which also keeps
// stale index entries from ever surfacing.
type ContactIndex interface {
	Index(*Contact) error
	Delete(id string) error
	Search(ContactSearch) ([]string, error)
}
