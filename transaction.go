package deptmaster

import (
	"time"
)

// Direction of a transaction relative to the wallet owner.
type Direction string

const (
	DirectionOwed Direction = "owed"
	DirectionLent Direction = "lent"
)

func (d Direction) Valid() bool {
	return d == DirectionOwed || d == DirectionLent
}

// Transaction references a contact, it does not own it: a contact has many
// transactions. Amount is in the currency's minor unit.
type Transaction struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	ContactID string `json:"contact_id"`

	Direction   Direction `json:"direction"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Description string    `json:"description,omitempty"`

	Date    string `json:"transaction_date,omitempty"`
	DueDate string `json:"due_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Deleted bool `json:"deleted,omitempty"`

	LastEventID string `json:"last_event_id,omitempty"`
}
