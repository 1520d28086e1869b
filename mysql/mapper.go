package mysql

import (
	"time"

	"github.com/dark-cli/deptmaster"
)

type Contact struct {
	ID       string `gorm:"primary_key"`
	WalletID string `gorm:"index"`

	Name     string
	Username string
	Phone    string
	Email    string
	Notes    string

	Deleted bool
	Balance int64

	LastEventID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newContact(c deptmaster.Contact) Contact {
	return Contact{
		ID:          c.ID,
		WalletID:    c.WalletID,
		Name:        c.Name,
		Username:    c.Username,
		Phone:       c.Phone,
		Email:       c.Email,
		Notes:       c.Notes,
		Deleted:     c.Deleted,
		Balance:     c.Balance,
		LastEventID: c.LastEventID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (c Contact) format() *deptmaster.Contact {
	return &deptmaster.Contact{
		ID:          c.ID,
		WalletID:    c.WalletID,
		Name:        c.Name,
		Username:    c.Username,
		Phone:       c.Phone,
		Email:       c.Email,
		Notes:       c.Notes,
		Deleted:     c.Deleted,
		Balance:     c.Balance,
		LastEventID: c.LastEventID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type Transaction struct {
	ID        string `gorm:"primary_key"`
	WalletID  string `gorm:"index"`
	ContactID string `gorm:"index"`

	Direction   string
	Amount      int64
	Currency    string
	Description string
	Date        string
	DueDate     string

	Deleted bool

	LastEventID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newTransaction(t deptmaster.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		WalletID:    t.WalletID,
		ContactID:   t.ContactID,
		Direction:   string(t.Direction),
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		Date:        t.Date,
		DueDate:     t.DueDate,
		Deleted:     t.Deleted,
		LastEventID: t.LastEventID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (t Transaction) format() *deptmaster.Transaction {
	return &deptmaster.Transaction{
		ID:          t.ID,
		WalletID:    t.WalletID,
		ContactID:   t.ContactID,
		Direction:   deptmaster.Direction(t.Direction),
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		Date:        t.Date,
		DueDate:     t.DueDate,
		Deleted:     t.Deleted,
		LastEventID: t.LastEventID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
