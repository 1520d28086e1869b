package auth

import (
	"time"
)

type WalletMember struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`

	IsOwner bool `json:"isOwner"`

	JoinedAt time.Time `json:"joinedAt"`
}

// Wallet is a shared workspace. Every event, contact and permission rule
// is scoped to exactly one wallet.
type Wallet struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	OwnerID string `json:"ownerId"`

	Members []WalletMember `json:"members"`

	CreatedAt time.Time `json:"createdAt"`
}

func (w Wallet) Member(userID string) (WalletMember, bool) {
	for _, m := range w.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return WalletMember{}, false
}

type WalletRepository interface {
	Get(string) (Wallet, error)
	GetForUser(string) ([]Wallet, error)
	List() ([]Wallet, error)

	Upsert(*Wallet) error
	Delete(string) error
}
