package inmem

import (
	"sync"

	"github.com/dark-cli/deptmaster/auth"
)

type InMemWalletRepository struct {
	mu      sync.Locker
	wallets []auth.Wallet
}

func NewInMemWalletRepository() *InMemWalletRepository {
	return &InMemWalletRepository{
		mu:      &sync.Mutex{},
		wallets: make([]auth.Wallet, 0),
	}
}

func (r *InMemWalletRepository) Get(id string) (auth.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, wallet := range r.wallets {
		if wallet.ID == id {
			return wallet, nil
		}
	}
	return auth.Wallet{}, nil
}

func (r *InMemWalletRepository) GetForUser(userID string) ([]auth.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets := make([]auth.Wallet, 0)
	for _, wallet := range r.wallets {
		for _, member := range wallet.Members {
			if member.UserID == userID {
				wallets = append(wallets, wallet)
				break
			}
		}
	}
	return wallets, nil
}

func (r *InMemWalletRepository) List() ([]auth.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets := make([]auth.Wallet, len(r.wallets))
	copy(wallets, r.wallets)
	return wallets, nil
}

func (r *InMemWalletRepository) Upsert(wallet *auth.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, w := range r.wallets {
		if w.ID == wallet.ID {
			r.wallets[i] = *wallet
			return nil
		}
	}

	r.wallets = append(r.wallets, *wallet)
	return nil
}

func (r *InMemWalletRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, wallet := range r.wallets {
		if wallet.ID == id {
			r.wallets = append(r.wallets[0:i], r.wallets[i+1:]...)
			return nil
		}
	}
	return nil
}
