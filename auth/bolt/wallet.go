package bolt

import (
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster/auth"
)

var walletBucket = []byte("wallets")

type WalletRepository struct {
	Driver *Driver
}

func NewWalletRepository(driver *Driver) *WalletRepository {
	return &WalletRepository{Driver: driver}
}

func (r *WalletRepository) Get(id string) (auth.Wallet, error) {
	var wallet auth.Wallet
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(walletBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &wallet)
	})
	return wallet, err
}

func (r *WalletRepository) GetForUser(userID string) ([]auth.Wallet, error) {
	wallets := make([]auth.Wallet, 0)
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(walletBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var wallet auth.Wallet
			if err := json.Unmarshal(data, &wallet); err != nil {
				return err
			}
			if _, ok := wallet.Member(userID); ok {
				wallets = append(wallets, wallet)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

func (r *WalletRepository) List() ([]auth.Wallet, error) {
	wallets := make([]auth.Wallet, 0)
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(walletBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var wallet auth.Wallet
			if err := json.Unmarshal(data, &wallet); err != nil {
				return err
			}
			wallets = append(wallets, wallet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

func (r *WalletRepository) Upsert(wallet *auth.Wallet) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(wallet)
		if err != nil {
			return err
		}
		return tx.Bucket(walletBucket).Put([]byte(wallet.ID), data)
	})
}

func (r *WalletRepository) Delete(id string) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(walletBucket).Delete([]byte(id))
	})
}
