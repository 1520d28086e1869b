package bolt

import (
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster"
)

var projectionBucket = []byte("projections")

type ProjectionStore struct {
	Driver *Driver
}

func NewProjectionStore(driver *Driver) *ProjectionStore {
	return &ProjectionStore{Driver: driver}
}

func (s *ProjectionStore) Save(p *deptmaster.Projection) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(projectionBucket).Put([]byte(p.WalletID), data)
	})
}

func (s *ProjectionStore) Load(walletID string) (*deptmaster.Projection, error) {
	var p *deptmaster.Projection
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(projectionBucket).Get([]byte(walletID))
		if data == nil {
			p = deptmaster.NewProjection(walletID)
			return nil
		}
		p = &deptmaster.Projection{}
		return json.Unmarshal(data, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectionStore) Delete(walletID string) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(projectionBucket).Delete([]byte(walletID))
	})
}
