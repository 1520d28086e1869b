package inmem

import (
	"encoding/json"
	"sync"

	"github.com/dark-cli/deptmaster"
)

type InMemProjectionStore struct {
	mu          sync.Mutex
	projections map[string][]byte
}

func NewInMemProjectionStore() *InMemProjectionStore {
	return &InMemProjectionStore{
		projections: map[string][]byte{},
	}
}

func (s *InMemProjectionStore) Save(p *deptmaster.Projection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.projections[p.WalletID] = data
	return nil
}

func (s *InMemProjectionStore) Load(walletID string) (*deptmaster.Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.projections[walletID]
	if !ok {
		return deptmaster.NewProjection(walletID), nil
	}

	var p deptmaster.Projection
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *InMemProjectionStore) Delete(walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projections, walletID)
	return nil
}
