package client

import (
	"testing"

	"github.com/google/uuid"
)

func TestInMemStore(t *testing.T) {
	walletID := uuid.NewString()
	TestStore(t, NewInMemStore(walletID), walletID)
}
