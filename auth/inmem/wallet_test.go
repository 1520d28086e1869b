package inmem

import (
	"testing"

	"github.com/dark-cli/deptmaster/auth"
)

func TestInMemWalletRepository(t *testing.T) {
	repo := NewInMemWalletRepository()
	auth.TestWalletRepository(t, repo)
}
