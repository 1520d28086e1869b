package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepository(t *testing.T, repo WalletRepository) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	alice := uuid.NewString()
	bob := uuid.NewString()

	wallets := []*Wallet{
		{
			ID:      uuid.NewString(),
			Name:    "Family",
			OwnerID: alice,
			Members: []WalletMember{
				{UserID: alice, IsOwner: true, JoinedAt: now},
				{UserID: bob, JoinedAt: now},
			},
			CreatedAt: now,
		},
		{
			ID:      uuid.NewString(),
			Name:    "Flatmates",
			OwnerID: bob,
			Members: []WalletMember{
				{UserID: bob, IsOwner: true, JoinedAt: now},
			},
			CreatedAt: now,
		},
	}

	for i, wallet := range wallets {
		require.NoError(t, repo.Upsert(wallet), "insert wallet %d should not fail", i)
	}

	for i, wallet := range wallets {
		retrieved, err := repo.Get(wallet.ID)
		require.NoError(t, err)
		assertWallet(t, *wallet, retrieved, fmt.Sprintf("get wallet %d", i))
	}

	// Get a wallet that does not exist
	retrieved, err := repo.Get(uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, "", retrieved.ID)

	// List wallets per user
	forBob, err := repo.GetForUser(bob)
	require.NoError(t, err)
	assert.Len(t, forBob, 2)

	forAlice, err := repo.GetForUser(alice)
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assertWallet(t, *wallets[0], forAlice[0], "wallets for alice")

	// Membership update
	wallets[1].Members = append(wallets[1].Members, WalletMember{UserID: alice, JoinedAt: now})
	require.NoError(t, repo.Upsert(wallets[1]))
	forAlice, err = repo.GetForUser(alice)
	require.NoError(t, err)
	assert.Len(t, forAlice, 2)

	// Delete
	require.NoError(t, repo.Delete(wallets[0].ID))
	forBob, err = repo.GetForUser(bob)
	require.NoError(t, err)
	assert.Len(t, forBob, 1)
}

func assertWallet(t *testing.T, exp, got Wallet, name string) {
	assert.Equal(t, exp.ID, got.ID, "%s - id", name)
	assert.Equal(t, exp.Name, got.Name, "%s - name", name)
	assert.Equal(t, exp.OwnerID, got.OwnerID, "%s - owner", name)
	if assert.Equal(t, len(exp.Members), len(got.Members), "%s - member count", name) {
		for i := range exp.Members {
			assert.Equal(t, exp.Members[i].UserID, got.Members[i].UserID, "%s - member %d", name, i)
			assert.Equal(t, exp.Members[i].IsOwner, got.Members[i].IsOwner, "%s - member %d owner flag", name, i)
		}
	}
}
