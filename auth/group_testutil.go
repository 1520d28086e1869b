package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
)

func TestGroupRepository(t *testing.T, repo GroupRepository) {
	walletID := uuid.NewString()
	otherWalletID := uuid.NewString()

	groups := []*Group{
		{ID: uuid.NewString(), WalletID: walletID, Name: deptmaster.AllMembersGroup, Kind: GroupOfMembers, Implicit: true},
		{ID: uuid.NewString(), WalletID: walletID, Name: "family", Kind: GroupOfContacts, MemberIDs: []string{uuid.NewString()}},
		{ID: uuid.NewString(), WalletID: otherWalletID, Name: "vip", Kind: GroupOfContacts},
	}

	for _, group := range groups {
		require.NoError(t, repo.Upsert(group))
	}

	retrieved, err := repo.Get(groups[1].ID)
	require.NoError(t, err)
	assert.Equal(t, groups[1].Name, retrieved.Name)
	assert.Equal(t, groups[1].MemberIDs, retrieved.MemberIDs)

	// Listing is wallet scoped
	list, err := repo.ListByWallet(walletID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Membership update
	groups[1].MemberIDs = append(groups[1].MemberIDs, uuid.NewString())
	require.NoError(t, repo.Upsert(groups[1]))
	retrieved, err = repo.Get(groups[1].ID)
	require.NoError(t, err)
	assert.Len(t, retrieved.MemberIDs, 2)

	// Delete
	require.NoError(t, repo.Delete(groups[1].ID))
	list, err = repo.ListByWallet(walletID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRuleRepository(t *testing.T, repo RuleRepository) {
	walletID := uuid.NewString()

	rules := []*deptmaster.PermissionRule{
		{
			ID:             uuid.NewString(),
			WalletID:       walletID,
			UserGroupID:    uuid.NewString(),
			ContactGroupID: uuid.NewString(),
			Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
		},
		{
			ID:             uuid.NewString(),
			WalletID:       walletID,
			UserGroupID:    uuid.NewString(),
			ContactGroupID: uuid.NewString(),
			Capabilities:   deptmaster.AllCapabilities(),
		},
	}

	for _, rule := range rules {
		require.NoError(t, repo.Upsert(rule))
	}

	retrieved, err := repo.Get(rules[0].ID)
	require.NoError(t, err)
	assert.True(t, retrieved.Capabilities.Has(deptmaster.CanView))
	assert.False(t, retrieved.Capabilities.Has(deptmaster.CanDelete))

	list, err := repo.ListByWallet(walletID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Widen a rule
	rules[0].Capabilities = rules[0].Capabilities.Union(deptmaster.NewCapabilitySet(deptmaster.CanEdit))
	require.NoError(t, repo.Upsert(rules[0]))
	retrieved, err = repo.Get(rules[0].ID)
	require.NoError(t, err)
	assert.True(t, retrieved.Capabilities.Has(deptmaster.CanEdit))

	require.NoError(t, repo.Delete(rules[1].ID))
	list, err = repo.ListByWallet(walletID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
