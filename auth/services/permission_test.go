package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/auth/inmem"
	"github.com/dark-cli/deptmaster/errors"
)

type permissionFixture struct {
	users       *UserService
	wallets     *WalletService
	permissions *PermissionService

	owner  auth.User
	member auth.User
	wallet auth.Wallet
}

func newPermissionFixture(t *testing.T) *permissionFixture {
	userRepo := inmem.NewInMemUserRepository()
	walletRepo := inmem.NewInMemWalletRepository()
	groupRepo := inmem.NewInMemGroupRepository()
	ruleRepo := inmem.NewInMemRuleRepository()

	f := &permissionFixture{
		users:       NewUserService(userRepo, staticEncoder{}),
		wallets:     NewWalletService(walletRepo, userRepo, groupRepo),
		permissions: NewPermissionService(walletRepo, groupRepo, ruleRepo),
	}

	var err error
	f.owner, err = f.users.SignUp("Owner", "owner@example.com", "pw")
	require.NoError(t, err)
	f.member, err = f.users.SignUp("Member", "member@example.com", "pw")
	require.NoError(t, err)

	f.wallet, err = f.wallets.Create(f.owner.ID, "Family")
	require.NoError(t, err)
	f.wallet, err = f.wallets.Invite(f.owner.ID, f.wallet.ID, "member@example.com")
	require.NoError(t, err)

	return f
}

func (f *permissionFixture) implicitGroups(t *testing.T) (members, contacts auth.Group) {
	groups, err := f.permissions.ListGroups(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	for _, g := range groups {
		if !g.Implicit {
			continue
		}
		switch g.Kind {
		case auth.GroupOfMembers:
			members = g
		case auth.GroupOfContacts:
			contacts = g
		}
	}
	require.NotEmpty(t, members.ID, "implicit members group should exist")
	require.NotEmpty(t, contacts.ID, "implicit contacts group should exist")
	return members, contacts
}

func TestPermissionService_OwnerBypassesRules(t *testing.T) {
	f := newPermissionFixture(t)

	caps, err := f.permissions.CapabilitiesForContact(f.wallet.ID, f.owner.ID, "any-contact")
	require.NoError(t, err)
	assert.True(t, caps.Has(deptmaster.CanDelete), "owner has everything without any rule")
}

func TestPermissionService_DenyByDefault(t *testing.T) {
	f := newPermissionFixture(t)

	caps, err := f.permissions.CapabilitiesForContact(f.wallet.ID, f.member.ID, "any-contact")
	require.NoError(t, err)
	assert.Empty(t, caps, "no rule means no capability")
}

func TestPermissionService_UnionOfGrants(t *testing.T) {
	f := newPermissionFixture(t)
	allMembers, allContacts := f.implicitGroups(t)

	// Wallet wide default: everyone can view everything.
	_, err := f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    allMembers.ID,
		ContactGroupID: allContacts.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	require.NoError(t, err)

	// Specific grant: the member has full control over the vip contacts.
	vip, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "vip", auth.GroupOfContacts)
	require.NoError(t, err)
	trusted, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "trusted", auth.GroupOfMembers)
	require.NoError(t, err)
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, trusted.ID, f.member.ID)
	require.NoError(t, err)

	vipContact := "contact-vip"
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, vip.ID, vipContact)
	require.NoError(t, err)

	_, err = f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    trusted.ID,
		ContactGroupID: vip.ID,
		Capabilities:   deptmaster.AllCapabilities(),
	})
	require.NoError(t, err)

	// On a vip contact the union of both rules applies.
	caps, err := f.permissions.CapabilitiesForContact(f.wallet.ID, f.member.ID, vipContact)
	require.NoError(t, err)
	assert.True(t, caps.Has(deptmaster.CanView))
	assert.True(t, caps.Has(deptmaster.CanDelete))

	// On any other contact only the default survives.
	caps, err = f.permissions.CapabilitiesForContact(f.wallet.ID, f.member.ID, "other-contact")
	require.NoError(t, err)
	assert.True(t, caps.Has(deptmaster.CanView))
	assert.False(t, caps.Has(deptmaster.CanEdit))

	// A contact that does not exist yet matches only the implicit group.
	caps, err = f.permissions.CapabilitiesForContact(f.wallet.ID, f.member.ID, "")
	require.NoError(t, err)
	assert.True(t, caps.Has(deptmaster.CanView))
	assert.False(t, caps.Has(deptmaster.CanCreate))
}

func TestPermissionService_RuleValidation(t *testing.T) {
	f := newPermissionFixture(t)
	allMembers, allContacts := f.implicitGroups(t)

	// Sides must match kinds.
	_, err := f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    allContacts.ID,
		ContactGroupID: allMembers.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	errors.AssertCode(t, err, 400)

	// Only the owner writes rules.
	_, err = f.permissions.UpsertRule(f.member.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    allMembers.ID,
		ContactGroupID: allContacts.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	errors.AssertCode(t, err, 403)

	// Implicit groups cannot be touched.
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, allMembers.ID, f.member.ID)
	errors.AssertCode(t, err, 400)
	err = f.permissions.DeleteGroup(f.owner.ID, f.wallet.ID, allContacts.ID)
	errors.AssertCode(t, err, 400)
}

func TestPermissionService_Fingerprint(t *testing.T) {
	f := newPermissionFixture(t)
	allMembers, allContacts := f.implicitGroups(t)

	before, err := f.permissions.Fingerprint(f.wallet.ID, f.member.ID)
	require.NoError(t, err)
	again, err := f.permissions.Fingerprint(f.wallet.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, before, again, "fingerprint is stable while nothing changes")

	_, err = f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    allMembers.ID,
		ContactGroupID: allContacts.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	require.NoError(t, err)

	after, err := f.permissions.Fingerprint(f.wallet.ID, f.member.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "a new rule must change the fingerprint")
}

func TestWalletService_Membership(t *testing.T) {
	f := newPermissionFixture(t)

	// Non-members see a 404
	stranger, err := f.users.SignUp("Stranger", "stranger@example.com", "pw")
	require.NoError(t, err)
	_, err = f.wallets.Get(stranger.ID, f.wallet.ID)
	errors.AssertCode(t, err, 404)

	// Members can leave on their own
	_, err = f.wallets.Kick(f.member.ID, f.wallet.ID, f.member.ID)
	require.NoError(t, err)
	_, err = f.wallets.Get(f.member.ID, f.wallet.ID)
	errors.AssertCode(t, err, 404)

	// The owner cannot be kicked
	f.wallet, err = f.wallets.Invite(f.owner.ID, f.wallet.ID, "member@example.com")
	require.NoError(t, err)
	_, err = f.wallets.Kick(f.member.ID, f.wallet.ID, f.owner.ID)
	errors.AssertCode(t, err, 403)
	_, err = f.wallets.Kick(f.owner.ID, f.wallet.ID, f.owner.ID)
	errors.AssertCode(t, err, 400)
}
