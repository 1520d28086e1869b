package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	authinmem "github.com/dark-cli/deptmaster/auth/inmem"
	authservices "github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/sync/inmem"
)

type staticEncoder struct{}

func (staticEncoder) Encode(userID string) (string, error) { return "token-" + userID, nil }

// stubIndex serves canned search results so the tests stay clear of bleve.
type stubIndex struct {
	ids []string
}

func (s *stubIndex) Index(*deptmaster.Contact) error { return nil }
func (s *stubIndex) Delete(string) error             { return nil }
func (s *stubIndex) Search(deptmaster.ContactSearch) ([]string, error) {
	return s.ids, nil
}

type ledgerFixture struct {
	ledger      *Service
	permissions *authservices.PermissionService
	projections *inmem.InMemProjectionStore
	index       *stubIndex

	owner  auth.User
	member auth.User
	wallet auth.Wallet
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	userRepo := authinmem.NewInMemUserRepository()
	walletRepo := authinmem.NewInMemWalletRepository()
	groupRepo := authinmem.NewInMemGroupRepository()
	ruleRepo := authinmem.NewInMemRuleRepository()

	users := authservices.NewUserService(userRepo, staticEncoder{})
	wallets := authservices.NewWalletService(walletRepo, userRepo, groupRepo)
	permissions := authservices.NewPermissionService(walletRepo, groupRepo, ruleRepo)

	f := &ledgerFixture{
		permissions: permissions,
		projections: inmem.NewInMemProjectionStore(),
		index:       &stubIndex{},
	}

	var err error
	f.owner, err = users.SignUp("Owner", "owner@example.com", "pw")
	require.NoError(t, err)
	f.member, err = users.SignUp("Member", "member@example.com", "pw")
	require.NoError(t, err)

	f.wallet, err = wallets.Create(f.owner.ID, "Family")
	require.NoError(t, err)
	f.wallet, err = wallets.Invite(f.owner.ID, f.wallet.ID, "member@example.com")
	require.NoError(t, err)

	f.ledger = NewService(f.projections, permissions, f.index)
	return f
}

// saveProjection stores a hand-built wallet state.
func (f *ledgerFixture) saveProjection(t *testing.T, contacts []*deptmaster.Contact, transactions []*deptmaster.Transaction) {
	p := deptmaster.NewProjection(f.wallet.ID)
	for _, c := range contacts {
		c.WalletID = f.wallet.ID
		p.Contacts[c.ID] = c
	}
	for _, tx := range transactions {
		tx.WalletID = f.wallet.ID
		p.Transactions[tx.ID] = tx
	}
	require.NoError(t, f.projections.Save(p))
}

// grantView lets the member view the given contacts only.
func (f *ledgerFixture) grantView(t *testing.T, contactIDs ...string) {
	contactGroup, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "visible", auth.GroupOfContacts)
	require.NoError(t, err)
	for _, id := range contactIDs {
		_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, contactGroup.ID, id)
		require.NoError(t, err)
	}

	memberGroup, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "readers", auth.GroupOfMembers)
	require.NoError(t, err)
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, memberGroup.ID, f.member.ID)
	require.NoError(t, err)

	_, err = f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    memberGroup.ID,
		ContactGroupID: contactGroup.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	require.NoError(t, err)
}

func TestContacts_ViewFiltered(t *testing.T) {
	f := newLedgerFixture(t)

	visible := uuid.NewString()
	hidden := uuid.NewString()
	f.saveProjection(t, []*deptmaster.Contact{
		{ID: visible, Name: "Visible", CreatedAt: time.Unix(1, 0)},
		{ID: hidden, Name: "Hidden", CreatedAt: time.Unix(2, 0)},
	}, nil)
	f.grantView(t, visible)

	contacts, err := f.ledger.Contacts(f.member.ID, f.wallet.ID, "")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Visible", contacts[0].Name)

	// The owner sees everything.
	contacts, err = f.ledger.Contacts(f.owner.ID, f.wallet.ID, "")
	require.NoError(t, err)
	assert.Len(t, contacts, 2)

	// Outsiders get nothing.
	_, err = f.ledger.Contacts(uuid.NewString(), f.wallet.ID, "")
	errors.AssertCode(t, err, 404)
}

func TestContacts_Search(t *testing.T) {
	f := newLedgerFixture(t)

	alice := uuid.NewString()
	bob := uuid.NewString()
	f.saveProjection(t, []*deptmaster.Contact{
		{ID: alice, Name: "Alice", CreatedAt: time.Unix(1, 0)},
		{ID: bob, Name: "Bob", CreatedAt: time.Unix(2, 0)},
	}, nil)

	f.index.ids = []string{alice}
	contacts, err := f.ledger.Contacts(f.owner.ID, f.wallet.ID, "ali")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice", contacts[0].Name)

	// An empty query skips the index entirely.
	f.index.ids = nil
	contacts, err = f.ledger.Contacts(f.owner.ID, f.wallet.ID, "")
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestTransactions(t *testing.T) {
	f := newLedgerFixture(t)

	visible := uuid.NewString()
	hidden := uuid.NewString()
	f.saveProjection(t,
		[]*deptmaster.Contact{
			{ID: visible, Name: "Visible", CreatedAt: time.Unix(1, 0)},
			{ID: hidden, Name: "Hidden", CreatedAt: time.Unix(2, 0)},
		},
		[]*deptmaster.Transaction{
			{ID: uuid.NewString(), ContactID: visible, Direction: deptmaster.DirectionLent, Amount: 100, CreatedAt: time.Unix(3, 0)},
			{ID: uuid.NewString(), ContactID: visible, Direction: deptmaster.DirectionOwed, Amount: 40, CreatedAt: time.Unix(4, 0)},
			{ID: uuid.NewString(), ContactID: visible, Direction: deptmaster.DirectionLent, Amount: 1, Deleted: true, CreatedAt: time.Unix(5, 0)},
			{ID: uuid.NewString(), ContactID: hidden, Direction: deptmaster.DirectionLent, Amount: 7, CreatedAt: time.Unix(6, 0)},
		},
	)
	f.grantView(t, visible)

	transactions, err := f.ledger.Transactions(f.member.ID, f.wallet.ID, visible)
	require.NoError(t, err)
	assert.Len(t, transactions, 2)

	// A contact the member cannot view looks missing.
	_, err = f.ledger.Transactions(f.member.ID, f.wallet.ID, hidden)
	errors.AssertCode(t, err, 404)

	// So does one that actually is.
	_, err = f.ledger.Transactions(f.owner.ID, f.wallet.ID, uuid.NewString())
	errors.AssertCode(t, err, 404)
}

func TestBalance(t *testing.T) {
	f := newLedgerFixture(t)

	visible := uuid.NewString()
	hidden := uuid.NewString()
	f.saveProjection(t,
		[]*deptmaster.Contact{
			{ID: visible, Name: "Visible", CreatedAt: time.Unix(1, 0)},
			{ID: hidden, Name: "Hidden", CreatedAt: time.Unix(2, 0)},
		},
		[]*deptmaster.Transaction{
			{ID: uuid.NewString(), ContactID: visible, Direction: deptmaster.DirectionLent, Amount: 100, CreatedAt: time.Unix(3, 0)},
			{ID: uuid.NewString(), ContactID: visible, Direction: deptmaster.DirectionOwed, Amount: 40, CreatedAt: time.Unix(4, 0)},
			{ID: uuid.NewString(), ContactID: hidden, Direction: deptmaster.DirectionLent, Amount: 1000, CreatedAt: time.Unix(5, 0)},
		},
	)
	f.grantView(t, visible)

	// The member only counts what it can see.
	balance, err := f.ledger.Balance(f.member.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	// The owner counts everything.
	balance, err = f.ledger.Balance(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1060), balance)
}
