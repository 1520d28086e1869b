package services

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
	"github.com/dark-cli/deptmaster/log"
	"github.com/dark-cli/deptmaster/sync/inmem"
)

type syncFixture struct {
	sync        *SyncService
	permissions *authservices.PermissionService
	projections *inmem.InMemProjectionStore

	owner  auth.User
	member auth.User
	wallet auth.Wallet
}

type staticEncoder struct{}

func (staticEncoder) Encode(userID string) (string, error) { return "token-" + userID, nil }

func newSyncFixture(t *testing.T) *syncFixture {
	userRepo := authinmem.NewInMemUserRepository()
	walletRepo := authinmem.NewInMemWalletRepository()
	groupRepo := authinmem.NewInMemGroupRepository()
	ruleRepo := authinmem.NewInMemRuleRepository()

	users := authservices.NewUserService(userRepo, staticEncoder{})
	wallets := authservices.NewWalletService(walletRepo, userRepo, groupRepo)
	permissions := authservices.NewPermissionService(walletRepo, groupRepo, ruleRepo)

	f := &syncFixture{
		permissions: permissions,
		projections: inmem.NewInMemProjectionStore(),
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

	f.sync = NewSyncService(inmem.NewInMemEventStore(), f.projections, nil, permissions, walletRepo, log.New("test"))
	return f
}

func (f *syncFixture) grantAll(t *testing.T) {
	groups, err := f.permissions.ListGroups(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)

	var members, contacts auth.Group
	for _, g := range groups {
		if !g.Implicit {
			continue
		}
		if g.Kind == auth.GroupOfMembers {
			members = g
		} else {
			contacts = g
		}
	}

	_, err = f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    members.ID,
		ContactGroupID: contacts.ID,
		Capabilities:   deptmaster.AllCapabilities(),
	})
	require.NoError(t, err)
}

func contactCreated(walletID, contactID, name string) deptmaster.Event {
	return deptmaster.Event{
		ID:            uuid.NewString(),
		WalletID:      walletID,
		AggregateType: deptmaster.AggregateContact,
		AggregateID:   contactID,
		EventType:     deptmaster.EventCreated,
		Data:          map[string]interface{}{"name": name},
	}
}

func TestPush_AppliesToProjection(t *testing.T) {
	f := newSyncFixture(t)

	contactID := uuid.NewString()
	created := contactCreated(f.wallet.ID, contactID, "Carol")

	results, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{created})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, deptmaster.StatusAccepted, results[0].Status)

	p, err := f.sync.Projection(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	contacts := p.ActiveContacts()
	require.Len(t, contacts, 1)
	assert.Equal(t, "Carol", contacts[0].Name)
}

func TestPush_Idempotent(t *testing.T) {
	f := newSyncFixture(t)

	created := contactCreated(f.wallet.ID, uuid.NewString(), "Carol")

	results, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{created})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusAccepted, results[0].Status)

	// Retrying the same batch is harmless
	results, err = f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{created})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusDuplicate, results[0].Status)

	events, err := f.sync.Pull(f.owner.ID, f.wallet.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPush_PerEventResolution(t *testing.T) {
	f := newSyncFixture(t)
	f.grantAll(t)

	good := contactCreated(f.wallet.ID, uuid.NewString(), "Good")
	malformed := contactCreated(f.wallet.ID, uuid.NewString(), "")
	alsoGood := contactCreated(f.wallet.ID, uuid.NewString(), "Also good")

	results, err := f.sync.Push(f.member.ID, f.wallet.ID, []deptmaster.Event{good, malformed, alsoGood})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, deptmaster.StatusAccepted, results[0].Status)
	assert.Equal(t, deptmaster.StatusRejected, results[1].Status)
	assert.Equal(t, deptmaster.ReasonMalformedPayload, results[1].Reason)
	assert.Equal(t, deptmaster.StatusAccepted, results[2].Status)
}

func TestPush_PermissionDenied(t *testing.T) {
	f := newSyncFixture(t)

	// No rules: the plain member cannot create.
	created := contactCreated(f.wallet.ID, uuid.NewString(), "Denied")
	results, err := f.sync.Push(f.member.ID, f.wallet.ID, []deptmaster.Event{created})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusRejected, results[0].Status)
	assert.Equal(t, deptmaster.ReasonPermissionDenied, results[0].Reason)

	// The owner bypasses the matrix.
	results, err = f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{created})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusAccepted, results[0].Status)

	// Outsiders do not even reach per-event resolution.
	_, err = f.sync.Push(uuid.NewString(), f.wallet.ID, []deptmaster.Event{created})
	errors.AssertCode(t, err, 404)
}

func TestPull_PermissionFiltered(t *testing.T) {
	f := newSyncFixture(t)

	visibleContact := uuid.NewString()
	hiddenContact := uuid.NewString()

	// Owner creates two contacts and a transaction under each.
	batch := []deptmaster.Event{
		contactCreated(f.wallet.ID, visibleContact, "Visible"),
		contactCreated(f.wallet.ID, hiddenContact, "Hidden"),
		{
			ID: uuid.NewString(), WalletID: f.wallet.ID,
			AggregateType: deptmaster.AggregateTransaction, AggregateID: uuid.NewString(),
			EventType: deptmaster.EventCreated,
			Data:      map[string]interface{}{"contact_id": visibleContact, "direction": "lent", "amount": float64(100)},
		},
		{
			ID: uuid.NewString(), WalletID: f.wallet.ID,
			AggregateType: deptmaster.AggregateTransaction, AggregateID: uuid.NewString(),
			EventType: deptmaster.EventCreated,
			Data:      map[string]interface{}{"contact_id": hiddenContact, "direction": "owed", "amount": float64(50)},
		},
	}
	results, err := f.sync.Push(f.owner.ID, f.wallet.ID, batch)
	require.NoError(t, err)
	for _, r := range results {
		require.Equal(t, deptmaster.StatusAccepted, r.Status)
	}

	// Grant the member view on a group containing only the visible contact.
	visibleGroup, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "visible", auth.GroupOfContacts)
	require.NoError(t, err)
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, visibleGroup.ID, visibleContact)
	require.NoError(t, err)

	memberGroup, err := f.permissions.CreateGroup(f.owner.ID, f.wallet.ID, "readers", auth.GroupOfMembers)
	require.NoError(t, err)
	_, err = f.permissions.AddToGroup(f.owner.ID, f.wallet.ID, memberGroup.ID, f.member.ID)
	require.NoError(t, err)

	_, err = f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    memberGroup.ID,
		ContactGroupID: visibleGroup.ID,
		Capabilities:   deptmaster.NewCapabilitySet(deptmaster.CanView),
	})
	require.NoError(t, err)

	// The member sees the visible contact and its transaction only.
	events, err := f.sync.Pull(f.member.ID, f.wallet.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		if e.AggregateType == deptmaster.AggregateContact {
			assert.Equal(t, visibleContact, e.AggregateID)
		} else {
			assert.Equal(t, visibleContact, e.Data["contact_id"])
		}
	}

	// The owner sees all four.
	events, err = f.sync.Pull(f.owner.ID, f.wallet.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestHash_MatchesPermittedPull(t *testing.T) {
	f := newSyncFixture(t)
	f.grantAll(t)

	_, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{
		contactCreated(f.wallet.ID, uuid.NewString(), "One"),
		contactCreated(f.wallet.ID, uuid.NewString(), "Two"),
	})
	require.NoError(t, err)

	hash, err := f.sync.Hash(f.member.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, hash.Count)
	assert.False(t, hash.LastTimestamp.IsZero())

	events, err := f.sync.Pull(f.member.ID, f.wallet.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.Digest(events), hash.Digest, "hash and pull must agree")

	// Equal permissions mean equal digests across members.
	ownerHash, err := f.sync.Hash(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, hash.Digest, ownerHash.Digest)
}

func TestUndo_WithinWindow(t *testing.T) {
	f := newSyncFixture(t)

	txID := uuid.NewString()
	contactID := uuid.NewString()

	_, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{
		contactCreated(f.wallet.ID, contactID, "Zoe"),
	})
	require.NoError(t, err)

	createdTx := deptmaster.Event{
		ID: uuid.NewString(), WalletID: f.wallet.ID,
		AggregateType: deptmaster.AggregateTransaction, AggregateID: txID,
		EventType: deptmaster.EventCreated,
		Data:      map[string]interface{}{"contact_id": contactID, "direction": "lent", "amount": float64(250)},
	}
	results, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{createdTx})
	require.NoError(t, err)
	require.Equal(t, deptmaster.StatusAccepted, results[0].Status)

	undo := deptmaster.Event{
		ID: uuid.NewString(), WalletID: f.wallet.ID,
		AggregateType: deptmaster.AggregateTransaction, AggregateID: txID,
		EventType: deptmaster.EventUndo,
		Data:      map[string]interface{}{"undone_event_id": createdTx.ID},
	}
	results, err = f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{undo})
	require.NoError(t, err)
	require.Equal(t, deptmaster.StatusAccepted, results[0].Status)

	// The undone transaction leaves no trace in the projection.
	p, err := f.sync.Projection(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.NotContains(t, p.Transactions, txID)
}

func TestUndo_ExpiredWindow(t *testing.T) {
	f := newSyncFixture(t)

	contactID := uuid.NewString()
	txID := uuid.NewString()

	createdTx := deptmaster.Event{
		ID: uuid.NewString(), WalletID: f.wallet.ID,
		AggregateType: deptmaster.AggregateTransaction, AggregateID: txID,
		EventType: deptmaster.EventCreated,
		Data:      map[string]interface{}{"contact_id": contactID, "direction": "lent", "amount": float64(10)},
	}
	_, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{
		contactCreated(f.wallet.ID, contactID, "Kim"),
		createdTx,
	})
	require.NoError(t, err)

	// Push the undo from a client whose clock is far past the window.
	f.sync.now = func() time.Time { return time.Now().Add(time.Minute) }

	undo := deptmaster.Event{
		ID: uuid.NewString(), WalletID: f.wallet.ID,
		AggregateType: deptmaster.AggregateTransaction, AggregateID: txID,
		EventType: deptmaster.EventUndo,
		Data:      map[string]interface{}{"undone_event_id": createdTx.ID},
	}
	results, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{undo})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusRejected, results[0].Status)
	assert.Equal(t, deptmaster.ReasonConflict, results[0].Reason)

	// Undoing an event that does not exist is invalid.
	f.sync.now = time.Now
	undoMissing := undo
	undoMissing.ID = uuid.NewString()
	undoMissing.Data = map[string]interface{}{"undone_event_id": uuid.NewString()}
	results, err = f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{undoMissing})
	require.NoError(t, err)
	assert.Equal(t, deptmaster.StatusRejected, results[0].Status)
	assert.Equal(t, deptmaster.ReasonInvalidAggregate, results[0].Reason)
}

func TestRebuild_Idempotent(t *testing.T) {
	f := newSyncFixture(t)

	contactID := uuid.NewString()
	_, err := f.sync.Push(f.owner.ID, f.wallet.ID, []deptmaster.Event{
		contactCreated(f.wallet.ID, contactID, "Ada"),
	})
	require.NoError(t, err)

	require.NoError(t, f.sync.RebuildWallet(f.owner.ID, f.wallet.ID))
	first, err := f.projections.Load(f.wallet.ID)
	require.NoError(t, err)
	firstBytes, err := first.Marshal()
	require.NoError(t, err)

	require.NoError(t, f.sync.RebuildWallet(f.owner.ID, f.wallet.ID))
	second, err := f.projections.Load(f.wallet.ID)
	require.NoError(t, err)
	secondBytes, err := second.Marshal()
	require.NoError(t, err)

	assert.Equal(t, firstBytes, secondBytes)

	// Members cannot trigger rebuilds.
	err = f.sync.RebuildWallet(f.member.ID, f.wallet.ID)
	errors.AssertCode(t, err, 403)
}
