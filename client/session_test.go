package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	authhttp "github.com/dark-cli/deptmaster/auth/http"
	authinmem "github.com/dark-cli/deptmaster/auth/inmem"
	authservices "github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/errors"
	dmgin "github.com/dark-cli/deptmaster/gin"
	"github.com/dark-cli/deptmaster/jwt"
	"github.com/dark-cli/deptmaster/log"
	synchttp "github.com/dark-cli/deptmaster/sync/http"
	"github.com/dark-cli/deptmaster/sync/inmem"
	syncservices "github.com/dark-cli/deptmaster/sync/services"
	dmusers "github.com/dark-cli/deptmaster/users"
)

var testSigningKey = []byte("test-signing-key")

type serverFixture struct {
	ts *httptest.Server

	permissions *authservices.PermissionService
	sync        *syncservices.SyncService

	owner  auth.User
	member auth.User
	wallet auth.Wallet
}

func newServerFixture(t *testing.T) *serverFixture {
	userRepo := authinmem.NewInMemUserRepository()
	walletRepo := authinmem.NewInMemWalletRepository()
	groupRepo := authinmem.NewInMemGroupRepository()
	ruleRepo := authinmem.NewInMemRuleRepository()

	users := authservices.NewUserService(userRepo, jwt.NewEncodeDecoder(testSigningKey))
	wallets := authservices.NewWalletService(walletRepo, userRepo, groupRepo)
	permissions := authservices.NewPermissionService(walletRepo, groupRepo, ruleRepo)
	sync := syncservices.NewSyncService(
		inmem.NewInMemEventStore(),
		inmem.NewInMemProjectionStore(),
		nil,
		permissions,
		walletRepo,
		log.New("test"),
	)

	srv := dmgin.NewServer()
	authhttp.RegisterUserEndpoints(srv, users, testSigningKey)
	authhttp.RegisterWalletEndpoints(srv, wallets, testSigningKey)
	authhttp.RegisterPermissionEndpoints(srv, permissions, testSigningKey)
	synchttp.RegisterSyncEndpoints(srv, sync, dmusers.NewAuthenticator(users), testSigningKey)

	f := &serverFixture{
		ts:          httptest.NewServer(srv),
		permissions: permissions,
		sync:        sync,
	}
	t.Cleanup(f.ts.Close)

	var err error
	f.owner, err = users.SignUp("Owner", "owner@example.com", "pw")
	require.NoError(t, err)
	f.member, err = users.SignUp("Member", "member@example.com", "pw")
	require.NoError(t, err)

	f.wallet, err = wallets.Create(f.owner.ID, "Family")
	require.NoError(t, err)
	f.wallet, err = wallets.Invite(f.owner.ID, f.wallet.ID, "member@example.com")
	require.NoError(t, err)

	return f
}

// grantAll lets every member do everything on every contact, and returns
// the rule so tests can revoke it again.
func (f *serverFixture) grantAll(t *testing.T) deptmaster.PermissionRule {
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

	rule, err := f.permissions.UpsertRule(f.owner.ID, f.wallet.ID, deptmaster.PermissionRule{
		UserGroupID:    members.ID,
		ContactGroupID: contacts.ID,
		Capabilities:   deptmaster.AllCapabilities(),
	})
	require.NoError(t, err)
	return rule
}

func (f *serverFixture) api(email string) *API {
	return NewAPI(email, "pw", f.ts.Client(), f.ts.URL)
}

func (f *serverFixture) session(email string) *Session {
	return NewSession(f.api(email), NewInMemStore(f.wallet.ID), f.wallet.ID, log.New("test"))
}

// offlineSession cannot reach any server until its api is swapped.
func (f *serverFixture) offlineSession() *Session {
	api := NewAPI("owner@example.com", "pw", http.DefaultClient, "http://127.0.0.1:1")
	return NewSession(api, NewInMemStore(f.wallet.ID), f.wallet.ID, log.New("test"))
}

func activeNames(t *testing.T, s *Session) []string {
	p, err := s.Projection()
	require.NoError(t, err)

	contacts := p.ActiveContacts()
	names := make([]string, len(contacts))
	for i, c := range contacts {
		names[i] = c.Name
	}
	return names
}

func TestSession_CreateAndConverge(t *testing.T) {
	f := newServerFixture(t)
	f.grantAll(t)
	ctx := context.Background()

	ownerSession := f.session("owner@example.com")
	memberSession := f.session("member@example.com")

	_, err := ownerSession.CreateContact(map[string]interface{}{"name": "Carol"})
	require.NoError(t, err)
	require.NoError(t, ownerSession.Sync(ctx))

	require.NoError(t, memberSession.Sync(ctx))
	assert.Equal(t, []string{"Carol"}, activeNames(t, memberSession))

	// Both replicas hold byte-identical state.
	ownerProjection, err := ownerSession.Projection()
	require.NoError(t, err)
	memberProjection, err := memberSession.Projection()
	require.NoError(t, err)

	ownerBytes, err := ownerProjection.Marshal()
	require.NoError(t, err)
	memberBytes, err := memberProjection.Marshal()
	require.NoError(t, err)
	assert.Equal(t, ownerBytes, memberBytes)
}

func TestSession_UpdatePropagates(t *testing.T) {
	f := newServerFixture(t)
	f.grantAll(t)
	ctx := context.Background()

	ownerSession := f.session("owner@example.com")
	memberSession := f.session("member@example.com")

	carolID, err := ownerSession.CreateContact(map[string]interface{}{"name": "Carol"})
	require.NoError(t, err)
	require.NoError(t, ownerSession.Sync(ctx))

	require.NoError(t, memberSession.Sync(ctx))
	require.NoError(t, memberSession.UpdateContact(carolID, map[string]interface{}{"phone": "555-0123"}))
	require.NoError(t, memberSession.Sync(ctx))

	require.NoError(t, ownerSession.Sync(ctx))
	p, err := ownerSession.Projection()
	require.NoError(t, err)
	require.Contains(t, p.Contacts, carolID)
	assert.Equal(t, "Carol", p.Contacts[carolID].Name, "update must merge, not replace")
	assert.Equal(t, "555-0123", p.Contacts[carolID].Phone)
}

func TestSession_OfflineConvergence(t *testing.T) {
	f := newServerFixture(t)
	f.grantAll(t)
	ctx := context.Background()

	ownerSession := f.offlineSession()
	memberSession := f.offlineSession()

	for _, name := range []string{"One", "Two", "Three"} {
		_, err := ownerSession.CreateContact(map[string]interface{}{"name": name})
		require.NoError(t, err)
	}
	for _, name := range []string{"Four", "Five"} {
		_, err := memberSession.CreateContact(map[string]interface{}{"name": name})
		require.NoError(t, err)
	}

	// Offline, each replica only sees its own writes.
	assert.Len(t, activeNames(t, ownerSession), 3)
	assert.Len(t, activeNames(t, memberSession), 2)

	// Back online.
	ownerSession.api = f.api("owner@example.com")
	memberSession.api = f.api("member@example.com")

	require.NoError(t, ownerSession.Sync(ctx))
	require.NoError(t, memberSession.Sync(ctx))
	require.NoError(t, ownerSession.Sync(ctx))

	assert.Len(t, activeNames(t, ownerSession), 5)
	assert.Len(t, activeNames(t, memberSession), 5)

	ownerProjection, err := ownerSession.Projection()
	require.NoError(t, err)
	memberProjection, err := memberSession.Projection()
	require.NoError(t, err)

	ownerBytes, err := ownerProjection.Marshal()
	require.NoError(t, err)
	memberBytes, err := memberProjection.Marshal()
	require.NoError(t, err)
	assert.Equal(t, ownerBytes, memberBytes)
}

func TestSession_OfflineQueueSurvives(t *testing.T) {
	f := newServerFixture(t)

	s := f.offlineSession()
	_, err := s.CreateContact(map[string]interface{}{"name": "Queued"})
	require.NoError(t, err, "creating offline must not fail")

	assert.Error(t, s.Sync(context.Background()))

	queue, err := s.store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.False(t, queue[0].Synced, "unsynced events must survive network failure")

	// The local projection already shows the contact.
	assert.Equal(t, []string{"Queued"}, activeNames(t, s))
}

func TestSession_QuickDeleteEmitsUndo(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	s := f.session("owner@example.com")

	contactID, err := s.CreateContact(map[string]interface{}{"name": "Zoe"})
	require.NoError(t, err)

	txID, err := s.CreateTransaction(contactID, map[string]interface{}{
		"direction": "lent",
		"amount":    float64(250),
	})
	require.NoError(t, err)

	// Deleting right away voids the creation instead of tombstoning.
	require.NoError(t, s.DeleteTransaction(txID))
	require.NoError(t, s.Sync(ctx))

	p, err := s.Projection()
	require.NoError(t, err)
	assert.NotContains(t, p.Transactions, txID, "undone transaction must leave no trace")

	serverProjection, err := f.sync.Projection(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.NotContains(t, serverProjection.Transactions, txID)

	// Past the window the same call tombstones.
	otherTxID, err := s.CreateTransaction(contactID, map[string]interface{}{
		"direction": "owed",
		"amount":    float64(10),
	})
	require.NoError(t, err)
	require.NoError(t, s.Sync(ctx))

	s.now = func() time.Time { return time.Now().Add(time.Minute) }
	require.NoError(t, s.DeleteTransaction(otherTxID))
	require.NoError(t, s.Sync(ctx))

	p, err = s.Projection()
	require.NoError(t, err)
	require.Contains(t, p.Transactions, otherTxID)
	assert.True(t, p.Transactions[otherTxID].Deleted)
}

func TestSession_PermissionChangeClearsAndResyncs(t *testing.T) {
	f := newServerFixture(t)
	rule := f.grantAll(t)
	ctx := context.Background()

	ownerSession := f.session("owner@example.com")
	_, err := ownerSession.CreateContact(map[string]interface{}{"name": "Secret"})
	require.NoError(t, err)
	require.NoError(t, ownerSession.Sync(ctx))

	memberSession := f.session("member@example.com")
	require.NoError(t, memberSession.Sync(ctx))
	assert.Len(t, activeNames(t, memberSession), 1)

	// Revoking the grant changes the fingerprint; the next sync clears and
	// repulls, and the contact is gone from the member's replica.
	require.NoError(t, f.permissions.DeleteRule(f.owner.ID, f.wallet.ID, rule.ID))
	require.NoError(t, memberSession.Sync(ctx))
	assert.Len(t, activeNames(t, memberSession), 0)
}

func TestSession_RejectedEventIsDropped(t *testing.T) {
	f := newServerFixture(t)

	// No rules: the member cannot create contacts.
	s := f.session("member@example.com")
	_, err := s.CreateContact(map[string]interface{}{"name": "Denied"})
	require.Error(t, err)
	errors.AssertCode(t, err, 403)

	queue, err := s.store.Queue()
	require.NoError(t, err)
	assert.Len(t, queue, 0, "rejected events must not linger in the queue")

	serverProjection, err := f.sync.Projection(f.owner.ID, f.wallet.ID)
	require.NoError(t, err)
	assert.Len(t, serverProjection.Contacts, 0)
}

func TestSession_UndoContactWithinWindow(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	s := f.session("owner@example.com")
	contactID, err := s.CreateContact(map[string]interface{}{"name": "Oops"})
	require.NoError(t, err)

	require.NoError(t, s.Undo(deptmaster.AggregateContact, contactID))
	require.NoError(t, s.Sync(ctx))

	p, err := s.Projection()
	require.NoError(t, err)
	assert.NotContains(t, p.Contacts, contactID)

	// Nothing left to undo.
	err = s.Undo(deptmaster.AggregateContact, uuid.NewString())
	errors.AssertCode(t, err, 404)
}

func TestSession_NotificationWakesReplica(t *testing.T) {
	f := newServerFixture(t)
	f.grantAll(t)

	ownerSession := f.session("owner@example.com")
	memberSession := f.session("member@example.com")

	_, err := ownerSession.CreateContact(map[string]interface{}{"name": "Early"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go memberSession.Run(ctx, time.Hour)

	// The startup sync picks up what happened before the replica came up.
	require.Eventually(t, func() bool {
		p, err := memberSession.Projection()
		return err == nil && len(p.ActiveContacts()) == 1
	}, 5*time.Second, 10*time.Millisecond, "startup sync never ran")

	// The second contact arrives over the notification stream, well before
	// the hourly tick.
	_, err = ownerSession.CreateContact(map[string]interface{}{"name": "Late"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, err := memberSession.Projection()
		return err == nil && len(p.ActiveContacts()) == 2
	}, 5*time.Second, 10*time.Millisecond, "notification never woke the replica")
}
