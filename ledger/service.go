package ledger

import (
	"github.com/dark-cli/deptmaster"
	authservices "github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/errors"
)

var errContactNotFound = errors.New("contact not found", errors.NotFound())

// Service is the read side over the wallet projections. Everything it
// returns is filtered down to the contacts the caller may view, so the
// listings always agree with what a pull would let the caller fold.
type Service struct {
	projections deptmaster.ProjectionStore
	permissions *authservices.PermissionService
	index       deptmaster.ContactIndex
}

// NewService builds the read service. index may be nil, in which case the
// q parameter of Contacts is ignored.
func NewService(
	projections deptmaster.ProjectionStore,
	permissions *authservices.PermissionService,
	index deptmaster.ContactIndex,
) *Service {
	return &Service{
		projections: projections,
		permissions: permissions,
		index:       index,
	}
}

// Contacts lists the caller's viewable contacts, optionally narrowed by a
// full-text query.
func (s *Service) Contacts(callerID, walletID, q string) ([]deptmaster.Contact, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return nil, err
	}

	projection, err := s.projections.Load(walletID)
	if err != nil {
		return nil, err
	}

	contacts, err := s.viewableContacts(callerID, projection)
	if err != nil {
		return nil, err
	}

	if q == "" || s.index == nil {
		return contacts, nil
	}

	ids, err := s.index.Search(deptmaster.ContactSearch{
		WalletID: walletID,
		Q:        q,
		Limit:    uint64(len(projection.Contacts)),
	})
	if err != nil {
		return nil, err
	}

	matched := make(map[string]bool, len(ids))
	for _, id := range ids {
		matched[id] = true
	}

	out := make([]deptmaster.Contact, 0, len(contacts))
	for _, contact := range contacts {
		if matched[contact.ID] {
			out = append(out, contact)
		}
	}
	return out, nil
}

// Transactions lists the active transactions of one contact. A contact the
// caller may not view is indistinguishable from a missing one.
func (s *Service) Transactions(callerID, walletID, contactID string) ([]deptmaster.Transaction, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return nil, err
	}

	projection, err := s.projections.Load(walletID)
	if err != nil {
		return nil, err
	}

	contact, ok := projection.Contacts[contactID]
	if !ok || contact.Deleted {
		return nil, errContactNotFound
	}

	allowed, err := s.canView(callerID, walletID, contactID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errContactNotFound
	}

	return projection.ActiveTransactions(contactID), nil
}

// Balance sums the caller's viewable active transactions, lent positive,
// owed negative.
func (s *Service) Balance(callerID, walletID string) (int64, error) {
	if err := s.permissions.CheckMember(callerID, walletID); err != nil {
		return 0, err
	}

	projection, err := s.projections.Load(walletID)
	if err != nil {
		return 0, err
	}

	viewable := map[string]bool{}
	var total int64
	for _, t := range projection.ActiveTransactions("") {
		allowed, ok := viewable[t.ContactID]
		if !ok {
			allowed, err = s.canView(callerID, walletID, t.ContactID)
			if err != nil {
				return 0, err
			}
			viewable[t.ContactID] = allowed
		}
		if !allowed {
			continue
		}

		switch t.Direction {
		case deptmaster.DirectionLent:
			total += t.Amount
		case deptmaster.DirectionOwed:
			total -= t.Amount
		}
	}
	return total, nil
}

func (s *Service) viewableContacts(callerID string, projection *deptmaster.Projection) ([]deptmaster.Contact, error) {
	contacts := projection.ActiveContacts()
	out := make([]deptmaster.Contact, 0, len(contacts))
	for _, contact := range contacts {
		allowed, err := s.canView(callerID, projection.WalletID, contact.ID)
		if err != nil {
			return nil, err
		}
		if allowed {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (s *Service) canView(callerID, walletID, contactID string) (bool, error) {
	caps, err := s.permissions.CapabilitiesForContact(walletID, callerID, contactID)
	if err != nil {
		return false, err
	}
	return caps.Has(deptmaster.CanView), nil
}
