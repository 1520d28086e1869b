package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/errors"
)

const fingerprintDomain = "deptmaster/permissions/v1"

// PermissionService answers one question: what may this member do to this
// contact. Grants come from the wallet's rule matrix, resolved as the union
// of every matching user-group x contact-group rule. The wallet owner
// bypasses the matrix entirely.
type PermissionService struct {
	wallets auth.WalletRepository
	groups  auth.GroupRepository
	rules   auth.RuleRepository
}

func NewPermissionService(wallets auth.WalletRepository, groups auth.GroupRepository, rules auth.RuleRepository) *PermissionService {
	return &PermissionService{
		wallets: wallets,
		groups:  groups,
		rules:   rules,
	}
}

// --- Groups

func (s *PermissionService) CreateGroup(callerID, walletID, name string, kind auth.GroupKind) (auth.Group, error) {
	if !kind.Valid() {
		return auth.Group{}, errors.New(fmt.Sprintf("invalid group kind %s", kind), errors.BadRequest())
	}

	if err := s.requireOwner(callerID, walletID); err != nil {
		return auth.Group{}, err
	}

	group := auth.Group{
		ID:       uuid.NewString(),
		WalletID: walletID,
		Name:     name,
		Kind:     kind,
	}
	if err := s.groups.Upsert(&group); err != nil {
		return auth.Group{}, err
	}

	return group, nil
}

func (s *PermissionService) DeleteGroup(callerID, walletID, groupID string) error {
	if err := s.requireOwner(callerID, walletID); err != nil {
		return err
	}

	group, err := s.getGroup(walletID, groupID)
	if err != nil {
		return err
	}
	if group.Implicit {
		return errors.New("implicit groups cannot be deleted", errors.BadRequest())
	}

	// Rules referencing the group go with it.
	rules, err := s.rules.ListByWallet(walletID)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if rule.UserGroupID == groupID || rule.ContactGroupID == groupID {
			if err := s.rules.Delete(rule.ID); err != nil {
				return err
			}
		}
	}

	return s.groups.Delete(groupID)
}

func (s *PermissionService) ListGroups(callerID, walletID string) ([]auth.Group, error) {
	if err := s.requireMember(callerID, walletID); err != nil {
		return nil, err
	}
	return s.groups.ListByWallet(walletID)
}

func (s *PermissionService) AddToGroup(callerID, walletID, groupID, memberID string) (auth.Group, error) {
	if err := s.requireOwner(callerID, walletID); err != nil {
		return auth.Group{}, err
	}

	group, err := s.getGroup(walletID, groupID)
	if err != nil {
		return auth.Group{}, err
	}
	if group.Implicit {
		return auth.Group{}, errors.New("implicit groups contain everything already", errors.BadRequest())
	}

	for _, id := range group.MemberIDs {
		if id == memberID {
			return group, nil
		}
	}
	group.MemberIDs = append(group.MemberIDs, memberID)

	if err := s.groups.Upsert(&group); err != nil {
		return auth.Group{}, err
	}
	return group, nil
}

func (s *PermissionService) RemoveFromGroup(callerID, walletID, groupID, memberID string) (auth.Group, error) {
	if err := s.requireOwner(callerID, walletID); err != nil {
		return auth.Group{}, err
	}

	group, err := s.getGroup(walletID, groupID)
	if err != nil {
		return auth.Group{}, err
	}
	if group.Implicit {
		return auth.Group{}, errors.New("implicit groups cannot be narrowed", errors.BadRequest())
	}

	for i, id := range group.MemberIDs {
		if id == memberID {
			group.MemberIDs = append(group.MemberIDs[0:i], group.MemberIDs[i+1:]...)
			if err := s.groups.Upsert(&group); err != nil {
				return auth.Group{}, err
			}
			break
		}
	}
	return group, nil
}

// --- Rules

func (s *PermissionService) UpsertRule(callerID, walletID string, rule deptmaster.PermissionRule) (deptmaster.PermissionRule, error) {
	if err := s.requireOwner(callerID, walletID); err != nil {
		return deptmaster.PermissionRule{}, err
	}

	userGroup, err := s.getGroup(walletID, rule.UserGroupID)
	if err != nil {
		return deptmaster.PermissionRule{}, err
	}
	if userGroup.Kind != auth.GroupOfMembers {
		return deptmaster.PermissionRule{}, errors.New("user group side must be a members group", errors.BadRequest())
	}

	contactGroup, err := s.getGroup(walletID, rule.ContactGroupID)
	if err != nil {
		return deptmaster.PermissionRule{}, err
	}
	if contactGroup.Kind != auth.GroupOfContacts {
		return deptmaster.PermissionRule{}, errors.New("contact group side must be a contacts group", errors.BadRequest())
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.WalletID = walletID

	if err := s.rules.Upsert(&rule); err != nil {
		return deptmaster.PermissionRule{}, err
	}
	return rule, nil
}

func (s *PermissionService) DeleteRule(callerID, walletID, ruleID string) error {
	if err := s.requireOwner(callerID, walletID); err != nil {
		return err
	}

	rule, err := s.rules.Get(ruleID)
	if err != nil {
		return err
	}
	if rule.ID == "" || rule.WalletID != walletID {
		return errors.New(fmt.Sprintf("no rule for id %s", ruleID), errors.NotFound())
	}

	return s.rules.Delete(ruleID)
}

func (s *PermissionService) ListRules(callerID, walletID string) ([]deptmaster.PermissionRule, error) {
	if err := s.requireMember(callerID, walletID); err != nil {
		return nil, err
	}
	return s.rules.ListByWallet(walletID)
}

// --- Resolution

// CapabilitiesForContact resolves the caller's effective capability set on
// one contact. An empty contactID stands for a contact that does not exist
// yet: only the implicit all-contacts group matches, which is how create
// rights are granted.
func (s *PermissionService) CapabilitiesForContact(walletID, userID, contactID string) (deptmaster.CapabilitySet, error) {
	wallet, err := s.wallets.Get(walletID)
	if err != nil {
		return nil, err
	}
	if wallet.ID == "" {
		return nil, errWalletNotFound(walletID)
	}
	if _, ok := wallet.Member(userID); !ok {
		return deptmaster.CapabilitySet{}, nil
	}
	if wallet.OwnerID == userID {
		return deptmaster.AllCapabilities(), nil
	}

	groups, err := s.groups.ListByWallet(walletID)
	if err != nil {
		return nil, err
	}

	var userGroupIDs, contactGroupIDs []string
	for _, group := range groups {
		switch group.Kind {
		case auth.GroupOfMembers:
			if group.Contains(userID) {
				userGroupIDs = append(userGroupIDs, group.ID)
			}
		case auth.GroupOfContacts:
			if group.Implicit || (contactID != "" && group.Contains(contactID)) {
				contactGroupIDs = append(contactGroupIDs, group.ID)
			}
		}
	}

	rules, err := s.rules.ListByWallet(walletID)
	if err != nil {
		return nil, err
	}

	return deptmaster.ResolveCapabilities(rules, userGroupIDs, contactGroupIDs), nil
}

// Fingerprint condenses everything that shapes the caller's permissions
// into one hash. Clients cache it: a change means their permitted event set
// may have shifted, so they clear local state and resync from scratch.
func (s *PermissionService) Fingerprint(walletID, userID string) (string, error) {
	wallet, err := s.wallets.Get(walletID)
	if err != nil {
		return "", err
	}
	if wallet.ID == "" {
		return "", errWalletNotFound(walletID)
	}

	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	if wallet.OwnerID == userID {
		h.Write([]byte("owner"))
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	groups, err := s.groups.ListByWallet(walletID)
	if err != nil {
		return "", err
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	for _, group := range groups {
		h.Write([]byte(group.ID))
		h.Write([]byte{0})
		h.Write([]byte(group.Kind))
		h.Write([]byte{0})
		memberIDs := append([]string(nil), group.MemberIDs...)
		sort.Strings(memberIDs)
		for _, id := range memberIDs {
			h.Write([]byte(id))
			h.Write([]byte{0})
		}
	}

	rules, err := s.rules.ListByWallet(walletID)
	if err != nil {
		return "", err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	for _, rule := range rules {
		h.Write([]byte(rule.ID))
		h.Write([]byte{0})
		h.Write([]byte(rule.UserGroupID))
		h.Write([]byte{0})
		h.Write([]byte(rule.ContactGroupID))
		h.Write([]byte{0})
		h.Write([]byte(rule.Capabilities.String()))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CheckMember returns nil when the caller belongs to the wallet. Outsiders
// get a 404 so the wallet id leaks nothing.
func (s *PermissionService) CheckMember(callerID, walletID string) error {
	return s.requireMember(callerID, walletID)
}

// CheckOwner returns nil when the caller owns the wallet.
func (s *PermissionService) CheckOwner(callerID, walletID string) error {
	return s.requireOwner(callerID, walletID)
}

// --- Helpers

func (s *PermissionService) requireMember(callerID, walletID string) error {
	wallet, err := s.wallets.Get(walletID)
	if err != nil {
		return err
	}
	if wallet.ID == "" {
		return errWalletNotFound(walletID)
	}
	if _, ok := wallet.Member(callerID); !ok {
		return errWalletNotFound(walletID)
	}
	return nil
}

func (s *PermissionService) requireOwner(callerID, walletID string) error {
	wallet, err := s.wallets.Get(walletID)
	if err != nil {
		return err
	}
	if wallet.ID == "" {
		return errWalletNotFound(walletID)
	}
	if _, ok := wallet.Member(callerID); !ok {
		return errWalletNotFound(walletID)
	}
	if wallet.OwnerID != callerID {
		return errNotWalletOwner(walletID)
	}
	return nil
}

func (s *PermissionService) getGroup(walletID, groupID string) (auth.Group, error) {
	group, err := s.groups.Get(groupID)
	if err != nil {
		return auth.Group{}, err
	}
	if group.ID == "" || group.WalletID != walletID {
		return auth.Group{}, errGroupNotFound(groupID)
	}
	return group, nil
}
