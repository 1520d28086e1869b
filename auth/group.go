package auth

import (
	"github.com/dark-cli/deptmaster"
)

type GroupKind string

const (
	GroupOfMembers  GroupKind = "members"
	GroupOfContacts GroupKind = "contacts"
)

func (k GroupKind) Valid() bool {
	return k == GroupOfMembers || k == GroupOfContacts
}

// Group gathers wallet members or contacts so permission rules can target
// them as a unit. The implicit all-members and all-contacts groups are
// created with the wallet and contain everything without storing ids.
type Group struct {
	ID       string    `json:"id"`
	WalletID string    `json:"walletId"`
	Name     string    `json:"name"`
	Kind     GroupKind `json:"kind"`

	Implicit bool `json:"implicit"`

	MemberIDs []string `json:"memberIds"`
}

func (g Group) Contains(id string) bool {
	if g.Implicit {
		return true
	}
	for _, memberID := range g.MemberIDs {
		if memberID == id {
			return true
		}
	}
	return false
}

type GroupRepository interface {
	Get(string) (Group, error)
	ListByWallet(string) ([]Group, error)

	Upsert(*Group) error
	Delete(string) error
}

type RuleRepository interface {
	Get(string) (deptmaster.PermissionRule, error)
	ListByWallet(string) ([]deptmaster.PermissionRule, error)

	Upsert(*deptmaster.PermissionRule) error
	Delete(string) error
}
