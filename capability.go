package deptmaster

import (
	"sort"
	"strings"
)

// Capability is one action a member may take on contacts in a group.
type Capability string

const (
	CanView   Capability = "view"
	CanCreate Capability = "create"
	CanEdit   Capability = "edit"
	CanDelete Capability = "delete"
)

// CapabilitySet is an effective set of capabilities. Sets coming from
// different rules combine by union: a broad, less-permissive rule never
// narrows a specific grant.
type CapabilitySet map[Capability]bool

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := CapabilitySet{}
	for _, c := range caps {
		s[c] = true
	}
	return s
}

// AllCapabilities is the full grant owners get.
func AllCapabilities() CapabilitySet {
	return NewCapabilitySet(CanView, CanCreate, CanEdit, CanDelete)
}

func (s CapabilitySet) Has(c Capability) bool { return s[c] }

func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	out := CapabilitySet{}
	for c := range s {
		out[c] = true
	}
	for c := range other {
		out[c] = true
	}
	return out
}

func (s CapabilitySet) Slice() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s CapabilitySet) String() string {
	parts := make([]string, 0, len(s))
	for _, c := range s.Slice() {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}

// Names of the implicit groups every wallet carries. Every member belongs
// to AllMembers, every contact to AllContacts; rules targeting them act as
// wallet-wide defaults.
const (
	AllMembersGroup  = "all_members"
	AllContactsGroup = "all_contacts"
)

// PermissionRule grants a capability set to a user group over a contact
// group. There are no deny rules: absence of any matching rule is a deny.
type PermissionRule struct {
	ID             string        `json:"id"`
	WalletID       string        `json:"wallet_id"`
	UserGroupID    string        `json:"user_group_id"`
	ContactGroupID string        `json:"contact_group_id"`
	Capabilities   CapabilitySet `json:"capabilities"`
}

// ResolveCapabilities computes the effective capability set for a caller
// against a target contact: the union of the capabilities of every rule
// whose user group contains the caller and whose contact group contains the
// target. userGroupIDs and contactGroupIDs must already include the
// implicit all-members / all-contacts group ids.
func ResolveCapabilities(rules []PermissionRule, userGroupIDs, contactGroupIDs []string) CapabilitySet {
	userGroups := map[string]bool{}
	for _, id := range userGroupIDs {
		userGroups[id] = true
	}
	contactGroups := map[string]bool{}
	for _, id := range contactGroupIDs {
		contactGroups[id] = true
	}

	effective := CapabilitySet{}
	for _, rule := range rules {
		if !userGroups[rule.UserGroupID] || !contactGroups[rule.ContactGroupID] {
			continue
		}
		effective = effective.Union(rule.Capabilities)
	}
	return effective
}

// CapabilityForEvent maps an event type to the capability its push needs.
func CapabilityForEvent(t EventType) Capability {
	switch t {
	case EventCreated:
		return CanCreate
	case EventUpdated:
		return CanEdit
	default:
		// DELETED and UNDO both remove state.
		return CanDelete
	}
}
