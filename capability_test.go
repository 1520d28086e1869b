package deptmaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCapabilities_Union(t *testing.T) {
	// A default rule granting view to everyone must not narrow a specific
	// full grant matching the same pair.
	defaultRule := PermissionRule{
		UserGroupID:    "all-members",
		ContactGroupID: "all-contacts",
		Capabilities:   NewCapabilitySet(CanView),
	}
	vipRule := PermissionRule{
		UserGroupID:    "group-a",
		ContactGroupID: "group-vip",
		Capabilities:   AllCapabilities(),
	}
	rules := []PermissionRule{defaultRule, vipRule}

	// Member of group-a, contact in group-vip: full capabilities.
	caps := ResolveCapabilities(rules,
		[]string{"all-members", "group-a"},
		[]string{"all-contacts", "group-vip"},
	)
	assert.True(t, caps.Has(CanView))
	assert.True(t, caps.Has(CanCreate))
	assert.True(t, caps.Has(CanEdit))
	assert.True(t, caps.Has(CanDelete))

	// Plain member against a contact outside the vip group: default only.
	caps = ResolveCapabilities(rules,
		[]string{"all-members"},
		[]string{"all-contacts"},
	)
	assert.True(t, caps.Has(CanView))
	assert.False(t, caps.Has(CanEdit))
}

func TestResolveCapabilities_DenyByDefault(t *testing.T) {
	caps := ResolveCapabilities(nil, []string{"all-members"}, []string{"all-contacts"})
	assert.Empty(t, caps)

	// A rule that matches on neither axis grants nothing.
	rules := []PermissionRule{{
		UserGroupID:    "group-a",
		ContactGroupID: "group-vip",
		Capabilities:   AllCapabilities(),
	}}
	caps = ResolveCapabilities(rules, []string{"all-members"}, []string{"all-contacts"})
	assert.Empty(t, caps)
}

func TestCapabilityForEvent(t *testing.T) {
	assert.Equal(t, CanCreate, CapabilityForEvent(EventCreated))
	assert.Equal(t, CanEdit, CapabilityForEvent(EventUpdated))
	assert.Equal(t, CanDelete, CapabilityForEvent(EventDeleted))
	assert.Equal(t, CanDelete, CapabilityForEvent(EventUndo))
}

func TestCapabilitySetString(t *testing.T) {
	assert.Equal(t, "create,view", NewCapabilitySet(CanView, CanCreate).String())
}
