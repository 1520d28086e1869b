package inmem

import (
	"sync"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
)

type InMemGroupRepository struct {
	mu     sync.Locker
	groups []auth.Group
}

func NewInMemGroupRepository() *InMemGroupRepository {
	return &InMemGroupRepository{
		mu:     &sync.Mutex{},
		groups: make([]auth.Group, 0),
	}
}

func (r *InMemGroupRepository) Get(id string) (auth.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, group := range r.groups {
		if group.ID == id {
			return group, nil
		}
	}
	return auth.Group{}, nil
}

func (r *InMemGroupRepository) ListByWallet(walletID string) ([]auth.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make([]auth.Group, 0)
	for _, group := range r.groups {
		if group.WalletID == walletID {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

func (r *InMemGroupRepository) Upsert(group *auth.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, g := range r.groups {
		if g.ID == group.ID {
			r.groups[i] = *group
			return nil
		}
	}

	r.groups = append(r.groups, *group)
	return nil
}

func (r *InMemGroupRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, group := range r.groups {
		if group.ID == id {
			r.groups = append(r.groups[0:i], r.groups[i+1:]...)
			return nil
		}
	}
	return nil
}

type InMemRuleRepository struct {
	mu    sync.Locker
	rules []deptmaster.PermissionRule
}

func NewInMemRuleRepository() *InMemRuleRepository {
	return &InMemRuleRepository{
		mu:    &sync.Mutex{},
		rules: make([]deptmaster.PermissionRule, 0),
	}
}

func (r *InMemRuleRepository) Get(id string) (deptmaster.PermissionRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return deptmaster.PermissionRule{}, nil
}

func (r *InMemRuleRepository) ListByWallet(walletID string) ([]deptmaster.PermissionRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rules := make([]deptmaster.PermissionRule, 0)
	for _, rule := range r.rules {
		if rule.WalletID == walletID {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func (r *InMemRuleRepository) Upsert(rule *deptmaster.PermissionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.rules {
		if existing.ID == rule.ID {
			r.rules[i] = *rule
			return nil
		}
	}

	r.rules = append(r.rules, *rule)
	return nil
}

func (r *InMemRuleRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[0:i], r.rules[i+1:]...)
			return nil
		}
	}
	return nil
}
