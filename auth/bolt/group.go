package bolt

import (
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
)

var (
	groupBucket = []byte("groups")
	ruleBucket  = []byte("rules")
)

type GroupRepository struct {
	Driver *Driver
}

func NewGroupRepository(driver *Driver) *GroupRepository {
	return &GroupRepository{Driver: driver}
}

func (r *GroupRepository) Get(id string) (auth.Group, error) {
	var group auth.Group
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(groupBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &group)
	})
	return group, err
}

func (r *GroupRepository) ListByWallet(walletID string) ([]auth.Group, error) {
	groups := make([]auth.Group, 0)
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(groupBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var group auth.Group
			if err := json.Unmarshal(data, &group); err != nil {
				return err
			}
			if group.WalletID == walletID {
				groups = append(groups, group)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepository) Upsert(group *auth.Group) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		return tx.Bucket(groupBucket).Put([]byte(group.ID), data)
	})
}

func (r *GroupRepository) Delete(id string) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(groupBucket).Delete([]byte(id))
	})
}

type RuleRepository struct {
	Driver *Driver
}

func NewRuleRepository(driver *Driver) *RuleRepository {
	return &RuleRepository{Driver: driver}
}

func (r *RuleRepository) Get(id string) (deptmaster.PermissionRule, error) {
	var rule deptmaster.PermissionRule
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ruleBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &rule)
	})
	return rule, err
}

func (r *RuleRepository) ListByWallet(walletID string) ([]deptmaster.PermissionRule, error) {
	rules := make([]deptmaster.PermissionRule, 0)
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ruleBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var rule deptmaster.PermissionRule
			if err := json.Unmarshal(data, &rule); err != nil {
				return err
			}
			if rule.WalletID == walletID {
				rules = append(rules, rule)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepository) Upsert(rule *deptmaster.PermissionRule) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rule)
		if err != nil {
			return err
		}
		return tx.Bucket(ruleBucket).Put([]byte(rule.ID), data)
	})
}

func (r *RuleRepository) Delete(id string) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ruleBucket).Delete([]byte(id))
	})
}
