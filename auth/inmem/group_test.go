package inmem

import (
	"testing"

	"github.com/dark-cli/deptmaster/auth"
)

func TestInMemGroupRepository(t *testing.T) {
	repo := NewInMemGroupRepository()
	auth.TestGroupRepository(t, repo)
}

func TestInMemRuleRepository(t *testing.T) {
	repo := NewInMemRuleRepository()
	auth.TestRuleRepository(t, repo)
}
