package inmem

import (
	"testing"

	"github.com/dark-cli/deptmaster/sync/testutil"
)

func TestInMemEventStore(t *testing.T) {
	testutil.TestEventStore(t, NewInMemEventStore())
}

func TestInMemProjectionStore(t *testing.T) {
	testutil.TestProjectionStore(t, NewInMemProjectionStore())
}
