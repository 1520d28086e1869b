package bolt

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/dark-cli/deptmaster/auth"
)

func createDriver(t *testing.T) (*Driver, func()) {
	tmpFile, err := ioutil.TempFile("", "")
	if err != nil {
		t.Fatal("could not create tmp file:", err)
	}

	filename := tmpFile.Name()
	driver := &Driver{}
	if err := driver.Open(filename); err != nil {
		os.Remove(filename)
		t.Fatalf("could not open bolt on file %s: %v", filename, err)
	}

	return driver, func() {
		driver.Close()
		os.Remove(filename)
	}
}

func TestUserRepository(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	auth.TestUserRepository(t, NewUserRepository(driver))
}

func TestWalletRepository(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	auth.TestWalletRepository(t, NewWalletRepository(driver))
}

func TestGroupRepository(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	auth.TestGroupRepository(t, NewGroupRepository(driver))
}

func TestRuleRepository(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	auth.TestRuleRepository(t, NewRuleRepository(driver))
}
