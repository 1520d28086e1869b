package services

import (
	"fmt"
	"net/http"

	"github.com/dark-cli/deptmaster/errors"
)

// errUserNotFound returns a 404 for when a user could not be found.
func errUserNotFound(id string) error {
	return errors.New(fmt.Sprintf("no user for id %s", id), errors.NotFound())
}

// errWalletNotFound returns a 404 for when a wallet could not be found. It
// also hides wallets from non-members.
func errWalletNotFound(id string) error {
	return errors.New(fmt.Sprintf("no wallet for id %s", id), errors.NotFound())
}

// errGroupNotFound returns a 404 for when a group could not be found.
func errGroupNotFound(id string) error {
	return errors.New(fmt.Sprintf("no group for id %s", id), errors.NotFound())
}

// errNotWalletOwner returns a 403 for when owner privilege is needed.
func errNotWalletOwner(id string) error {
	return errors.New(fmt.Sprintf("you are not the owner of wallet %s", id), errors.Forbidden())
}

func errInvalidCredentials() error {
	return errors.New("invalid email or password", errors.WithCode(http.StatusUnauthorized))
}
