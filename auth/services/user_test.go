package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-cli/deptmaster/auth/inmem"
	"github.com/dark-cli/deptmaster/errors"
)

type staticEncoder struct{}

func (staticEncoder) Encode(userID string) (string, error) {
	return "token-" + userID, nil
}

func TestUserService_SignUpLogin(t *testing.T) {
	service := NewUserService(inmem.NewInMemUserRepository(), staticEncoder{})

	user, err := service.SignUp("Alice", "Alice@Example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	// Emails are normalized
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)

	// Same email twice: conflict
	_, err = service.SignUp("Imposter", "alice@example.com", "other")
	errors.AssertCode(t, err, 409)

	// Login with the right password
	logged, token, err := service.Login("alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Equal(t, "token-"+user.ID, token)

	// Wrong password and unknown email look identical
	_, _, err = service.Login("alice@example.com", "nope")
	errors.AssertCode(t, err, 401)
	_, _, err = service.Login("nobody@example.com", "s3cret")
	errors.AssertCode(t, err, 401)
}

func TestUserService_Get(t *testing.T) {
	service := NewUserService(inmem.NewInMemUserRepository(), staticEncoder{})

	user, err := service.SignUp("Bob", "bob@example.com", "pw")
	require.NoError(t, err)

	retrieved, err := service.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", retrieved.Name)

	_, err = service.Get("missing")
	errors.AssertCode(t, err, 404)
}
