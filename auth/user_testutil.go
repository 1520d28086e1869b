package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T, repo UserRepository) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	users := []*User{
		{ID: uuid.NewString(), Name: "Alice", Email: "alice@example.com", PasswordHash: []byte("hash-a"), CreatedAt: now},
		{ID: uuid.NewString(), Name: "Bob", Email: "bob@example.com", PasswordHash: []byte("hash-b"), CreatedAt: now},
	}

	for i, user := range users {
		err := repo.Upsert(user)
		require.NoError(t, err, "insert user %d should not fail", i)
	}

	for i, user := range users {
		retrieved, err := repo.Get(user.ID)
		require.NoError(t, err, "get user %d should not fail", i)
		assertUser(t, *user, retrieved, fmt.Sprintf("get user %d", i))
	}

	// Get a user that does not exist: zero value, no error
	retrieved, err := repo.Get(uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, "", retrieved.ID, "unknown id should yield the zero user")

	// Get by email
	retrieved, err = repo.GetByEmail("bob@example.com")
	require.NoError(t, err)
	assertUser(t, *users[1], retrieved, "get by email")

	retrieved, err = repo.GetByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, "", retrieved.ID)

	// Update a user
	users[0].Name = "Alice Cooper"
	require.NoError(t, repo.Upsert(users[0]))
	retrieved, err = repo.Get(users[0].ID)
	require.NoError(t, err)
	assertUser(t, *users[0], retrieved, "get after update")

	// List
	list, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Delete
	require.NoError(t, repo.Delete(users[1].ID))
	retrieved, err = repo.Get(users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "", retrieved.ID, "deleted user should be gone")
}

func assertUser(t *testing.T, exp, got User, name string) {
	assert.Equal(t, exp.ID, got.ID, "%s - id", name)
	assert.Equal(t, exp.Name, got.Name, "%s - name", name)
	assert.Equal(t, exp.Email, got.Email, "%s - email", name)
	assert.Equal(t, exp.PasswordHash, got.PasswordHash, "%s - password hash", name)
	assert.Equal(t, exp.IsAdmin, got.IsAdmin, "%s - isAdmin", name)
}
