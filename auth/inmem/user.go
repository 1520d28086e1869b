package inmem

import (
	"sync"

	"github.com/dark-cli/deptmaster/auth"
)

type InMemUserRepository struct {
	mu    sync.Locker
	users []auth.User
}

func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		mu:    &sync.Mutex{},
		users: make([]auth.User, 0),
	}
}

func (r *InMemUserRepository) Get(userID string) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return auth.User{}, nil
}

func (r *InMemUserRepository) GetByEmail(email string) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return auth.User{}, nil
}

func (r *InMemUserRepository) List() ([]auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]auth.User, len(r.users))
	copy(users, r.users)
	return users, nil
}

func (r *InMemUserRepository) Upsert(user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, u := range r.users {
		if user.ID == u.ID {
			r.users[i] = *user
			return nil
		}
	}

	r.users = append(r.users, *user)
	return nil
}

func (r *InMemUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID == id {
			r.users = append(r.users[0:i], r.users[i+1:]...)
			return nil
		}
	}
	return nil
}
