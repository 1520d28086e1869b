package auth

import (
	"time"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	PasswordHash []byte `json:"-"`

	IsAdmin bool `json:"isAdmin"`

	CreatedAt time.Time `json:"createdAt"`
}

type UserRepository interface {
	Get(string) (User, error)
	GetByEmail(string) (User, error)
	Upsert(*User) error
	Delete(string) error

	List() ([]User, error)
}
