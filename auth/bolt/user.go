package bolt

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster/auth"
)

var userBucket = []byte("users")

// userRecord is the persisted form of a user. auth.User hides the password
// hash from json for the transport; the repository needs it back.
type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newUserRecord(user *auth.User) userRecord {
	return userRecord{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
	}
}

func (r userRecord) format() auth.User {
	return auth.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    r.CreatedAt,
	}
}

// UserRepository stores and retrieves users in a bolt database, keyed by
// their id. Lookups by email scan the bucket.
type UserRepository struct {
	Driver *Driver
}

func NewUserRepository(driver *Driver) *UserRepository {
	return &UserRepository{Driver: driver}
}

func (r *UserRepository) Get(id string) (auth.User, error) {
	var user auth.User
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(userBucket).Get([]byte(id))
		if data == nil {
			return nil
		}

		var record userRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		user = record.format()
		return nil
	})
	return user, err
}

func (r *UserRepository) GetByEmail(email string) (auth.User, error) {
	var user auth.User
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(userBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var record userRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return err
			}
			if record.Email == email {
				user = record.format()
				return nil
			}
		}
		return nil
	})
	return user, err
}

func (r *UserRepository) Upsert(user *auth.User) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(newUserRecord(user))
		if err != nil {
			return err
		}
		return tx.Bucket(userBucket).Put([]byte(user.ID), data)
	})
}

func (r *UserRepository) Delete(id string) error {
	return r.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(userBucket).Delete([]byte(id))
	})
}

func (r *UserRepository) List() ([]auth.User, error) {
	users := make([]auth.User, 0)
	err := r.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(userBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var record userRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return err
			}
			users = append(users, record.format())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
