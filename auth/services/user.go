package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/errors"
)

type Encoder interface {
	Encode(string) (string, error)
}

type UserService struct {
	repository auth.UserRepository

	encoder Encoder
}

func NewUserService(repo auth.UserRepository, encoder Encoder) *UserService {
	return &UserService{
		repository: repo,
		encoder:    encoder,
	}
}

func (s *UserService) Get(id string) (auth.User, error) {
	user, err := s.repository.Get(id)
	if err != nil {
		return auth.User{}, err
	}

	if user.ID == "" {
		return auth.User{}, errUserNotFound(id)
	}
	return user, nil
}

func (s *UserService) SignUp(name, email, password string) (auth.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return auth.User{}, errors.New("email and password are required", errors.BadRequest())
	}

	existing, err := s.repository.GetByEmail(email)
	if err != nil {
		return auth.User{}, err
	}
	if existing.ID != "" {
		return auth.User{}, errors.New("email already registered", errors.WithCode(http.StatusConflict))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return auth.User{}, err
	}

	user := auth.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repository.Upsert(&user); err != nil {
		return auth.User{}, err
	}

	return user, nil
}

func (s *UserService) Login(email, password string) (auth.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repository.GetByEmail(email)
	if err != nil {
		return auth.User{}, "", err
	}
	if user.ID == "" {
		return auth.User{}, "", errInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return auth.User{}, "", errInvalidCredentials()
	}

	token, err := s.encoder.Encode(user.ID)
	if err != nil {
		return auth.User{}, "", err
	}

	return user, token, nil
}

func (s *UserService) Token(userID string) (string, error) {
	if _, err := s.Get(userID); err != nil {
		return "", err
	}
	return s.encoder.Encode(userID)
}

func (s *UserService) All() ([]auth.User, error) {
	return s.repository.List()
}
