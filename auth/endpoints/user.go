package endpoints

import (
	"context"

	"github.com/dark-cli/deptmaster/errors"

	"github.com/dark-cli/deptmaster/auth/services"
)

type UserEndpoint struct {
	service *services.UserService
}

func NewUserEndpoint(s *services.UserService) UserEndpoint {
	return UserEndpoint{
		service: s,
	}
}

func (ep UserEndpoint) Me(ctx context.Context, _ interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Get(callerID)
}

func (ep UserEndpoint) User(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	if caller, err := ep.service.Get(callerID); err != nil {
		return nil, err
	} else if !caller.IsAdmin {
		return nil, errors.New("admin route", errors.Forbidden())
	}

	userID, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Get(userID)
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ep UserEndpoint) SignUp(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(SignUpRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.SignUp(req.Name, req.Email, req.Password)
}

type EmailPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ep UserEndpoint) Login(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(EmailPasswordRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	user, token, err := ep.service.Login(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"user":        user,
		"accessToken": token,
	}, nil
}

func (ep UserEndpoint) Token(ctx context.Context, _ interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	token, err := ep.service.Token(callerID)
	if err != nil {
		return nil, err
	}

	return map[string]string{"accessToken": token}, nil
}
