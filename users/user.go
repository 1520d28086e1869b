package users

import (
	"context"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"

	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"

	"github.com/dark-cli/deptmaster/auth/services"
)

var (
	contextKey = "user"
)

type User struct {
	ID      string
	Name    string
	Email   string
	IsAdmin bool
}

func FromContext(ctx context.Context) (User, error) {
	v := ctx.Value(contextKey)
	if v == nil {
		return User{}, errors.New("no user", errors.WithCode(http.StatusUnauthorized))
	}

	user, ok := v.(User)
	if !ok {
		return User{}, errors.New("invalid user", errors.WithCode(http.StatusUnauthorized))
	}

	return user, nil
}

func extractUserID(ctx context.Context) (string, error) {
	claims := ctx.Value(kitjwt.JWTClaimsContextKey)
	if claims == nil {
		return "", errors.New("no user", errors.WithCode(http.StatusUnauthorized))
	}

	dmClaims, ok := claims.(*jwt.Claims)
	if !ok {
		return "", errors.New("invalid claims", errors.WithCode(http.StatusUnauthorized))
	}

	return dmClaims.UserID, nil
}

type Authenticator struct {
	service *services.UserService
}

func NewAuthenticator(s *services.UserService) *Authenticator {
	return &Authenticator{
		service: s,
	}
}

func (a *Authenticator) get(id string) (User, error) {
	user, err := a.service.Get(id)
	if err != nil {
		return User{}, err
	}

	return User{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}, nil
}

// Valid trusts the token: the context gets a user carrying only the id.
func (a *Authenticator) Valid(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, err := extractUserID(ctx)
		if err != nil {
			return nil, err
		}

		ctx = context.WithValue(ctx, contextKey, User{ID: userID})
		return next(ctx, req)
	}
}

// Authenticated loads the full user from the store, rejecting tokens of
// deleted accounts.
func (a *Authenticator) Authenticated(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, err := extractUserID(ctx)
		if err != nil {
			return nil, err
		}

		user, err := a.get(userID)
		if err != nil {
			return nil, err
		}

		ctx = context.WithValue(ctx, contextKey, user)
		return next(ctx, req)
	}
}

func (a *Authenticator) Admin(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, err := extractUserID(ctx)
		if err != nil {
			return nil, err
		}

		user, err := a.get(userID)
		if err != nil {
			return nil, err
		}

		if !user.IsAdmin {
			return nil, errors.New("admin only", errors.WithCode(http.StatusForbidden))
		}

		ctx = context.WithValue(ctx, contextKey, user)
		return next(ctx, req)
	}
}
