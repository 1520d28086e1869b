package http

import (
	"context"
	"encoding/json"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/dark-cli/deptmaster/auth/endpoints"
	"github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/jwt"
)

func RegisterUserEndpoints(srv Server, service *services.UserService, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	jwtMiddleware := jwt.Middleware(jwtKey)

	ep := endpoints.NewUserEndpoint(service)

	meHandler := kithttp.NewServer(
		jwtMiddleware(ep.Me),
		decodeMeRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	userHandler := kithttp.NewServer(
		jwtMiddleware(ep.User),
		decodeUserRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	signUpHandler := kithttp.NewServer(
		ep.SignUp,
		decodeSignUpRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	loginHandler := kithttp.NewServer(
		ep.Login,
		decodeEmailPasswordRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	tokenHandler := kithttp.NewServer(
		jwtMiddleware(ep.Token),
		decodeMeRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	// Routes
	srv.RegisterHandler("/auth/me", "GET", meHandler)
	srv.RegisterHandler("/auth/users/:id", "GET", userHandler)
	srv.RegisterHandler("/auth/signup", "POST", signUpHandler)
	srv.RegisterHandler("/auth/login", "POST", loginHandler)
	srv.RegisterHandler("/auth/token", "GET", tokenHandler)
}

func decodeMeRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return nil, nil
}

func decodeUserRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return param(ctx, "id"), nil
}

func decodeSignUpRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req endpoints.SignUpRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, err
	}

	return req, nil
}

func decodeEmailPasswordRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req endpoints.EmailPasswordRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, err
	}

	return req, nil
}
