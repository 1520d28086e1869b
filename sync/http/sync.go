package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
	"github.com/dark-cli/deptmaster/sync/endpoints"
	"github.com/dark-cli/deptmaster/sync/services"
	"github.com/dark-cli/deptmaster/users"
)

// encodeError writes an error as an HTTP response. It handles the status code
// contained in the error.
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	statusCode := http.StatusInternalServerError
	if err, ok := err.(errors.Error); ok {
		statusCode = err.Code()
	}
	w.WriteHeader(statusCode)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

// Server defines the interface to register the http handlers.
type Server interface {
	RegisterHandler(path, method string, f http.Handler)
}

func RegisterSyncEndpoints(srv Server, service *services.SyncService, authenticator *users.Authenticator, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	jwtMiddleware := jwt.Middleware(jwtKey)
	authenticated := func(ep endpoint.Endpoint) endpoint.Endpoint {
		return jwtMiddleware(authenticator.Authenticated(ep))
	}

	ep := endpoints.NewSyncEndpoint(service)
	hub := NewHub()

	pushHandler := kithttp.NewServer(
		authenticated(notifyAccepted(hub, ep.Push)),
		decodePushRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	pullHandler := kithttp.NewServer(
		authenticated(ep.Pull),
		decodePullRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	hashHandler := kithttp.NewServer(
		authenticated(ep.Hash),
		decodeHashRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	rebuildHandler := kithttp.NewServer(
		authenticated(ep.Rebuild),
		decodeRebuildRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	rebuildAllHandler := kithttp.NewServer(
		jwtMiddleware(authenticator.Admin(ep.RebuildAll)),
		decodeRebuildAllRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	// Routes
	srv.RegisterHandler("/sync/events", "POST", pushHandler)
	srv.RegisterHandler("/sync/events", "GET", pullHandler)
	srv.RegisterHandler("/sync/hash", "GET", hashHandler)
	srv.RegisterHandler("/sync/ws", "GET", notificationHandler{
		hub:     hub,
		service: service,
		decoder: jwt.NewEncodeDecoder(jwtKey),
	})
	srv.RegisterHandler("/admin/projections/rebuild", "POST", rebuildHandler)
	srv.RegisterHandler("/admin/projections/rebuild-all", "POST", rebuildAllHandler)
}

func decodePushRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req endpoints.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodePullRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body

	req := endpoints.PullRequest{
		WalletID: r.URL.Query().Get("wallet"),
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, errors.New("invalid since parameter", errors.BadRequest(), errors.WithCause(err))
		}
		req.Since = since
	}

	return req, nil
}

func decodeHashRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.HashRequest{WalletID: r.URL.Query().Get("wallet")}, nil
}

func decodeRebuildRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req endpoints.RebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeRebuildAllRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.RebuildAllRequest{}, nil
}
