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

func RegisterWalletEndpoints(srv Server, service *services.WalletService, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	jwtMiddleware := jwt.Middleware(jwtKey)

	ep := endpoints.NewWalletEndpoint(service)

	userWalletsHandler := kithttp.NewServer(
		jwtMiddleware(ep.UserWallets),
		decodeMeRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	createWalletHandler := kithttp.NewServer(
		jwtMiddleware(ep.Create),
		decodeCreateWalletRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	getWalletHandler := kithttp.NewServer(
		jwtMiddleware(ep.Get),
		decodeGetWalletRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	inviteHandler := kithttp.NewServer(
		jwtMiddleware(ep.Invite),
		decodeInviteRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	kickHandler := kithttp.NewServer(
		jwtMiddleware(ep.Kick),
		decodeKickRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	deleteWalletHandler := kithttp.NewServer(
		jwtMiddleware(ep.Delete),
		decodeDeleteWalletRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	// Routes
	srv.RegisterHandler("/wallets", "GET", userWalletsHandler)
	srv.RegisterHandler("/wallets", "POST", createWalletHandler)
	srv.RegisterHandler("/wallets/:id", "GET", getWalletHandler)
	srv.RegisterHandler("/wallets/:id/invite", "POST", inviteHandler)
	srv.RegisterHandler("/wallets/:id/kick", "POST", kickHandler)
	srv.RegisterHandler("/wallets/:id", "DELETE", deleteWalletHandler)
}

func decodeCreateWalletRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req endpoints.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeGetWalletRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return param(ctx, "id"), nil
}

func decodeInviteRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return endpoints.InviteRequest{
		WalletID: param(ctx, "id"),
		Email:    body.Email,
	}, nil
}

func decodeKickRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var body struct {
		MemberID string `json:"memberId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return endpoints.KickRequest{
		WalletID: param(ctx, "id"),
		MemberID: body.MemberID,
	}, nil
}

func decodeDeleteWalletRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.DeleteWalletRequest{WalletID: param(ctx, "id")}, nil
}
