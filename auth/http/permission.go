package http

import (
	"context"
	"encoding/json"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/auth/endpoints"
	"github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/jwt"
)

func RegisterPermissionEndpoints(srv Server, service *services.PermissionService, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	jwtMiddleware := jwt.Middleware(jwtKey)

	ep := endpoints.NewPermissionEndpoint(service)

	listGroupsHandler := kithttp.NewServer(
		jwtMiddleware(ep.ListGroups),
		decodeListGroupsRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	createGroupHandler := kithttp.NewServer(
		jwtMiddleware(ep.CreateGroup),
		decodeCreateGroupRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	deleteGroupHandler := kithttp.NewServer(
		jwtMiddleware(ep.DeleteGroup),
		decodeDeleteGroupRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	groupMembersHandler := kithttp.NewServer(
		jwtMiddleware(ep.UpdateGroupMembers),
		decodeGroupMemberRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	listRulesHandler := kithttp.NewServer(
		jwtMiddleware(ep.ListRules),
		decodeListRulesRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	upsertRuleHandler := kithttp.NewServer(
		jwtMiddleware(ep.UpsertRule),
		decodeUpsertRuleRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	deleteRuleHandler := kithttp.NewServer(
		jwtMiddleware(ep.DeleteRule),
		decodeDeleteRuleRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	fingerprintHandler := kithttp.NewServer(
		jwtMiddleware(ep.Fingerprint),
		decodeFingerprintRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	// Routes
	srv.RegisterHandler("/wallets/:id/groups", "GET", listGroupsHandler)
	srv.RegisterHandler("/wallets/:id/groups", "POST", createGroupHandler)
	srv.RegisterHandler("/wallets/:id/groups/:groupID", "DELETE", deleteGroupHandler)
	srv.RegisterHandler("/wallets/:id/groups/:groupID/members", "POST", groupMembersHandler)
	srv.RegisterHandler("/wallets/:id/rules", "GET", listRulesHandler)
	srv.RegisterHandler("/wallets/:id/rules", "POST", upsertRuleHandler)
	srv.RegisterHandler("/wallets/:id/rules/:ruleID", "DELETE", deleteRuleHandler)
	srv.RegisterHandler("/wallets/:id/permissions/fingerprint", "GET", fingerprintHandler)
}

func decodeListGroupsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.ListGroupsRequest{WalletID: param(ctx, "id")}, nil
}

func decodeCreateGroupRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var body struct {
		Name string         `json:"name"`
		Kind auth.GroupKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return endpoints.CreateGroupRequest{
		WalletID: param(ctx, "id"),
		Name:     body.Name,
		Kind:     body.Kind,
	}, nil
}

func decodeDeleteGroupRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.DeleteGroupRequest{
		WalletID: param(ctx, "id"),
		GroupID:  param(ctx, "groupID"),
	}, nil
}

func decodeGroupMemberRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var body struct {
		MemberID string `json:"memberId"`
		Remove   bool   `json:"remove"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return endpoints.GroupMemberRequest{
		WalletID: param(ctx, "id"),
		GroupID:  param(ctx, "groupID"),
		MemberID: body.MemberID,
		Remove:   body.Remove,
	}, nil
}

func decodeListRulesRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.ListRulesRequest{WalletID: param(ctx, "id")}, nil
}

func decodeUpsertRuleRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var rule deptmaster.PermissionRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		return nil, err
	}

	return endpoints.UpsertRuleRequest{
		WalletID: param(ctx, "id"),
		Rule:     rule,
	}, nil
}

func decodeDeleteRuleRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.DeleteRuleRequest{
		WalletID: param(ctx, "id"),
		RuleID:   param(ctx, "ruleID"),
	}, nil
}

func decodeFingerprintRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return endpoints.FingerprintRequest{WalletID: param(ctx, "id")}, nil
}
