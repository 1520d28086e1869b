package endpoints

import (
	"context"
	"net/http"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/auth"
	"github.com/dark-cli/deptmaster/auth/services"
)

type PermissionEndpoint struct {
	service *services.PermissionService
}

func NewPermissionEndpoint(s *services.PermissionService) PermissionEndpoint {
	return PermissionEndpoint{
		service: s,
	}
}

type ListGroupsRequest struct {
	WalletID string
}

func (ep PermissionEndpoint) ListGroups(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(ListGroupsRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.ListGroups(callerID, req.WalletID)
}

type CreateGroupRequest struct {
	WalletID string
	Name     string
	Kind     auth.GroupKind
}

func (ep PermissionEndpoint) CreateGroup(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(CreateGroupRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.CreateGroup(callerID, req.WalletID, req.Name, req.Kind)
}

type DeleteGroupRequest struct {
	WalletID string
	GroupID  string
}

func (ep PermissionEndpoint) DeleteGroup(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(DeleteGroupRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if err := ep.service.DeleteGroup(callerID, req.WalletID, req.GroupID); err != nil {
		return nil, err
	}
	return statusCoder{code: http.StatusNoContent}, nil
}

type GroupMemberRequest struct {
	WalletID string
	GroupID  string
	MemberID string
	Remove   bool
}

func (ep PermissionEndpoint) UpdateGroupMembers(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(GroupMemberRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if req.Remove {
		return ep.service.RemoveFromGroup(callerID, req.WalletID, req.GroupID, req.MemberID)
	}
	return ep.service.AddToGroup(callerID, req.WalletID, req.GroupID, req.MemberID)
}

type ListRulesRequest struct {
	WalletID string
}

func (ep PermissionEndpoint) ListRules(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(ListRulesRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.ListRules(callerID, req.WalletID)
}

type UpsertRuleRequest struct {
	WalletID string
	Rule     deptmaster.PermissionRule
}

func (ep PermissionEndpoint) UpsertRule(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(UpsertRuleRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.UpsertRule(callerID, req.WalletID, req.Rule)
}

type DeleteRuleRequest struct {
	WalletID string
	RuleID   string
}

func (ep PermissionEndpoint) DeleteRule(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(DeleteRuleRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if err := ep.service.DeleteRule(callerID, req.WalletID, req.RuleID); err != nil {
		return nil, err
	}
	return statusCoder{code: http.StatusNoContent}, nil
}

type FingerprintRequest struct {
	WalletID string
}

func (ep PermissionEndpoint) Fingerprint(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(FingerprintRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	fingerprint, err := ep.service.Fingerprint(req.WalletID, callerID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"fingerprint": fingerprint}, nil
}
