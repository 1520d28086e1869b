package endpoints

import (
	"context"
	"net/http"

	"github.com/dark-cli/deptmaster/auth/services"
)

type WalletEndpoint struct {
	service *services.WalletService
}

func NewWalletEndpoint(s *services.WalletService) WalletEndpoint {
	return WalletEndpoint{
		service: s,
	}
}

func (ep WalletEndpoint) UserWallets(ctx context.Context, _ interface{}) (interface{}, error) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.GetForUser(userID)
}

type CreateWalletRequest struct {
	Name string `json:"name"`
}

func (ep WalletEndpoint) Create(ctx context.Context, r interface{}) (interface{}, error) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(CreateWalletRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Create(userID, req.Name)
}

func (ep WalletEndpoint) Get(ctx context.Context, r interface{}) (interface{}, error) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	walletID, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Get(userID, walletID)
}

type InviteRequest struct {
	WalletID string
	Email    string
}

func (ep WalletEndpoint) Invite(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(InviteRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Invite(callerID, req.WalletID, req.Email)
}

type KickRequest struct {
	WalletID string
	MemberID string
}

func (ep WalletEndpoint) Kick(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(KickRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Kick(callerID, req.WalletID, req.MemberID)
}

type DeleteWalletRequest struct {
	WalletID string
}

func (ep WalletEndpoint) Delete(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(DeleteWalletRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	err = ep.service.Delete(callerID, req.WalletID)
	if err != nil {
		return nil, err
	}
	return statusCoder{code: http.StatusNoContent}, nil
}
