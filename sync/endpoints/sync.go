package endpoints

import (
	"context"
	"net/http"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
	"github.com/dark-cli/deptmaster/sync/services"
	"github.com/dark-cli/deptmaster/users"
)

var errInvalidRequest = errors.New("invalid request", errors.BadRequest())

type statusCoder struct {
	code int
}

func (s statusCoder) StatusCode() int { return s.code }

func extractUserID(ctx context.Context) (string, error) {
	claims := ctx.Value(kitjwt.JWTClaimsContextKey)
	if claims == nil {
		return "", errors.New("no user", errors.WithCode(http.StatusUnauthorized))
	}

	dmClaims, ok := claims.(*jwt.Claims)
	if !ok {
		return "", errors.New("invalid claims", errors.WithCode(http.StatusForbidden))
	}

	return dmClaims.UserID, nil
}

type SyncEndpoint struct {
	service *services.SyncService
}

func NewSyncEndpoint(s *services.SyncService) SyncEndpoint {
	return SyncEndpoint{
		service: s,
	}
}

type PushRequest struct {
	WalletID string             `json:"wallet_id"`
	Events   []deptmaster.Event `json:"events"`
}

type PushResponse struct {
	Results []deptmaster.AppendResult `json:"results"`
}

func (ep SyncEndpoint) Push(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(PushRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	results, err := ep.service.Push(callerID, req.WalletID, req.Events)
	if err != nil {
		return nil, err
	}
	return PushResponse{Results: results}, nil
}

type PullRequest struct {
	WalletID string
	Since    time.Time
}

type PullResponse struct {
	Events []deptmaster.Event `json:"events"`
}

func (ep SyncEndpoint) Pull(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(PullRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	events, err := ep.service.Pull(callerID, req.WalletID, req.Since)
	if err != nil {
		return nil, err
	}
	return PullResponse{Events: events}, nil
}

type HashRequest struct {
	WalletID string
}

func (ep SyncEndpoint) Hash(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(HashRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Hash(callerID, req.WalletID)
}

type RebuildRequest struct {
	WalletID string `json:"wallet_id"`
}

func (ep SyncEndpoint) Rebuild(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(RebuildRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if err := ep.service.RebuildWallet(callerID, req.WalletID); err != nil {
		return nil, err
	}
	return statusCoder{code: http.StatusNoContent}, nil
}

type RebuildAllRequest struct{}

// RebuildAll refolds every wallet. The transport only routes admins here.
func (ep SyncEndpoint) RebuildAll(ctx context.Context, r interface{}) (interface{}, error) {
	if _, err := users.FromContext(ctx); err != nil {
		return nil, err
	}

	if err := ep.service.RebuildAll(); err != nil {
		return nil, err
	}
	return statusCoder{code: http.StatusNoContent}, nil
}
