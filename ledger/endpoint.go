package ledger

import (
	"context"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
)

var errInvalidRequest = errors.New("invalid request", errors.BadRequest())

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

type Endpoint struct {
	service *Service
}

func NewEndpoint(s *Service) Endpoint {
	return Endpoint{
		service: s,
	}
}

type ContactsRequest struct {
	WalletID string
	Q        string
}

type ContactsResponse struct {
	Contacts []deptmaster.Contact `json:"contacts"`
}

func (ep Endpoint) Contacts(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(ContactsRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	contacts, err := ep.service.Contacts(callerID, req.WalletID, req.Q)
	if err != nil {
		return nil, err
	}
	return ContactsResponse{Contacts: contacts}, nil
}

type TransactionsRequest struct {
	WalletID  string
	ContactID string
}

type TransactionsResponse struct {
	Transactions []deptmaster.Transaction `json:"transactions"`
}

func (ep Endpoint) Transactions(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(TransactionsRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	transactions, err := ep.service.Transactions(callerID, req.WalletID, req.ContactID)
	if err != nil {
		return nil, err
	}
	return TransactionsResponse{Transactions: transactions}, nil
}

type BalanceRequest struct {
	WalletID string
}

func (ep Endpoint) Balance(ctx context.Context, r interface{}) (interface{}, error) {
	callerID, err := extractUserID(ctx)
	if err != nil {
		return nil, err
	}

	req, ok := r.(BalanceRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	balance, err := ep.service.Balance(callerID, req.WalletID)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"balance": balance}, nil
}
