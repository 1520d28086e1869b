package ledger

import (
	"context"
	"encoding/json"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
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

func RegisterEndpoints(srv Server, service *Service, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	jwtMiddleware := jwt.Middleware(jwtKey)

	ep := NewEndpoint(service)

	contactsHandler := kithttp.NewServer(
		jwtMiddleware(ep.Contacts),
		decodeContactsRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	transactionsHandler := kithttp.NewServer(
		jwtMiddleware(ep.Transactions),
		decodeTransactionsRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	balanceHandler := kithttp.NewServer(
		jwtMiddleware(ep.Balance),
		decodeBalanceRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	// Routes
	srv.RegisterHandler("/ledger/contacts", "GET", contactsHandler)
	srv.RegisterHandler("/ledger/contacts/:id/transactions", "GET", transactionsHandler)
	srv.RegisterHandler("/ledger/balance", "GET", balanceHandler)
}

func decodeContactsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body

	return ContactsRequest{
		WalletID: r.URL.Query().Get("wallet"),
		Q:        r.URL.Query().Get("q"),
	}, nil
}

func decodeTransactionsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body

	params, ok := ctx.Value("params").(map[string]string)
	if !ok {
		return nil, errors.New("no params in context")
	}
	contactID, ok := params["id"]
	if !ok {
		return nil, errors.New("no id in params")
	}

	return TransactionsRequest{
		WalletID:  r.URL.Query().Get("wallet"),
		ContactID: contactID,
	}, nil
}

func decodeBalanceRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close() // Close body
	return BalanceRequest{WalletID: r.URL.Query().Get("wallet")}, nil
}
