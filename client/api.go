package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/sync/services"
)

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// API is the authenticated HTTP client for the sync server. It logs in
// lazily with the configured credentials and keeps the bearer token for
// subsequent calls.
type API struct {
	baseURL string
	client  HTTPClient

	email    string
	password string

	mu    sync.Locker
	token string
}

func NewAPI(email, password string, c HTTPClient, baseURL string) *API {
	return &API{
		baseURL: baseURL,
		client:  c,

		email:    email,
		password: password,

		mu:    &sync.Mutex{},
		token: "",
	}
}

func (c *API) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		token, err := c.getToken(ctx)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return c.client.Do(req.WithContext(ctx))
}

func (c *API) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		err := c.authenticate(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}

	return token, nil
}

func (c *API) authenticate(ctx context.Context) error {
	body := bytes.Buffer{}
	err := json.NewEncoder(&body).Encode(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/auth/login", c.baseURL), &body)
	if err != nil {
		return err
	}

	res, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return decodeError(res)
	}

	var resBody struct {
		AccessToken string `json:"accessToken"`
	}
	err = json.NewDecoder(res.Body).Decode(&resBody)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = resBody.AccessToken
	c.mu.Unlock()
	return nil
}

func decodeError(res *http.Response) error {
	var callErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&callErr); err != nil {
		return errors.New(fmt.Sprintf("call failed with status %d", res.StatusCode), errors.WithCode(res.StatusCode))
	}
	return errors.New(callErr.Error, errors.WithCode(res.StatusCode))
}

// Push sends a batch of locally created events.
func (c *API) Push(ctx context.Context, walletID string, events []deptmaster.Event) ([]deptmaster.AppendResult, error) {
	body := bytes.Buffer{}
	err := json.NewEncoder(&body).Encode(map[string]interface{}{
		"wallet_id": walletID,
		"events":    events,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/sync/events", c.baseURL), &body)
	if err != nil {
		return nil, err
	}

	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return nil, decodeError(res)
	}

	var resBody struct {
		Results []deptmaster.AppendResult `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resBody); err != nil {
		return nil, err
	}
	return resBody.Results, nil
}

// Pull fetches the caller's permitted events from since on. A zero since
// fetches the full history.
func (c *API) Pull(ctx context.Context, walletID string, since time.Time) ([]deptmaster.Event, error) {
	query := url.Values{}
	query.Set("wallet", walletID)
	if !since.IsZero() {
		query.Set("since", since.Format(time.RFC3339Nano))
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/sync/events?%s", c.baseURL, query.Encode()), nil)
	if err != nil {
		return nil, err
	}

	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return nil, decodeError(res)
	}

	var resBody struct {
		Events []deptmaster.Event `json:"events"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resBody); err != nil {
		return nil, err
	}
	return resBody.Events, nil
}

// Hash fetches the server digest over the caller's permitted event stream.
func (c *API) Hash(ctx context.Context, walletID string) (services.HashResult, error) {
	query := url.Values{}
	query.Set("wallet", walletID)

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/sync/hash?%s", c.baseURL, query.Encode()), nil)
	if err != nil {
		return services.HashResult{}, err
	}

	res, err := c.do(ctx, req)
	if err != nil {
		return services.HashResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return services.HashResult{}, decodeError(res)
	}

	var result services.HashResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return services.HashResult{}, err
	}
	return result, nil
}

// Notifications opens the wallet's notification stream. Every receive means
// new events landed server-side. The channel closes when the connection
// drops or the context is cancelled.
func (c *API) Notifications(ctx context.Context, walletID string) (<-chan struct{}, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("wallet", walletID)
	query.Set("token", token)

	wsURL := strings.Replace(c.baseURL, "http", "ws", 1)
	conn, res, err := websocket.DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/sync/ws?%s", wsURL, query.Encode()), nil)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return nil, err
	}

	notifications := make(chan struct{}, 1)
	go func() {
		defer close(notifications)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			select {
			case notifications <- struct{}{}:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return notifications, nil
}

// Fingerprint fetches the caller's permission fingerprint for the wallet.
func (c *API) Fingerprint(ctx context.Context, walletID string) (string, error) {
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/wallets/%s/permissions/fingerprint", c.baseURL, walletID), nil)
	if err != nil {
		return "", err
	}

	res, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return "", decodeError(res)
	}

	var resBody struct {
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resBody); err != nil {
		return "", err
	}
	return resBody.Fingerprint, nil
}
