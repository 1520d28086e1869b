package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-kit/kit/endpoint"
	"github.com/gorilla/websocket"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
	"github.com/dark-cli/deptmaster/sync/endpoints"
	"github.com/dark-cli/deptmaster/sync/services"
)

// Hub fans out per-wallet notifications to connected replicas. Sends never
// block: a subscriber with a pending notification needs no second one.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string][]chan struct{}{}}
}

func (h *Hub) Subscribe(walletID string) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[walletID] = append(h.subs[walletID], ch)
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(walletID string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[walletID]
	for i, sub := range subs {
		if sub == ch {
			h.subs[walletID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subs[walletID]) == 0 {
		delete(h.subs, walletID)
	}
}

func (h *Hub) Notify(walletID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[walletID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// notifyAccepted wakes the wallet's subscribed replicas when a push lands
// new events.
func notifyAccepted(hub *Hub, next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, r interface{}) (interface{}, error) {
		resp, err := next(ctx, r)
		if err != nil {
			return resp, err
		}

		req, ok := r.(endpoints.PushRequest)
		if !ok {
			return resp, nil
		}
		push, ok := resp.(endpoints.PushResponse)
		if !ok {
			return resp, nil
		}

		for _, result := range push.Results {
			if result.Status == deptmaster.StatusAccepted {
				hub.Notify(req.WalletID)
				break
			}
		}
		return resp, nil
	}
}

var upgrader = websocket.Upgrader{
	// Same policy as the CORS middleware on the rest of the surface.
	CheckOrigin: func(*http.Request) bool { return true },
}

// notificationHandler upgrades GET /sync/ws to a websocket and writes one
// message per wallet notification. The token travels as a query parameter
// since browsers cannot set headers on websocket dials.
type notificationHandler struct {
	hub     *Hub
	service *services.SyncService
	decoder *jwt.EncodeDecoder
}

func (h notificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	walletID := r.URL.Query().Get("wallet")

	userID, err := h.decoder.Decode(r.URL.Query().Get("token"))
	if err != nil {
		encodeError(r.Context(), errors.New("invalid token", errors.WithCode(http.StatusUnauthorized)), w)
		return
	}
	if err := h.service.CheckRead(userID, walletID); err != nil {
		encodeError(r.Context(), err, w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	notifications := h.hub.Subscribe(walletID)
	defer h.hub.Unsubscribe(walletID, notifications)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-notifications:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(walletID)); err != nil {
				return
			}
		}
	}
}
