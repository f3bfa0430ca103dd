// Package live serves live views over websockets. Each open view holds a relay
// subscription and receives a refresh message whenever its data may have changed;
// the client then re-fetches the view over HTTP.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"pulse/internal/observability"
	"pulse/internal/realtime"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max open views per user
	maxConnsPerUser = 12
	// Max total open views
	maxTotalConns = 10000
)

var (
	ErrUserLimit   = errors.New("user connection limit reached")
	ErrServerLimit = errors.New("server connection limit reached")
	ErrShutdown    = errors.New("hub is shutting down")
)

// RefreshEvent is the only message a live view receives.
type RefreshEvent struct {
	Type string `json:"type"`
	View string `json:"view"`
	ID   string `json:"id,omitempty"`
}

// Hub maps userID to the live views that user has open.
type Hub struct {
	relay *realtime.Relay
	log   *observability.WSLogger

	mu         sync.Mutex
	conns      map[string]map[*Client]struct{}
	reserved   map[string]int // slots held while a relay subscription is taken
	totalConns int
	closed     bool
}

// NewHub creates a hub whose views are fed by relay.
func NewHub(relay *realtime.Relay) *Hub {
	return &Hub{
		relay:    relay,
		log:      observability.NewWSLogger("live hub"),
		conns:    make(map[string]map[*Client]struct{}),
		reserved: make(map[string]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "live hub" }

// Register opens a live view for userID. subject is the id the view is about, if any.
func (h *Hub) Register(userID, view, subject string, conn *websocket.Conn) (*Client, error) {
	topics, err := realtime.TopicsFor(view, userID, subject)
	if err != nil {
		return nil, err
	}
	refresh, err := json.Marshal(RefreshEvent{Type: "refresh", View: view, ID: subject})
	if err != nil {
		return nil, err
	}

	if err := h.reserve(userID); err != nil {
		return nil, err
	}

	// Subscribing may start the change source; keep mu free meanwhile.
	sub, err := h.relay.Subscribe(topics...)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.unreserveLocked(userID)
	if err != nil {
		return nil, err
	}
	if h.closed {
		sub.Release()
		return nil, ErrShutdown
	}

	client := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		UserID:  userID,
		View:    view,
		Subject: subject,
		sub:     sub,
		refresh: refresh,
		done:    make(chan struct{}),
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnections.Inc()

	go client.forward()

	h.log.LogConnect(context.Background(), userID, view)
	return client, nil
}

// reserve claims a slot for userID against both connection limits.
func (h *Hub) reserve(userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrShutdown
	}
	if h.totalConns >= maxTotalConns {
		return ErrServerLimit
	}
	if len(h.conns[userID])+h.reserved[userID] >= maxConnsPerUser {
		return ErrUserLimit
	}
	h.reserved[userID]++
	h.totalConns++
	return nil
}

func (h *Hub) unreserveLocked(userID string) {
	h.totalConns--
	if h.reserved[userID]--; h.reserved[userID] <= 0 {
		delete(h.reserved, userID)
	}
}

// UnregisterClient closes the view: its subscription is released and it receives no
// further messages. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client, reason string) {
	h.mu.Lock()
	m, ok := h.conns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := m[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.totalConns--
	h.mu.Unlock()

	client.sub.Release()
	close(client.done)
	observability.WebSocketConnections.Dec()
	h.log.LogDisconnect(context.Background(), client.UserID, client.View, reason)
}

// Count returns the number of open views of userID.
func (h *Hub) Count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Shutdown closes every open view and refuses new ones.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	var clients []*Client
	for _, m := range h.conns {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.UnregisterClient(c, "server shutting down")
	}
	h.log.LogLifecycle(ctx, "shutdown", map[string]interface{}{"closed_views": len(clients)})
	return nil
}
