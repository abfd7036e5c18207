package notifications

import (
	"context"
	"errors"
	"sync"

	"techatlas/internal/events"
	"techatlas/internal/observability"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	maxConnsPerUser = 4
	maxTotalConns   = 500
)

var (
	ErrHubFull      = errors.New("admin feed connection limit reached")
	ErrUserConnsMax = errors.New("user connection limit reached")
	ErrHubClosed    = errors.New("admin feed is shutting down")
)

// Hub fans admin feed messages out to connected moderator sessions.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perUser map[uint]int
	closed  bool
	logger  *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[uint]int),
		logger:  logger,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "admin feed" }

// Register adds a connection for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserConnsMax
	}

	client := NewClient(h, conn, userID)
	h.clients[client] = struct{}{}
	h.perUser[userID]++
	observability.AdminFeedConnections.Set(float64(len(h.clients)))
	return client, nil
}

// UnregisterClient removes client. Unknown clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if h.perUser[client.UserID]--; h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}
	close(client.Send)
	observability.AdminFeedConnections.Set(float64(len(h.clients)))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends message to every connected client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// Deliver broadcasts ev to local clients. The hub is used as an events.Sink
// when Redis is not configured.
func (h *Hub) Deliver(_ context.Context, ev events.ContentEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

// StartWiring forwards every message published through n to this hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, func(payload string) {
		h.Broadcast([]byte(payload))
	})
}

// Shutdown closes every connection with a going-away frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				h.logger.Debug("failed to write close frame", zap.Uint("user_id", client.UserID), zap.Error(err))
			}
			_ = client.Conn.Close()
		}
		close(client.Send)
		delete(h.clients, client)
	}
	h.perUser = make(map[uint]int)
	observability.AdminFeedConnections.Set(0)
	return nil
}
