package ws

import (
	"log/slog"
	"sync"

	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
)

// Hub tracks live websocket clients and the rooms they listen to.
// Publishing never blocks: a client whose buffer is full is closed.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
	groups  map[model.RoomID]map[model.ConnectionID]*Client
	logger  *slog.Logger
}

// Ensure Hub implements the gateway publisher
var _ gateway.Publisher = (*Hub)(nil)

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnectionID]*Client),
		groups:  make(map[model.RoomID]map[model.ConnectionID]*Client),
		logger:  logger.With(slog.String("component", "ws-hub")),
	}
}

// Register adds a client
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.session.ConnectionID] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client registered",
		slog.String("connection_id", string(c.session.ConnectionID)),
		slog.String("player_id", string(c.session.PlayerID)),
		slog.Int("total_clients", total),
	)
}

// Unregister removes a client from the hub and every room, and closes
// its send queue. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.session.ConnectionID]
	if ok && current == c {
		delete(h.clients, c.session.ConnectionID)
		for roomID, members := range h.groups {
			delete(members, c.session.ConnectionID)
			if len(members) == 0 {
				delete(h.groups, roomID)
			}
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	if ok && current == c {
		h.logger.Info("ws client unregistered",
			slog.String("connection_id", string(c.session.ConnectionID)),
			slog.Int("total_clients", total),
		)
	}
}

// Subscribe adds a connection to a room's audience
func (h *Hub) Subscribe(conn model.ConnectionID, roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return
	}
	if h.groups[roomID] == nil {
		h.groups[roomID] = make(map[model.ConnectionID]*Client)
	}
	h.groups[roomID][conn] = c
}

// Unsubscribe removes a connection from a room's audience
func (h *Hub) Unsubscribe(conn model.ConnectionID, roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.groups, roomID)
	}
}

// ToRoom sends an event to a room, skipping one connection
func (h *Hub) ToRoom(roomID model.RoomID, event model.EventType, payload any, except model.ConnectionID) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("event", string(event)),
			slog.Any("error", err),
		)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[roomID]))
	for conn, c := range h.groups[roomID] {
		if conn != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, msg, event)
}

// ToAll sends an event to every connected client
func (h *Hub) ToAll(event model.EventType, payload any) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("event", string(event)),
			slog.Any("error", err),
		)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.deliver(targets, msg, event)
}

func (h *Hub) deliver(targets []*Client, msg []byte, event model.EventType) {
	for _, c := range targets {
		if !c.enqueue(msg) {
			h.logger.Warn("ws client too slow, closing",
				slog.String("connection_id", string(c.session.ConnectionID)),
				slog.String("event", string(event)),
			)
			h.drop(c)
		}
	}
}

// drop disconnects a client. Its read loop then runs the normal
// disconnect cascade.
func (h *Hub) drop(c *Client) {
	h.Unregister(c)
	c.closeConn()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.drop(c)
	}
	h.logger.Info("ws hub closed", slog.Int("disconnected_clients", len(clients)))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections listening to a room
func (h *Hub) RoomSize(roomID model.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}
