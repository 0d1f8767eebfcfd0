package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/techagentng/wastewatch/metrics"
)

var ErrHubClosed = errors.New("realtime hub is closed")

// Hub is the subscription table: which clients listen on which rooms. It is
// created at startup and Close drops every subscription on shutdown.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
	closed  bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Hub)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a client with no rooms.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[c]; ok {
		return nil
	}
	h.clients[c] = make(map[string]struct{})
	if h.metrics != nil {
		h.metrics.ConnectedClients.Inc()
	}
	return nil
}

// Join subscribes a registered client to room.
func (h *Hub) Join(c *Client, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	joined, ok := h.clients[c]
	if !ok {
		return errors.New("client is not registered")
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	joined[room] = struct{}{}
	return nil
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.clients[c]; ok {
		delete(joined, room)
	}
}

// Remove drops the client from every room and closes its send buffer.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	for room := range joined {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	c.closeSend()
	if h.metrics != nil {
		h.metrics.ConnectedClients.Dec()
	}
}

// Publish delivers ev to the clients in room on this process.
func (h *Hub) Publish(_ context.Context, room string, ev Event) error {
	frame, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	h.Deliver(room, frame)
	return nil
}

// Deliver hands an encoded frame to each member without blocking. A client
// whose buffer is full misses the frame. Returns the number of clients reached.
func (h *Hub) Deliver(room string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0
	}
	delivered := 0
	for c := range h.rooms[room] {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		h.logger.Warn("dropping realtime frame for slow client", "room", room)
	}
	return delivered
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close clears the table and closes every client. Later calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		c.closeSend()
		if h.metrics != nil {
			h.metrics.ConnectedClients.Dec()
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.clients = make(map[*Client]map[string]struct{})
}
