package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Bucknalla/galileo-acquisition-sim/internal/logging"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/metrics"
)

const writeWait = 5 * time.Second

// message is the envelope of every websocket message
type message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client is one websocket connection. gorilla/websocket allows a single
// concurrent writer, so writes go through mu.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(msg message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub fans simulator updates out to the connected websocket clients
type Hub struct {
	mu        sync.Mutex
	clients   map[string]*client
	broadcast chan message
	logger    logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*client),
		broadcast: make(chan message, 64),
		logger:    logger,
	}
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ClientConnected()
	h.logger.With(logging.String("client_id", c.id)).Info(context.Background(),
		"client connected", logging.Int("clients", total))
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.conn.Close()
	metrics.ClientDisconnected()
	h.logger.Info(context.Background(), "client disconnected",
		logging.String("client_id", c.id), logging.Int("clients", total))
}

// Publish queues msg for all clients. Updates are dropped when the queue is
// full; the next tick supersedes them anyway.
func (h *Hub) Publish(msg message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debug(context.Background(), "broadcast queue full, dropping update",
			logging.String("type", msg.Type))
	}
}

// Run delivers queued messages until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			clients := make([]*client, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.Unlock()

			for _, c := range clients {
				if err := c.writeJSON(msg); err != nil {
					h.logger.Warn(ctx, "websocket write failed",
						logging.String("client_id", c.id), logging.Err(err))
					h.unregister(c)
				}
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
