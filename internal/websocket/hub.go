package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/pkg/logger"
)

const (
	EventCartUpdated = "cart.updated"
	EventPong        = "pong"

	messagePing = "ping"

	// maxMessagesPerSecond caps inbound client messages per session.
	maxMessagesPerSecond = 10
	sendBufferSize       = 16
)

// ErrHubStopped is returned by Register once Run has returned.
var ErrHubStopped = errors.New("websocket hub stopped")

// Event is the envelope of every server push.
type Event struct {
	Type string          `json:"type"`
	Cart *model.CartView `json:"cart,omitempty"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// Client is one open websocket session of a user.
type Client struct {
	hub    *Hub
	conn   *Conn
	UserID uint
	Send   chan []byte

	sendMu sync.Mutex
	closed bool

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// Push queues an event for this session only. It reports false when the
// send buffer is full.
func (c *Client) Push(event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err, map[string]interface{}{
			"user_id": c.UserID,
			"type":    event.Type,
		})
		return false
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// close ends the session's send queue; WritePump then says goodbye.
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

type sessionChange struct {
	client *Client
	join   bool
	done   chan struct{}
}

type userMessage struct {
	userID uint
	data   []byte
}

// Hub tracks the open sessions of every user and fans cart snapshots out to
// all of them. A user may have several terminals or tabs open.
type Hub struct {
	clients map[uint][]*Client

	// One channel keeps a session's join and leave in order.
	sessions  chan sessionChange
	broadcast chan userMessage
	stopped   chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[uint][]*Client),
		sessions:  make(chan sessionChange, 256),
		broadcast: make(chan userMessage, 1024),
		stopped:   make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every open session.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.closeAll()
			return

		case change := <-h.sessions:
			client := change.client
			if !change.join {
				h.remove(client)
				continue
			}
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			close(change.done)
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := append([]*Client(nil), h.clients[msg.userID]...)
			h.mu.RUnlock()

			for _, client := range clients {
				if !client.enqueue(msg.data) {
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": msg.userID,
					})
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = kept
	}
	client.close()

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, list := range h.clients {
		for _, c := range list {
			c.close()
		}
		delete(h.clients, userID)
	}
}

// CartChanged pushes the new cart snapshot to every session of userID.
// Snapshots are dropped rather than blocking the caller when the hub is
// saturated; clients resync on their next request.
func (h *Hub) CartChanged(userID uint, cart *model.CartView) {
	data, err := json.Marshal(Event{Type: EventCartUpdated, Cart: cart})
	if err != nil {
		logger.Error("Failed to marshal cart event", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	select {
	case h.broadcast <- userMessage{userID: userID, data: data}:
	default:
		logger.Warn("Broadcast channel full, cart event dropped", map[string]interface{}{
			"user_id": userID,
		})
	}
}

// Register adds client and returns once the hub routes the user's events to
// it. After the hub has stopped the client is closed and ErrHubStopped
// returned.
func (h *Hub) Register(client *Client) error {
	done := make(chan struct{})
	select {
	case h.sessions <- sessionChange{client: client, join: true, done: done}:
	case <-h.stopped:
		client.close()
		return ErrHubStopped
	}

	select {
	case <-done:
		return nil
	case <-h.stopped:
		client.close()
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case <-h.stopped:
		client.close()
		return
	default:
	}

	select {
	case h.sessions <- sessionChange{client: client}:
	case <-h.stopped:
		client.close()
	}
}

// SessionCount returns the number of open sessions of userID.
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// HandleClientMessage answers pings. Anything else is ignored; carts are
// only changed through the HTTP API.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == messagePing {
		client.Push(Event{Type: EventPong})
	}
}
