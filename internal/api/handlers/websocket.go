package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/barnes-hut-sim/internal/logger"
	"github.com/onnwee/barnes-hut-sim/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	clientBuffer    = 8
	broadcastBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage is the envelope for everything sent to clients.
type WebSocketMessage struct {
	Type    string          `json:"type"` // "hello", "snapshot"
	Payload json.RawMessage `json:"payload"`
}

type helloPayload struct {
	RunID      string `json:"run_id"`
	LatestStep *int   `json:"latest_step,omitempty"`
}

// Client is one WebSocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type directMessage struct {
	client  *Client
	message []byte
}

// Hub fans snapshot frames out to connected clients. Slow consumers miss
// frames instead of stalling the simulation.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directMessage
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
	}
}

// Run delivers messages until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
			metrics.WebSocketConnections.Dec()
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("WebSocket client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnections.Dec()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client disconnected", "total_clients", total)

		case dm := <-h.direct:
			h.mu.RLock()
			if h.clients[dm.client] {
				deliver(dm.client, dm.message)
			}
			h.mu.RUnlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				deliver(client, message)
			}
			h.mu.RUnlock()
		}
	}
}

// deliver queues message for client unless its buffer is full.
func deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		metrics.WebSocketMessagesSent.Inc()
	default:
		metrics.WebSocketMessagesDropped.Inc()
	}
}

// sendTo queues message for one registered client.
func (h *Hub) sendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// Publish queues a raw message for every client without blocking. It
// reports false when the hub is backed up and the message was dropped.
func (h *Hub) Publish(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		metrics.WebSocketMessagesDropped.Inc()
		return false
	}
}

// PublishSnapshot wraps an encoded snapshot in the message envelope.
func (h *Hub) PublishSnapshot(snapshot []byte) bool {
	data, err := encodeMessage("snapshot", snapshot)
	if err != nil {
		logger.Error("Failed to encode WebSocket snapshot", "error", err)
		return false
	}
	return h.Publish(data)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func encodeMessage(kind string, payload []byte) ([]byte, error) {
	return json.Marshal(WebSocketMessage{Type: kind, Payload: payload})
}

// readPump drains the connection so control frames are processed. A
// {"type":"latest"} request re-sends the newest snapshot.
func (c *Client) readPump(snaps SnapshotReader) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}

		var req struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(message, &req) != nil || req.Type != "latest" || snaps == nil {
			continue
		}
		if data, _, ok := snaps.Latest(); ok {
			if msg, err := encodeMessage("snapshot", data); err == nil {
				c.hub.sendTo(c, msg)
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler upgrades clients and attaches them to a hub.
type WebSocketHandler struct {
	hub   *Hub
	snaps SnapshotReader
}

// NewWebSocketHandler creates a handler over a running hub.
func NewWebSocketHandler(hub *Hub, snaps SnapshotReader) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, snaps: snaps}
}

// HandleWebSocket handles WebSocket upgrade and client connection
// GET /api/ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		logger.WarnContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	// Queue the greeting before registering so it precedes broadcast frames.
	hello := helloPayload{}
	if h.snaps != nil {
		hello.RunID = h.snaps.RunID()
		if step, ok := h.snaps.LatestStep(); ok {
			hello.LatestStep = &step
		}
	}
	if payload, err := json.Marshal(hello); err == nil {
		if msg, err := encodeMessage("hello", payload); err == nil {
			client.send <- msg
		}
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.snaps)
}

// Hub returns the hub clients are attached to.
func (h *WebSocketHandler) Hub() *Hub {
	return h.hub
}
