package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/virtual-gateway/internal/automation"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/config"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// Event types pushed by the hub.
const (
	EventStateUpdated    = "state.updated"
	EventAutomationEvent = "automation.event"
)

// sendBufferSize is the per-client outbound queue. Clients that cannot
// drain it are dropped rather than allowed to stall the hub.
const sendBufferSize = 256

// WSMessage is the wire format for all WebSocket traffic.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hub fans gateway events out to connected WebSocket clients.
//
// All methods are safe for concurrent use. Broadcasts never block: a
// client with a full send queue is disconnected.
type Hub struct {
	cfg    config.WebSocketConfig
	logger Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// BroadcastState pushes the full device snapshot to clients subscribed
// to state updates.
func (h *Hub) BroadcastState(things map[string]thing.Thing) {
	payload, err := json.Marshal(map[string]any{"things": things})
	if err != nil {
		h.logger.Error("state payload marshal failed", "error", err)
		return
	}
	h.broadcast(EventStateUpdated, payload)
}

// BroadcastEvent pushes one automation log entry to clients subscribed
// to automation events.
func (h *Hub) BroadcastEvent(ev automation.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("event payload marshal failed", "error", err)
		return
	}
	h.broadcast(EventAutomationEvent, payload)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Called during server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.closeOnce()
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "username", c.username, "clients", count)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if present {
		c.closeOnce()
		h.logger.Debug("websocket client disconnected", "username", c.username, "clients", count)
	}
}

// broadcast delivers one event to every subscribed client. The client
// set is snapshotted under the read lock; sends happen outside it.
func (h *Hub) broadcast(eventType string, payload json.RawMessage) {
	msg := WSMessage{
		Type:      "event",
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.subscribed(eventType) {
			continue
		}
		if !c.trySend(data) {
			h.logger.Warn("websocket client queue full, dropping", "username", c.username)
			h.unregister(c)
		}
	}
}

// wsClient is one connected WebSocket session.
type wsClient struct {
	hub      *Hub
	conn     *websocket.Conn
	username string
	send     chan []byte

	mu            sync.Mutex
	closed        bool
	subscriptions map[string]bool
}

// subscribed reports whether the client receives the given event type.
func (c *wsClient) subscribed(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions[eventType]
}

func (c *wsClient) setSubscription(eventType string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.subscriptions[eventType] = true
	} else {
		delete(c.subscriptions, eventType)
	}
}

// trySend queues a message without blocking. Returns false when the
// queue is full or the client is closed.
func (c *wsClient) trySend(data []byte) (ok bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeOnce closes the send channel exactly once, which stops the
// write pump and closes the connection.
func (c *wsClient) closeOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// handleWebSocket upgrades the connection after redeeming the ticket
// and starts the client pumps. New clients start subscribed to both
// event types; they can unsubscribe after connecting.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "missing ticket")
		return
	}
	username, ok := s.tickets.redeem(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		hub:      s.hub,
		conn:     conn,
		username: username,
		send:     make(chan []byte, sendBufferSize),
		subscriptions: map[string]bool{
			EventStateUpdated:    true,
			EventAutomationEvent: true,
		},
	}

	s.hub.register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump consumes inbound messages until the connection drops.
func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	maxSize := int64(cfg.MaxMessageSize)
	if maxSize <= 0 {
		maxSize = 8192
	}
	pongTimeout := time.Duration(cfg.PongTimeout) * time.Second
	if pongTimeout <= 0 {
		pongTimeout = 10 * time.Second
	}
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	c.conn.SetReadLimit(maxSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage processes one inbound client message: subscribe,
// unsubscribe, or ping. Unknown types are ignored.
func (c *wsClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.EventType == EventStateUpdated || msg.EventType == EventAutomationEvent {
			c.setSubscription(msg.EventType, true)
		}
	case "unsubscribe":
		c.setSubscription(msg.EventType, false)
	case "ping":
		pong, err := json.Marshal(WSMessage{
			Type:      "pong",
			ID:        msg.ID,
			Timestamp: time.Now().UTC(),
		})
		if err == nil {
			c.trySend(pong)
		}
	}
}

// writePump drains the send queue to the connection and keeps the
// session alive with pings.
func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	writeTimeout := time.Duration(cfg.PongTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
