package gqlserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/metrics"
	"github.com/archbeaver/beaver/service"
)

// WebSocket timeouts, following the gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// The feed is server to client only; inbound frames are control-sized
	maxMessageSize = 4096

	sendBufferSize = 64
)

// MaxClients bounds concurrent change feed connections
const MaxClients = 256

// Hub fans change events out to websocket clients. It implements
// service.Publisher; Publish never blocks and drops clients that fall behind.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Server
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[*feedClient]bool
	closed  bool
}

type feedClient struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	id        string
	closeOnce sync.Once
}

// NewHub creates a hub. checkOrigin may be nil to allow every origin.
func NewHub(checkOrigin func(*http.Request) bool, m *metrics.Server, log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		metrics: m,
		logger:  log.Named("ws"),
		clients: make(map[*feedClient]bool),
	}
}

// Publish implements service.Publisher
func (h *Hub) Publish(e service.Event) {
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(e.Entity, e.Action).Inc()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.Warnw("Failed to encode change event", logger.FieldError, err)
		return
	}

	// Sends happen under the read lock; send channels are only closed under the write lock
	var slow []*feedClient
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warnw("Client send buffer full, removing client", logger.FieldClientID, c.id)
		h.unregister(c)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams change events until the peer leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}
	c := &feedClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.NewString(),
	}
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *feedClient) bool {
	h.mu.Lock()
	if h.closed || len(h.clients) >= MaxClients {
		h.mu.Unlock()
		h.logger.Warnw("Rejecting change feed client",
			logger.FieldClientID, c.id,
			logger.FieldCount, MaxClients,
		)
		return false
	}
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Inc()
	}
	h.logger.Infow("Client connected", logger.FieldClientID, c.id, logger.FieldTotalCount, total)
	return true
}

func (h *Hub) unregister(c *feedClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.close()
	total := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Dec()
	}
	h.logger.Infow("Client disconnected", logger.FieldClientID, c.id, logger.FieldTotalCount, total)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

func (c *feedClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump discards inbound frames and keeps the read deadline alive
func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.hub.logger.Warnw("WebSocket read error", logger.FieldClientID, c.id, logger.FieldError, err)
			}
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
