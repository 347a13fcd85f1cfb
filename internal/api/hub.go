package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans authoritative state updates out to websocket subscribers. Clients
// subscribe per session; a push for one session never reaches another.
type Hub struct {
	log *slog.Logger

	mu       sync.Mutex
	sessions map[string]map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:      logger,
		sessions: make(map[string]map[*wsClient]bool),
	}
}

// Push serializes payload and queues it for every subscriber of the session.
// Subscribers whose send buffer is full are dropped; a client that cannot
// keep up reconnects and refetches state.
func (h *Hub) Push(sessionID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal push", "session_id", sessionID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[sessionID] {
		select {
		case c.send <- raw:
		default:
			h.dropLocked(sessionID, c)
		}
	}
}

func (h *Hub) subscribe(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*wsClient]bool)
	}
	h.sessions[sessionID][c] = true
}

func (h *Hub) unsubscribe(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID][c] {
		h.dropLocked(sessionID, c)
	}
}

func (h *Hub) dropLocked(sessionID string, c *wsClient) {
	delete(h.sessions[sessionID], c)
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
	}
	close(c.send)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and keeps the connection subscribed to the
// session until either side closes it.
func (h *Hub) ServeWS(sessionID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade", "session_id", sessionID, "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.subscribe(sessionID, c)

	go c.writePump()
	c.readPump(h, sessionID)
}

// readPump discards inbound frames; the socket is push-only. It exists to
// detect the close handshake.
func (c *wsClient) readPump(h *Hub, sessionID string) {
	defer func() {
		h.unsubscribe(sessionID, c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
