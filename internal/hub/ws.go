package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	DefaultSendBuffer      = 64
	DefaultMaxMessageBytes = 64 << 10
)

// TransportConfig tunes the websocket transport.
type TransportConfig struct {
	// SendBuffer is the per-connection outbound queue length. Messages beyond it are dropped.
	SendBuffer int

	// MaxMessageBytes caps inbound message size; larger messages close the connection.
	MaxMessageBytes int64

	// CheckOrigin validates the Origin header of upgrade requests. Nil allows any origin.
	CheckOrigin func(r *http.Request) bool
}

// wsClient adapts a websocket connection to Client. Writes happen on writePump only.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Handler returns an http.Handler that upgrades requests to websocket connections
// and feeds their messages into the hub.
func (h *Hub) Handler(cfg TransportConfig) http.Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			slog.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
			return
		}

		client := &wsClient{conn: conn, send: make(chan []byte, cfg.SendBuffer)}
		connID := h.Connect(client)

		go client.writePump()
		client.readPump(r.Context(), h, connID, cfg.MaxMessageBytes)

		h.Disconnect(connID)
		client.close()
	})
}

// readPump feeds inbound messages to the hub until the connection fails.
func (c *wsClient) readPump(ctx context.Context, h *Hub, connID string, maxBytes int64) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Warn("Websocket read failed", "conn_id", connID, "error", err)
			}
			return
		}
		h.HandleMessage(ctx, connID, data)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *wsClient) writePump() {
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
				// The hub closed the queue.
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
