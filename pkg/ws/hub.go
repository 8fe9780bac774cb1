package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yorishop/yori-backend/pkg/config"
	"github.com/yorishop/yori-backend/pkg/logger"
)

const sendBuffer = 16

// Client is one websocket subscriber attached to a room.
type Client struct {
	UserID string
	Room   string

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewClient wraps an upgraded connection for hub registration.
func NewClient(conn *websocket.Conn, userID, room string) *Client {
	return &Client{
		UserID: userID,
		Room:   room,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans messages out to the clients subscribed to each room.
type Hub struct {
	cfg  config.ChatConfig
	logg *logger.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub constructs an empty hub.
func NewHub(cfg config.ChatConfig, logg *logger.Logger) *Hub {
	return &Hub{
		cfg:   cfg,
		logg:  logg,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register adds the client to its room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[*Client]struct{})
	}
	h.rooms[c.Room][c] = struct{}{}
}

// Unregister removes the client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[c.Room]; ok {
		if _, member := conns[c]; member {
			delete(conns, c)
			c.close()
		}
		if len(conns) == 0 {
			delete(h.rooms, c.Room)
		}
	}
}

// Broadcast marshals the payload and queues it to every client in the room.
// Slow clients are dropped rather than blocking the sender.
func (h *Hub) Broadcast(ctx context.Context, room string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if h.logg != nil {
			h.logg.Error(ctx, "marshal broadcast payload", err)
		}
		return
	}

	var stale []*Client
	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.Unregister(c)
	}
}

// RoomSize reports the number of clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// WritePump drains the client's send queue onto the wire and keeps the
// connection alive with pings. It returns when the client is unregistered or
// the connection breaks.
func (h *Hub) WritePump(c *Client) {
	pingInterval := h.cfg.PongTimeout * 9 / 10
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes inbound frames, forwarding text payloads to onMessage.
// It enforces the configured read limits and pong deadline.
func (h *Hub) ReadPump(c *Client, onMessage func(data []byte)) {
	defer h.Unregister(c)

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}
