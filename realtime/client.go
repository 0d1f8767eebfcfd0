package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 32
)

// Client is one websocket connection. It may only join the rooms it was
// created with: its own subject room and its role broadcast room.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	allowed map[string]struct{}
	logger  *slog.Logger
	once    sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, rooms ...string) *Client {
	allowed := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		allowed[r] = struct{}{}
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		allowed: allowed,
		logger:  hub.logger,
	}
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend is only called by the hub while holding its write lock.
func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// Serve registers the client, joins its rooms and pumps frames until the
// connection drops or the hub closes.
func (c *Client) Serve() error {
	if err := c.hub.Register(c); err != nil {
		c.conn.Close()
		return err
	}
	for room := range c.allowed {
		if err := c.hub.Join(c, room); err != nil {
			c.hub.Remove(c)
			c.conn.Close()
			return err
		}
	}

	go c.writePump()
	c.readPump()
	c.hub.Remove(c)
	return nil
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame Frame) {
	switch frame.Event {
	case EventJoinRoom:
		if _, ok := c.allowed[frame.Room]; !ok {
			c.logger.Debug("refusing room join", "room", frame.Room)
			return
		}
		_ = c.hub.Join(c, frame.Room)
	case EventLeaveRoom:
		c.hub.Leave(c, frame.Room)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
