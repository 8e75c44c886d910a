package relay

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPingPeriod    = 30 * time.Second
	wsMaxMessage    = 4096
)

// Client is one relay connection. The send channel and closed flag belong to
// the hub goroutine; the pumps only read from them.
type Client struct {
	ID      string
	Session string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	closed bool

	log *logrus.Entry
}

func newClient(h *Hub, id string, conn *websocket.Conn) *Client {
	session := uuid.NewString()
	return &Client{
		ID:      id,
		Session: session,
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.sendBuffer),
		log: logrus.WithFields(logrus.Fields{
			"component": "relay",
			"client_id": id,
			"session":   session,
		}),
	}
}

// enqueue reports false when the client is gone or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		if !c.hub.deliver(c, data) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.WithError(err).Debug("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping error")
				return
			}
		}
	}
}
