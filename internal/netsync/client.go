package netsync

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"duelarena/internal/protocol"
)

const (
	idChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
	IDLength = 6

	writeWait = 10 * time.Second
)

// Event is one item of the inbound queue: the connection opening, the
// connection dropping, or a decoded peer message.
type Event struct {
	Opened bool
	Closed bool
	ID     string
	Msg    protocol.Message
}

type Options struct {
	Endpoint   string // base URL; the client id is appended
	SendBuffer int
	RecvBuffer int
	Dialer     *websocket.Dialer
}

// Client is a fire-and-forget websocket link to the peer relay. It never
// reconnects; a failed dial leaves it silent.
type Client struct {
	id   string
	url  string
	in   chan Event
	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	closeOnce sync.Once

	log *logrus.Entry
}

// NewClientID returns 6 random lowercase alphanumeric characters.
func NewClientID() string {
	b := make([]byte, IDLength)
	max := big.NewInt(int64(len(idChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = idChars[idx.Int64()]
	}
	return string(b)
}

// EndpointURL joins the configured base and the client id.
func EndpointURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id
}

// Dial starts connecting in the background and returns at once. The Opened
// event is queued when the handshake succeeds.
func Dial(ctx context.Context, opts Options) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.RecvBuffer <= 0 {
		opts.RecvBuffer = 256
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	id := NewClientID()
	c := &Client{
		id:   id,
		url:  EndpointURL(opts.Endpoint, id),
		in:   make(chan Event, opts.RecvBuffer),
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
		log:  logrus.WithFields(logrus.Fields{"component": "netsync", "client_id": id}),
	}
	go c.connect(ctx, opts.Dialer)
	return c
}

func (c *Client) ID() string { return c.id }

func (c *Client) URL() string { return c.url }

func (c *Client) Inbound() <-chan Event { return c.in }

func (c *Client) connect(ctx context.Context, d *websocket.Dialer) {
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		c.log.WithError(err).Warn("dial failed, running local only")
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.WithField("url", c.url).Info("connected")
	if !c.push(Event{Opened: true, ID: c.id}) {
		return
	}
	go c.writePump(conn)
	c.readPump(conn)
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.WithError(err).Warn("connection dropped")
				c.push(Event{Closed: true})
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.WithError(err).Debug("discarding malformed message")
			continue
		}
		if !c.push(Event{Msg: msg}) {
			return
		}
	}
}

func (c *Client) writePump(conn *websocket.Conn) {
	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

// push queues ev for the simulation; it gives up once the client is closed.
func (c *Client) push(ev Event) bool {
	select {
	case c.in <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Send encodes and queues m. It never blocks: when the buffer is full or the
// client is closed the message is dropped.
func (c *Client) Send(m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		c.log.WithError(err).Debug("encode failed")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.log.Debug("send buffer full, dropping update")
	}
}

// Close tears the connection down. Errors from closing are swallowed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	return nil
}
