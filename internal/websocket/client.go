package websocket

import (
	"errors"
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

	sendBufferSize = 256
)

var (
	ErrClosed         = errors.New("websocket client closed")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Upgrader accepts any origin; the relay is meant for an open local network.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
}

// Client is a relay peer connected over WebSocket. Payloads are queued by
// Send and written by WritePump.
type Client struct {
	conn Conn
	id   string
	addr string

	// Buffered channel of outbound messages.
	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	connectedAt time.Time
}

func NewClient(conn Conn, id, addr string) *Client {
	return &Client{
		conn:        conn,
		id:          id,
		addr:        addr,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Send queues payload for delivery. It never blocks: a slow client whose
// buffer is full gets ErrSendBufferFull.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- append([]byte(nil), payload...):
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump and closes the underlying connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// ReadPump reads frames until the connection fails and hands each one to
// handle. maxMessageSize bounds a single frame.
func (c *Client) ReadPump(maxMessageSize int64, handle func(frame []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
