package relay

import (
	"net"
	"sync"
	"time"
)

// conn is a TCP peer. Writes from concurrent broadcasts are serialized and
// each frame is terminated with a newline.
type conn struct {
	id           string
	netConn      net.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(id string, c net.Conn, writeTimeout time.Duration) *conn {
	return &conn{
		id:           id,
		netConn:      c,
		writeTimeout: writeTimeout,
	}
}

func (c *conn) ID() string {
	return c.id
}

func (c *conn) Addr() string {
	return c.netConn.RemoteAddr().String()
}

func (c *conn) Send(payload []byte) error {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.netConn.Write(frame)
	return err
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.netConn.Close()
	})
	return c.closeErr
}
