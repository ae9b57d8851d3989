package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"lanchat/pkg/chat"

	tea "github.com/charmbracelet/bubbletea"
)

// messageReceivedMsg carries one frame relayed from another peer.
type messageReceivedMsg chat.Message

// disconnectedMsg reports that the relay closed the connection.
type disconnectedMsg struct{ err error }

// TCPClient speaks the relay's newline-delimited JSON protocol.
type TCPClient struct {
	conn    net.Conn
	ch      chan<- tea.Msg
	writeMu sync.Mutex
	now     func() time.Time
}

func Dial(addr string, timeout time.Duration, ch chan<- tea.Msg) (*TCPClient, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &TCPClient{conn: conn, ch: ch, now: time.Now}, nil
}

// Start reads frames in the background until the connection ends.
// Malformed frames are skipped.
func (c *TCPClient) Start(maxPayloadBytes int) {
	go func() {
		scanner := bufio.NewScanner(c.conn)
		scanner.Buffer(make([]byte, 0, 4096), maxPayloadBytes)

		for scanner.Scan() {
			msg, err := chat.ParsePayload(scanner.Bytes(), c.now())
			if err != nil {
				continue
			}
			c.ch <- messageReceivedMsg(msg)
		}

		err := scanner.Err()
		if err == nil {
			err = errors.New("connection closed by server")
		}
		c.ch <- disconnectedMsg{err: err}
	}()
}

// Send writes one message and returns it as the relay's peers will see it.
func (c *TCPClient) Send(username, text string) (chat.Message, error) {
	msg := chat.NewMessage(chat.NormalizeUsername(username), text, c.now())
	payload, err := json.Marshal(chat.Payload{
		Username:  msg.Username,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return chat.Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

func (c *TCPClient) Close() error {
	return c.conn.Close()
}
