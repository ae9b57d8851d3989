package chat

import (
	"strings"
	"time"
)

const (
	// DefaultUsername is used when a sender does not name itself.
	DefaultUsername = "Anonymous"

	// TimestampLayout is the wall-clock format stamped on every message.
	TimestampLayout = "15:04:05"
)

// Message is one entry of the message log. ID is the sequence index
// assigned by the log at append time.
type Message struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ID        int    `json:"id"`
}

// ServerInfo is the address snapshot advertised to browser clients.
type ServerInfo struct {
	HostIP     string `json:"host_ip"`
	HTTPPort   int    `json:"http_port"`
	SocketPort int    `json:"socket_port"`
}

// NewMessage stamps a message with the given time. The username is kept as
// given; callers apply DefaultUsername when the sender omitted one. The ID is
// left for the log to assign.
func NewMessage(username, text string, now time.Time) Message {
	return Message{
		Username:  username,
		Message:   text,
		Timestamp: now.Format(TimestampLayout),
	}
}

// NormalizeUsername falls back to DefaultUsername for blank names typed at a
// client prompt.
func NormalizeUsername(username string) string {
	if strings.TrimSpace(username) == "" {
		return DefaultUsername
	}
	return username
}
