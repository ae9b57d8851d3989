package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPayload is returned for relay frames that are not a chat message.
var ErrInvalidPayload = errors.New("invalid relay payload")

// Payload is the relay wire format: one JSON object per line.
type Payload struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// inboundPayload tells an absent username apart from an empty one.
type inboundPayload struct {
	Username  *string `json:"username"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// ParsePayload decodes a single relay frame. An absent username becomes
// DefaultUsername and a missing timestamp is filled in. A frame without
// message text, or with only whitespace, is rejected.
func ParsePayload(frame []byte, now time.Time) (Message, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 || frame[0] != '{' {
		return Message{}, ErrInvalidPayload
	}

	var p inboundPayload
	if err := json.Unmarshal(frame, &p); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(p.Message) == "" {
		return Message{}, fmt.Errorf("%w: empty message", ErrInvalidPayload)
	}

	username := DefaultUsername
	if p.Username != nil {
		username = *p.Username
	}

	msg := NewMessage(username, p.Message, now)
	if p.Timestamp != "" {
		msg.Timestamp = p.Timestamp
	}
	return msg, nil
}

// EncodePayload renders a message as a relay frame without the trailing
// newline; transports add their own delimiter.
func EncodePayload(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
