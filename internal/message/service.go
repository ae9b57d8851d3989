package message

import (
	"errors"
	"sync"
	"time"

	"lanchat/pkg/chat"
)

var ErrEmptyMessage = errors.New("empty message")

// MessageService is the process-wide, append-only message log.
type MessageService struct {
	mu       sync.RWMutex
	messages []chat.Message
	now      func() time.Time
}

func NewMessageService() *MessageService {
	return &MessageService{now: time.Now}
}

// Append stamps a new message with the current time and the next index.
// Only empty text is rejected; whitespace is a valid message.
func (s *MessageService) Append(username, text string) (chat.Message, error) {
	if text == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	return s.AppendRaw(chat.NewMessage(username, text, s.now())), nil
}

// AppendRaw stores a message that was built elsewhere. Any ID it carries is
// replaced with the next index.
func (s *MessageService) AppendRaw(msg chat.Message) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = len(s.messages)
	s.messages = append(s.messages, msg)
	return msg
}

// ReadSince returns every message with an index greater than lastIndex and
// the index of the newest message (-1 for an empty log).
func (s *MessageService) ReadSince(lastIndex int) ([]chat.Message, int) {
	if lastIndex < -1 {
		lastIndex = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	newLast := len(s.messages) - 1
	if lastIndex >= newLast {
		return []chat.Message{}, newLast
	}

	tail := s.messages[lastIndex+1:]
	out := make([]chat.Message, len(tail))
	copy(out, tail)
	return out, newLast
}

func (s *MessageService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
