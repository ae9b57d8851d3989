// Package relay joins the message log and the peer registry: messages that
// enter through HTTP or a peer session are logged and fanned out from here.
package relay

import (
	"bytes"
	"fmt"
	"time"

	"lanchat/internal/hub"
	"lanchat/internal/message"
	"lanchat/internal/metrics"
	"lanchat/pkg/chat"
	"lanchat/pkg/logger"
)

type Service struct {
	messages *message.MessageService
	hub      *hub.Hub
	info     chat.ServerInfo
	log      logger.Logger
	now      func() time.Time
}

func NewService(messages *message.MessageService, h *hub.Hub, info chat.ServerInfo, log logger.Logger) *Service {
	return &Service{
		messages: messages,
		hub:      h,
		info:     info,
		log:      log,
		now:      time.Now,
	}
}

// Submit logs a message that arrived over HTTP and sends it to every peer.
func (s *Service) Submit(username, text string) (chat.Message, error) {
	msg, err := s.messages.Append(username, text)
	if err != nil {
		return chat.Message{}, err
	}
	metrics.MessagesAppended.WithLabelValues(metrics.SourceHTTP).Inc()

	payload, err := chat.EncodePayload(msg)
	if err != nil {
		return msg, fmt.Errorf("encode message %d: %w", msg.ID, err)
	}

	delivered := s.hub.Broadcast(payload, nil)
	s.log.Debug("HTTP message relayed", "id", msg.ID, "username", msg.Username, "delivered", delivered)
	return msg, nil
}

// Ingest logs a frame received from a peer and forwards the frame unchanged
// to every other peer. Malformed frames return chat.ErrInvalidPayload and are
// neither logged nor forwarded.
func (s *Service) Ingest(from hub.Peer, frame []byte, source string) (chat.Message, error) {
	frame = bytes.TrimSpace(frame)
	parsed, err := chat.ParsePayload(frame, s.now())
	if err != nil {
		metrics.MalformedPayloads.WithLabelValues(source).Inc()
		return chat.Message{}, err
	}

	msg := s.messages.AppendRaw(parsed)
	metrics.MessagesAppended.WithLabelValues(source).Inc()

	delivered := s.hub.Broadcast(frame, from)
	s.log.Debug("Peer message relayed", "id", msg.ID, "from", peerID(from), "delivered", delivered)
	return msg, nil
}

func (s *Service) ReadSince(lastIndex int) ([]chat.Message, int) {
	return s.messages.ReadSince(lastIndex)
}

func (s *Service) Attach(p hub.Peer) {
	s.hub.Add(p)
}

// Detach unregisters p and reports whether this call removed it.
func (s *Service) Detach(p hub.Peer) bool {
	return s.hub.Remove(p)
}

func (s *Service) Info() chat.ServerInfo {
	return s.info
}

func (s *Service) Peers() int {
	return s.hub.Count()
}

func peerID(p hub.Peer) string {
	if p == nil {
		return ""
	}
	return p.ID()
}

// Shutdown unregisters and closes every attached peer so their sessions end.
func (s *Service) Shutdown() int {
	peers := s.hub.Snapshot()
	for _, p := range peers {
		s.hub.Remove(p)
		_ = p.Close()
	}
	return len(peers)
}
