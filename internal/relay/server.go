package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"lanchat/internal/metrics"
	"lanchat/pkg/chat"
	"lanchat/pkg/logger"

	nanoid "github.com/matoous/go-nanoid/v2"
)

type Config struct {
	Addr            string
	MaxPayloadBytes int
	WriteTimeout    time.Duration
}

// Server accepts raw TCP peers. Each peer sends and receives
// newline-delimited JSON payloads.
type Server struct {
	cfg      Config
	service  *Service
	log      logger.Logger
	mu       sync.Mutex
	listener net.Listener
	sessions sync.WaitGroup
}

func NewServer(cfg Config, service *Service, log logger.Logger) *Server {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 64 * 1024
	}
	return &Server{
		cfg:     cfg,
		service: service,
		log:     log,
	}
}

// Listen binds the relay address. It must succeed before Serve is called.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("relay listen on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("Relay listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled or Close is called.
// Sessions still running at that point are left to finish on their own.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("relay: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.Close()
	})
	defer stop()

	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.log.Info("Relay stopped accepting connections")
				return nil
			}

			if ctx.Err() != nil {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.log.Warn("Accept failed, retrying", "error", err.Error(), "backoff", backoff.String())
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		id, err := nanoid.New(8)
		if err != nil {
			s.log.Error("Failed to generate peer id", err)
			_ = nc.Close()
			continue
		}

		c := newConn(id, nc, s.cfg.WriteTimeout)
		s.service.Attach(c)

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.handleSession(c)
		}()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Wait blocks until every session has ended. Used by tests.
func (s *Server) Wait() {
	s.sessions.Wait()
}

func (s *Server) handleSession(c *conn) {
	s.log.Info("Peer connected", "peer", c.ID(), "addr", c.Addr())

	defer s.endSession(c)

	scanner := bufio.NewScanner(c.netConn)
	scanner.Buffer(make([]byte, 0, 4096), s.cfg.MaxPayloadBytes)

	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		frame := append([]byte(nil), scanner.Bytes()...)

		if _, err := s.service.Ingest(c, frame, metrics.SourceTCP); err != nil {
			if errors.Is(err, chat.ErrInvalidPayload) {
				s.log.Debug("Dropped malformed payload", "peer", c.ID(), "error", err.Error())
				continue
			}
			s.log.Warn("Failed to relay payload", "peer", c.ID(), "error", err.Error())
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.log.Warn("Payload exceeded limit, closing session", "peer", c.ID(), "limit", s.cfg.MaxPayloadBytes)
			return
		}
		if !errors.Is(err, net.ErrClosed) {
			s.log.Debug("Peer read error", "peer", c.ID(), "error", err.Error())
		}
	}
}

// endSession runs once per session whichever way the read loop ended. A peer
// already evicted by a failed broadcast is not in the hub any more, so Detach
// is a no-op for it.
func (s *Server) endSession(c *conn) {
	s.service.Detach(c)
	_ = c.Close()
	s.log.Info("Peer disconnected", "peer", c.ID(), "addr", c.Addr())
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
