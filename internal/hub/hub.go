// Package hub keeps the set of reachable peer connections and fans
// payloads out to them.
package hub

import (
	"sync"

	"lanchat/internal/metrics"
	"lanchat/pkg/logger"
)

// Peer is one open bidirectional session with a relay client.
type Peer interface {
	ID() string
	Addr() string
	Send(payload []byte) error
	Close() error
}

type Hub struct {
	peers map[Peer]bool
	mu    sync.RWMutex
	log   logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		peers: make(map[Peer]bool),
		log:   log,
	}
}

func (h *Hub) Add(p Peer) {
	if p == nil {
		return
	}

	h.mu.Lock()
	h.peers[p] = true
	count := len(h.peers)
	metrics.PeersConnected.Set(float64(count))
	h.mu.Unlock()

	h.log.Info("Peer registered", "peer", p.ID(), "addr", p.Addr(), "total", count)
}

// Remove unregisters p and reports whether it was registered.
func (h *Hub) Remove(p Peer) bool {
	if p == nil {
		return false
	}

	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	count := len(h.peers)
	if ok {
		metrics.PeersConnected.Set(float64(count))
	}
	h.mu.Unlock()

	if ok {
		h.log.Info("Peer unregistered", "peer", p.ID(), "addr", p.Addr(), "total", count)
	}
	return ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Snapshot returns a copy of the registered peers that is safe to iterate
// while others register or leave.
func (h *Hub) Snapshot() []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	peers := make([]Peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}

// Broadcast sends payload to every peer except exclude and returns the number
// of successful deliveries. Peers whose send fails are evicted and closed.
func (h *Hub) Broadcast(payload []byte, exclude Peer) int {
	delivered := 0
	var failed []Peer

	for _, p := range h.Snapshot() {
		if exclude != nil && p == exclude {
			continue
		}
		if err := p.Send(payload); err != nil {
			h.log.Warn("Send to peer failed, evicting", "peer", p.ID(), "addr", p.Addr(), "error", err.Error())
			failed = append(failed, p)
			continue
		}
		delivered++
	}

	metrics.BroadcastDeliveries.Add(float64(delivered))

	for _, p := range failed {
		if h.Remove(p) {
			metrics.PeersEvicted.Inc()
		}
		_ = p.Close()
	}

	h.log.Debug("Broadcast complete", "delivered", delivered, "evicted", len(failed))
	return delivered
}
