package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"lanchat/internal/metrics"
	"lanchat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id     string
	fail   bool
	mu     sync.Mutex
	sent   [][]byte
	closed int
	onSend func()
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string   { return p.id }
func (p *fakePeer) Addr() string { return "127.0.0.1:0" }

func (p *fakePeer) Send(payload []byte) error {
	if p.onSend != nil {
		p.onSend()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broken pipe")
	}
	p.sent = append(p.sent, append([]byte(nil), payload...))
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, b := range p.sent {
		out = append(out, string(b))
	}
	return out
}

func TestNewHub(t *testing.T) {
	h := NewHub(logger.NewNop())

	assert.NotNil(t, h)
	assert.NotNil(t, h.peers)
	assert.Equal(t, 0, h.Count())
}

func TestHub_AddRemove(t *testing.T) {
	h := NewHub(logger.NewNop())
	p := newFakePeer("p1")

	h.Add(p)
	h.Add(p)
	assert.Equal(t, 1, h.Count())
	assert.Contains(t, h.Snapshot(), p)

	assert.True(t, h.Remove(p))
	assert.False(t, h.Remove(p))
	assert.Equal(t, 0, h.Count())
	assert.NotContains(t, h.Snapshot(), p)
}

func TestHub_NilPeerHandling(t *testing.T) {
	h := NewHub(logger.NewNop())

	h.Add(nil)
	assert.Equal(t, 0, h.Count())
	assert.False(t, h.Remove(nil))
}

func TestHub_BroadcastToAll(t *testing.T) {
	h := NewHub(logger.NewNop())
	p1, p2, p3 := newFakePeer("p1"), newFakePeer("p2"), newFakePeer("p3")
	h.Add(p1)
	h.Add(p2)
	h.Add(p3)

	delivered := h.Broadcast([]byte("hello"), nil)

	assert.Equal(t, 3, delivered)
	for _, p := range []*fakePeer{p1, p2, p3} {
		assert.Equal(t, []string{"hello"}, p.received())
	}
}

func TestHub_BroadcastWithExclusion(t *testing.T) {
	h := NewHub(logger.NewNop())
	sender, other := newFakePeer("sender"), newFakePeer("other")
	h.Add(sender)
	h.Add(other)

	delivered := h.Broadcast([]byte("hi"), sender)

	assert.Equal(t, 1, delivered)
	assert.Empty(t, sender.received())
	assert.Equal(t, []string{"hi"}, other.received())
}

func TestHub_BroadcastEvictsFailedPeers(t *testing.T) {
	h := NewHub(logger.NewNop())
	good, bad := newFakePeer("good"), newFakePeer("bad")
	bad.fail = true
	h.Add(good)
	h.Add(bad)

	assert.NotPanics(t, func() {
		delivered := h.Broadcast([]byte("one"), nil)
		assert.Equal(t, 1, delivered)
	})

	assert.NotContains(t, h.Snapshot(), bad)
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, 1, h.Count())

	delivered := h.Broadcast([]byte("two"), nil)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"one", "two"}, good.received())
}

func TestHub_BroadcastUsesSnapshot(t *testing.T) {
	h := NewHub(logger.NewNop())
	late := newFakePeer("late")

	first := newFakePeer("first")
	first.onSend = func() { h.Add(late) }
	h.Add(first)

	delivered := h.Broadcast([]byte("x"), nil)

	assert.Equal(t, 1, delivered)
	assert.Empty(t, late.received())
	assert.Contains(t, h.Snapshot(), late)
}

func TestHub_SnapshotIsCopy(t *testing.T) {
	h := NewHub(logger.NewNop())
	p := newFakePeer("p")
	h.Add(p)

	snap := h.Snapshot()
	h.Remove(p)

	require.Len(t, snap, 1)
	assert.Equal(t, 0, h.Count())
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := NewHub(logger.NewNop())

	const numPeers = 100
	var wg sync.WaitGroup

	for i := 0; i < numPeers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newFakePeer(fmt.Sprintf("peer-%d", i))
			h.Add(p)
			h.Broadcast([]byte("ping"), p)
			if i%2 == 0 {
				h.Remove(p)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numPeers/2, h.Count())
}

func TestHub_PeersGaugeFollowsConcurrentChanges(t *testing.T) {
	h := NewHub(logger.NewNop())

	const rounds = 200
	var wg sync.WaitGroup

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		p := newFakePeer(fmt.Sprintf("churn-%d", i))
		go func() {
			defer wg.Done()
			h.Add(p)
		}()
		go func() {
			defer wg.Done()
			h.Remove(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(h.Count()), testutil.ToFloat64(metrics.PeersConnected))
}
