package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"lanchat/pkg/chat"
	"lanchat/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPeer struct {
	conn   net.Conn
	reader *bufio.Reader
}

func startServer(t *testing.T, cfg Config) (*Server, *Service) {
	t.Helper()

	svc, _, _ := setupService(t)
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Second
	}
	srv := NewServer(cfg, svc, logger.NewNop())
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("relay server did not stop")
		}
	})
	return srv, svc
}

func dialPeer(t *testing.T, srv *Server, svc *Service, expectedPeers int) *testPeer {
	t.Helper()

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool { return svc.Peers() == expectedPeers }, 2*time.Second, 10*time.Millisecond)
	return &testPeer{conn: c, reader: bufio.NewReader(c)}
}

func (p *testPeer) send(t *testing.T, line string) {
	t.Helper()
	_, err := p.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (p *testPeer) readLine(t *testing.T) string {
	t.Helper()
	require.NoError(t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := p.reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func (p *testPeer) expectSilence(t *testing.T) {
	t.Helper()
	require.NoError(t, p.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, err := p.reader.ReadString('\n')
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}

func TestServer_ListenFailsOnBusyPort(t *testing.T) {
	srv, svc := startServer(t, Config{})

	other := NewServer(Config{Addr: srv.Addr().String()}, svc, logger.NewNop())
	assert.Error(t, other.Listen())
}

func TestServer_ServeBeforeListen(t *testing.T) {
	svc, _, _ := setupService(t)
	srv := NewServer(Config{Addr: "127.0.0.1:0"}, svc, logger.NewNop())

	assert.Error(t, srv.Serve(context.Background()))
}

func TestServer_RelaysToOtherPeersOnly(t *testing.T) {
	srv, svc := startServer(t, Config{})
	alice := dialPeer(t, srv, svc, 1)
	bob := dialPeer(t, srv, svc, 2)
	carol := dialPeer(t, srv, svc, 3)

	frame := `{"username":"alice","message":"hello lan"}`
	alice.send(t, frame)

	assert.Equal(t, frame, bob.readLine(t))
	assert.Equal(t, frame, carol.readLine(t))
	alice.expectSilence(t)

	msgs, last := svc.ReadSince(-1)
	require.Len(t, msgs, 1)
	assert.Equal(t, 0, last)
	assert.Equal(t, "alice", msgs[0].Username)
	assert.Equal(t, "hello lan", msgs[0].Message)
}

func TestServer_FramesSplitAcrossWrites(t *testing.T) {
	srv, svc := startServer(t, Config{})
	alice := dialPeer(t, srv, svc, 1)
	bob := dialPeer(t, srv, svc, 2)

	_, err := alice.conn.Write([]byte(`{"username":"alice",`))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = alice.conn.Write([]byte(`"message":"part two"}` + "\n" + `{"message":"second"}` + "\n"))
	require.NoError(t, err)

	assert.Equal(t, `{"username":"alice","message":"part two"}`, bob.readLine(t))
	assert.Equal(t, `{"message":"second"}`, bob.readLine(t))

	msgs, _ := svc.ReadSince(-1)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.DefaultUsername, msgs[1].Username)
}

func TestServer_MalformedPayloadKeepsSession(t *testing.T) {
	srv, svc := startServer(t, Config{})
	alice := dialPeer(t, srv, svc, 1)
	bob := dialPeer(t, srv, svc, 2)

	alice.send(t, "this is not json")
	alice.send(t, "")
	alice.send(t, `{"username":"alice","message":"still here"}`)

	assert.Equal(t, `{"username":"alice","message":"still here"}`, bob.readLine(t))
	assert.Equal(t, 2, svc.Peers())

	msgs, _ := svc.ReadSince(-1)
	assert.Len(t, msgs, 1)
}

func TestServer_HTTPSubmissionReachesAllPeers(t *testing.T) {
	srv, svc := startServer(t, Config{})
	alice := dialPeer(t, srv, svc, 1)
	bob := dialPeer(t, srv, svc, 2)

	msg, err := svc.Submit("web", "from browser")
	require.NoError(t, err)

	for _, p := range []*testPeer{alice, bob} {
		var got chat.Message
		require.NoError(t, json.Unmarshal([]byte(p.readLine(t)), &got))
		assert.Equal(t, msg, got)
	}
}

func TestServer_DisconnectUnregistersPeer(t *testing.T) {
	srv, svc := startServer(t, Config{})
	alice := dialPeer(t, srv, svc, 1)
	_ = dialPeer(t, srv, svc, 2)

	require.NoError(t, alice.conn.Close())

	require.Eventually(t, func() bool { return svc.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_OversizePayloadClosesSession(t *testing.T) {
	srv, svc := startServer(t, Config{MaxPayloadBytes: 4096})
	alice := dialPeer(t, srv, svc, 1)

	alice.send(t, `{"message":"`+strings.Repeat("x", 10000)+`"}`)

	require.Eventually(t, func() bool { return svc.Peers() == 0 }, 2*time.Second, 10*time.Millisecond)
	msgs, _ := svc.ReadSince(-1)
	assert.Empty(t, msgs)
}

func TestServer_CloseStopsAccepting(t *testing.T) {
	svc, _, _ := setupService(t)
	srv := NewServer(Config{Addr: "127.0.0.1:0"}, svc, logger.NewNop())
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	require.NoError(t, srv.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	_, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}
