package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

// scriptDialer fails a fixed number of attempts, then hands out pipe
// connections whose far ends arrive on server.
type scriptDialer struct {
	failures int
	server   chan netx.Conn

	mu    sync.Mutex
	dials int
	addrs []netx.Addr
}

func (d *scriptDialer) Dial(ctx context.Context, addr netx.Addr) (netx.Conn, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.addrs = append(d.addrs, addr)
	d.mu.Unlock()

	if n <= d.failures {
		return nil, errors.New("connection refused")
	}
	cc, sc := net.Pipe()
	d.server <- testConn{sc}
	return testConn{cc}, nil
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// TestSupervisorRetriesThenEstablishes is the end-to-end scenario: two
// connect failures, then a successful handshake reaching connected and
// one eager puzzle request.
func TestSupervisorRetriesThenEstablishes(t *testing.T) {
	c, _ := newTestClient(t, 16)
	dialer := &scriptDialer{failures: 2, server: make(chan netx.Conn, 1)}
	c.dialer = dialer

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	var conn netx.Conn
	select {
	case conn = <-dialer.server:
	case <-time.After(waitTimeout):
		t.Fatal("supervisor never reached a successful dial")
	}
	require.Equal(t, 3, dialer.dialCount(), "expected two failures before success")

	co := &coordinator{t: t, conn: conn, codec: wire.NewCodec(conn)}
	co.challenge(wire.NodeBeacon, wire.ProtocolVersion, wire.GenesisDigest())
	co.expect(wire.KindPing)
	co.send(&wire.Pong{})
	co.expect(wire.KindPuzzleRequest)
	waitFor(t, c.Connected, "client never became connected")

	// Drop the connection: the supervisor must come back for more.
	require.NoError(t, conn.Close())
	var conn2 netx.Conn
	select {
	case conn2 = <-dialer.server:
	case <-time.After(waitTimeout):
		t.Fatal("supervisor did not reconnect after peer close")
	}
	require.False(t, c.Connected())

	cancel()
	_ = conn2.Close()
	require.ErrorIs(t, sessionErr(t, runErr), context.Canceled)

	// Every attempt drew from the configured candidate set.
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	for _, addr := range dialer.addrs {
		require.Contains(t, c.cfg.Beacons, addr)
	}
}

func TestSupervisorStopsOnCancel(t *testing.T) {
	c, _ := newTestClient(t, 16)
	c.dialer = &scriptDialer{failures: 1 << 30, server: make(chan netx.Conn)}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	require.ErrorIs(t, sessionErr(t, runErr), context.Canceled)
}
