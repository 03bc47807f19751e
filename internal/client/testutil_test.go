package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conjugatebond/aleo-prover-lite/internal/config"
	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/metrics"
	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

const waitTimeout = 5 * time.Second

type testConn struct {
	net.Conn
}

func (c testConn) RemoteAddr() netx.Addr { return netx.Addr(c.Conn.RemoteAddr().String()) }

func newTestClient(t *testing.T, queueSize int) (*Client, chan prover.Event) {
	t.Helper()

	acct, err := identity.New()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.RewardAddress = acct.Address()
	cfg.Beacons = []netx.Addr{"beacon-a:4133", "beacon-b:4133"}
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.RetryCooldown = 10 * time.Millisecond
	cfg.PuzzleInterval = 20 * time.Millisecond
	cfg.QueueSize = queueSize

	events := make(chan prover.Event, 16)
	return New(cfg, acct, nil, events, metrics.New()), events
}

// coordinator drives the far end of a session pipe as a beacon would.
type coordinator struct {
	t     *testing.T
	conn  netx.Conn
	codec *wire.Codec
}

// startSession runs one router session against an in-memory pipe and
// returns the coordinator end plus the session's exit error channel.
func startSession(t *testing.T, c *Client) (*coordinator, <-chan error) {
	t.Helper()

	cc, sc := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		errCh <- c.runSession(ctx, testConn{cc})
		close(exited)
	}()
	t.Cleanup(func() {
		cancel()
		_ = sc.Close()
		select {
		case <-exited:
		case <-time.After(waitTimeout):
			t.Error("session did not exit")
		}
	})

	return &coordinator{t: t, conn: testConn{sc}, codec: wire.NewCodec(sc)}, errCh
}

func (co *coordinator) expect(kind wire.Kind) wire.Message {
	co.t.Helper()
	m, err := co.codec.ReadMessage()
	require.NoError(co.t, err)
	require.Equal(co.t, kind, m.Kind(), "expected %s, got %s", kind, m.Kind())
	return m
}

func (co *coordinator) send(m wire.Message) {
	co.t.Helper()
	require.NoError(co.t, co.codec.WriteMessage(m))
}

// challenge answers the client's opening ChallengeRequest and walks the
// handshake up to (not including) the first pong.
func (co *coordinator) challenge(nodeType wire.NodeType, version uint32, genesis wire.Digest) {
	co.t.Helper()
	co.expect(wire.KindChallengeRequest)
	co.send(&wire.ChallengeRequest{
		Version:      version,
		ListenerPort: 4133,
		NodeType:     nodeType,
		Address:      identity.Address{0xbe, 0xac},
		Nonce:        42,
	})
	resp := co.expect(wire.KindChallengeResponse).(*wire.ChallengeResponse)
	require.Equal(co.t, wire.GenesisDigest(), resp.Genesis)
	sig := identity.Signature{}
	co.send(&wire.ChallengeResponse{
		Genesis:   genesis,
		Signature: wire.DeferValue(sig, sig.Bytes()),
	})
}

func sessionErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("session did not terminate")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}
