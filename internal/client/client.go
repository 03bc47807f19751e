package client

import (
	"context"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"

	"github.com/conjugatebond/aleo-prover-lite/internal/config"
	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/metrics"
	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

var log = logging.Logger("client")

// Client is the peer session manager: one coordinator connection at a
// time, an outbound message queue shared by all producers, and a
// connected flag readable by the puzzle ticker.
type Client struct {
	cfg     config.Config
	acct    *identity.Account
	dialer  netx.Dialer
	met     *metrics.Metrics
	events  chan<- prover.Event
	genesis wire.Digest

	// outbound is the only multi-writer resource: the handshake logic,
	// the ticker, and the prover produce; the session router consumes.
	outbound chan wire.Message

	// connected flips true only after a keep-alive round trip, and
	// false when the session tears down. Router writes, ticker reads.
	connected atomic.Bool
}

func New(cfg config.Config, acct *identity.Account, dialer netx.Dialer, events chan<- prover.Event, met *metrics.Metrics) *Client {
	return &Client{
		cfg:      cfg,
		acct:     acct,
		dialer:   dialer,
		met:      met,
		events:   events,
		genesis:  wire.GenesisDigest(),
		outbound: make(chan wire.Message, cfg.QueueSize),
	}
}

// Outbound is the queue external producers (the prover) submit to.
func (c *Client) Outbound() chan<- wire.Message { return c.outbound }

// Connected reports whether the session has completed a keep-alive
// round trip.
func (c *Client) Connected() bool { return c.connected.Load() }

// Submit queues m for transmission, blocking on a full queue until
// there is room or ctx ends. Order of already-queued messages is
// never disturbed.
func (c *Client) Submit(ctx context.Context, m wire.Message) error {
	select {
	case c.outbound <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue is the router-side producer. The router is also the queue's
// only consumer, so it must not block on itself; a full queue drops
// the message with a log line.
func (c *Client) enqueue(m wire.Message) {
	select {
	case c.outbound <- m:
	default:
		log.Errorw("outbound queue full, dropping message", "message", wire.Name(m))
	}
}

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	if v {
		c.met.Connected.Set(1)
	} else {
		c.met.Connected.Set(0)
	}
}
