package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/conjugatebond/aleo-prover-lite/internal/config"
	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

// Terminal session states. Each fails the session only; the supervisor
// retries against a possibly different peer.
var (
	errVersionMismatch  = errors.New("peer is running an older protocol version")
	errWrongPeerRole    = errors.New("peer is not a beacon or validator")
	errGenesisMismatch  = errors.New("peer has a different genesis block")
	errBadHeader        = errors.New("malformed block header")
	errPeerDisconnected = errors.New("peer requested disconnect")
	errPeerClosed       = errors.New("peer closed the connection")
)

type readResult struct {
	msg wire.Message
	err error
}

// runSession drives one live connection: it opens the handshake, then
// multiplexes the outbound queue and the inbound stream until a fatal
// condition. Every failure path serves the cooldown before the
// connection is torn down, to avoid hot-looping against a misbehaving
// peer.
func (c *Client) runSession(ctx context.Context, conn netx.Conn) error {
	defer conn.Close()
	defer c.setConnected(false)

	done := make(chan struct{})
	defer close(done)

	codec := wire.NewCodec(conn)

	nonce, err := randNonce()
	if err != nil {
		return fmt.Errorf("generate handshake nonce: %w", err)
	}
	challenge := &wire.ChallengeRequest{
		Version:      wire.ProtocolVersion,
		ListenerPort: config.ListenerPort,
		NodeType:     wire.NodeProver,
		Address:      c.acct.Address(),
		Nonce:        nonce,
	}
	if err := c.write(codec, challenge); err != nil {
		log.Errorw("error sending challenge request", "err", err)
	} else {
		log.Debugw("sent challenge request")
	}

	inbound := make(chan readResult)
	go readLoop(codec, inbound, done)

	for {
		// Whichever source is ready first is serviced; select keeps
		// this fair between the queue and the stream.
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m := <-c.outbound:
			log.Debugw("sending to coordinator", "message", wire.Name(m))
			if err := c.write(codec, m); err != nil {
				// A single failed send is not fatal; a dead transport
				// surfaces through the read side.
				log.Errorw("error sending message", "message", wire.Name(m), "err", err)
			}

		case r := <-inbound:
			if r.err != nil {
				var de *wire.DecodeError
				if errors.As(r.err, &de) {
					log.Warnw("failed to read message", "err", r.err)
					continue
				}
				log.Errorw("disconnected from coordinator", "err", r.err)
				c.setConnected(false)
				_ = c.cooldown(ctx)
				return errPeerClosed
			}
			if err := c.dispatch(codec, r.msg); err != nil {
				_ = c.cooldown(ctx)
				return err
			}
		}
	}
}

// readLoop feeds inbound frames to the router. Payload decode errors
// leave the stream aligned, so reading continues; anything else means
// the stream is done.
func readLoop(codec *wire.Codec, inbound chan<- readResult, done <-chan struct{}) {
	for {
		m, err := codec.ReadMessage()
		select {
		case inbound <- readResult{msg: m, err: err}:
		case <-done:
			return
		}
		if err != nil {
			var de *wire.DecodeError
			if errors.As(err, &de) {
				continue
			}
			return
		}
	}
}

// dispatch handles one inbound message. A non-nil return is fatal to
// the session.
func (c *Client) dispatch(codec *wire.Codec, msg wire.Message) error {
	c.met.MessagesReceived.Inc()
	log.Debugw("received from coordinator", "message", wire.Name(msg))

	switch m := msg.(type) {
	case *wire.ChallengeRequest:
		if m.Version < wire.ProtocolVersion {
			log.Errorw("peer is running an older protocol version", "version", m.Version)
			return errVersionMismatch
		}
		if m.NodeType != wire.NodeBeacon && m.NodeType != wire.NodeValidator {
			log.Errorw("peer is not a beacon or validator", "node_type", m.NodeType)
			return errWrongPeerRole
		}
		sig := c.acct.SignNonce(m.Nonce)
		resp := &wire.ChallengeResponse{
			Genesis:   c.genesis,
			Signature: wire.DeferValue(sig, sig.Bytes()),
		}
		if err := c.write(codec, resp); err != nil {
			log.Errorw("error sending challenge response", "err", err)
		} else {
			log.Debugw("sent challenge response")
		}

	case *wire.ChallengeResponse:
		if m.Genesis != c.genesis {
			log.Errorw("peer has a different genesis block", "peer_genesis", m.Genesis, "genesis", c.genesis)
			return errGenesisMismatch
		}
		c.sendPing(codec)

	case *wire.Ping:
		// Keep-alive is bidirectional and self-perpetuating: answer
		// with a pong, then probe again ourselves.
		if err := c.write(codec, &wire.Pong{}); err != nil {
			log.Errorw("error sending pong", "err", err)
		} else {
			log.Debugw("sent pong")
		}
		c.sendPing(codec)

	case *wire.Pong:
		// First pong completes the round trip; request work eagerly
		// rather than waiting for the ticker.
		if c.connected.CompareAndSwap(false, true) {
			c.met.Connected.Set(1)
			c.enqueue(&wire.PuzzleRequest{})
		}

	case *wire.PuzzleResponse:
		header, err := m.Header.Decode()
		if err != nil {
			log.Errorw("error deserializing block header", "err", err)
			return fmt.Errorf("%w: %v", errBadHeader, err)
		}
		c.met.PuzzlesReceived.Inc()
		// Target first: the prover gates solutions on the most recent
		// target before it sees the work itself.
		c.notify(prover.NewTarget{Target: header.ProofTarget})
		c.notify(prover.NewWork{
			Epoch:         m.Challenge.Epoch,
			Challenge:     m.Challenge,
			RewardAddress: c.cfg.RewardAddress,
		})

	case *wire.Disconnect:
		log.Errorw("coordinator disconnected", "reason", m.Reason)
		return errPeerDisconnected

	case *wire.Raw:
		log.Debugw("unhandled message", "message", wire.Name(m))

	default:
		// Recognized kind the prover does not act on.
		log.Debugw("unhandled message", "message", wire.Name(msg))
	}
	return nil
}

func (c *Client) sendPing(codec *wire.Codec) {
	ping := &wire.Ping{Version: wire.ProtocolVersion, NodeType: wire.NodeProver}
	if err := c.write(codec, ping); err != nil {
		log.Errorw("error sending ping", "err", err)
	} else {
		log.Debugw("sent ping")
	}
}

func (c *Client) write(codec *wire.Codec, m wire.Message) error {
	if err := codec.WriteMessage(m); err != nil {
		return err
	}
	c.met.MessagesSent.Inc()
	return nil
}

// notify hands an event to the prover without blocking the router; a
// full sink drops the notification for this response only.
func (c *Client) notify(ev prover.Event) {
	select {
	case c.events <- ev:
	default:
		log.Warnw("prover event channel full, dropping notification")
	}
}

func randNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
