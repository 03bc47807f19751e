package client

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Run is the connection supervisor. It picks a beacon uniformly at
// random, dials with a bounded timeout, drives one session until it
// fails, and retries after a fixed cooldown. It returns only when ctx
// ends; no session failure escalates past this loop.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		addr := c.cfg.Beacons[rand.Intn(len(c.cfg.Beacons))]
		log.Infow("connecting to coordinator", "addr", addr)
		c.met.ConnectAttempts.Inc()

		dctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		conn, err := c.dialer.Dial(dctx, addr)
		cancel()
		if err != nil {
			c.met.ConnectFailures.Inc()
			log.Errorw("failed to connect to coordinator", "addr", addr, "err", err)
			if err := c.cooldown(ctx); err != nil {
				return err
			}
			continue
		}

		log.Infow("connected", "addr", addr)
		err = c.runSession(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The session already served its failure cooldown before
		// tearing down; retry immediately against a fresh random pick.
		c.met.SessionFailures.WithLabelValues(reasonLabel(err)).Inc()
		log.Infow("session ended", "addr", addr, "reason", err)
	}
}

func (c *Client) cooldown(ctx context.Context) error {
	select {
	case <-time.After(c.cfg.RetryCooldown):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, errVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, errWrongPeerRole):
		return "wrong_peer_role"
	case errors.Is(err, errGenesisMismatch):
		return "genesis_mismatch"
	case errors.Is(err, errBadHeader):
		return "bad_payload"
	case errors.Is(err, errPeerDisconnected):
		return "peer_disconnect"
	case errors.Is(err, errPeerClosed):
		return "peer_closed"
	default:
		return "io"
	}
}
