package client

import (
	"context"
	"time"

	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

// RunTicker requests fresh work once per anchor period. It lives for
// the whole process, not per connection: a tick while disconnected is
// a no-op, neither queued nor deferred.
func (c *Client) RunTicker(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PuzzleInterval)
	defer ticker.Stop()
	log.Infow("puzzle request ticker started", "interval", c.cfg.PuzzleInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}
			if err := c.Submit(ctx, &wire.PuzzleRequest{}); err != nil {
				log.Errorw("failed to queue puzzle request", "err", err)
			}
		}
	}
}
