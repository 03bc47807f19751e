package prover

import (
	"context"
	"sync"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"

	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/metrics"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

var log = logging.Logger("prover")

type Config struct {
	Threads       int
	RewardAddress identity.Address
}

// assignment is the latest work handed down by the router. Its context
// ends when newer work replaces it.
type assignment struct {
	epoch     uint32
	challenge wire.EpochChallenge
	reward    identity.Address
	ctx       context.Context
	cancel    context.CancelFunc
}

// Prover consumes work-distribution events, runs the solver pool, and
// enqueues solutions onto the session's outbound queue.
type Prover struct {
	cfg      Config
	solver   Solver
	stats    *Stats
	met      *metrics.Metrics
	outbound chan<- wire.Message

	events <-chan Event
	target atomic.Uint64

	mu   sync.Mutex
	cur  *assignment
	wake chan struct{}
}

// New wires the prover between the session router's event channel and
// the session's outbound queue. The prover drains events as long as
// Run is alive; the router drops on a full channel rather than block
// the session.
func New(cfg Config, solver Solver, stats *Stats, met *metrics.Metrics, events <-chan Event, outbound chan<- wire.Message) *Prover {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &Prover{
		cfg:      cfg,
		solver:   solver,
		stats:    stats,
		met:      met,
		outbound: outbound,
		events:   events,
		wake:     make(chan struct{}),
	}
}

// Stats exposes the statistics source for the telemetry reporter.
func (p *Prover) Stats() *Stats { return p.stats }

// Run consumes events and drives the worker pool until ctx ends.
func (p *Prover) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	log.Infow("solver pool started", "threads", p.cfg.Threads)

	for {
		select {
		case <-ctx.Done():
			p.replaceWork(nil)
			wg.Wait()
			return
		case ev := <-p.events:
			switch ev := ev.(type) {
			case NewTarget:
				p.target.Store(ev.Target)
				log.Debugw("new proof target", "target", ev.Target)
			case NewWork:
				reward := ev.RewardAddress
				if reward.IsZero() {
					reward = p.cfg.RewardAddress
				}
				actx, cancel := context.WithCancel(ctx)
				p.replaceWork(&assignment{
					epoch:     ev.Epoch,
					challenge: ev.Challenge,
					reward:    reward,
					ctx:       actx,
					cancel:    cancel,
				})
				log.Infow("new work", "epoch", ev.Epoch)
			}
		}
	}
}

// replaceWork installs a (possibly nil) assignment, cancels the old
// one, and wakes every idle worker.
func (p *Prover) replaceWork(a *assignment) {
	p.mu.Lock()
	old := p.cur
	p.cur = a
	close(p.wake)
	p.wake = make(chan struct{})
	p.mu.Unlock()

	if old != nil {
		old.cancel()
	}
}

func (p *Prover) worker(ctx context.Context) {
	for {
		p.mu.Lock()
		a, wake := p.cur, p.wake
		p.mu.Unlock()

		if a == nil || a.ctx.Err() != nil {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				continue
			}
		}

		sol, err := p.solver.Solve(a.ctx, a.challenge, p.target.Load(), a.reward)
		if err != nil || sol == nil {
			continue
		}
		p.submit(ctx, a, sol)
	}
}

func (p *Prover) submit(ctx context.Context, a *assignment, sol *Solution) {
	p.stats.OnProof()
	p.met.ProofsFound.Inc()

	// Gate on the most recent target: a solution found against a stale
	// target may no longer qualify.
	if target := p.target.Load(); sol.Score < target {
		log.Debugw("discarding stale solution", "epoch", a.epoch, "score", sol.Score, "target", target)
		return
	}

	msg := &wire.UnconfirmedSolution{
		Epoch:   a.epoch,
		Address: a.reward,
		Nonce:   sol.Nonce,
		Proof:   sol.Proof,
	}
	select {
	case p.outbound <- msg:
		p.met.SolutionsAccepted.Inc()
		log.Infow("solution queued", "epoch", a.epoch, "nonce", sol.Nonce)
	case <-ctx.Done():
	}
}
