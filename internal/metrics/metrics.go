package metrics

import (
	"context"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logging.Logger("metrics")

type Metrics struct {
	reg *prometheus.Registry

	ConnectAttempts   prometheus.Counter
	ConnectFailures   prometheus.Counter
	SessionFailures   *prometheus.CounterVec
	Connected         prometheus.Gauge
	MessagesSent      prometheus.Counter
	MessagesReceived  prometheus.Counter
	PuzzlesReceived   prometheus.Counter
	ProofsFound       prometheus.Counter
	SolutionsAccepted prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ConnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_connect_attempts_total",
			Help: "Coordinator connection attempts.",
		}),
		ConnectFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_connect_failures_total",
			Help: "Coordinator connection attempts that failed or timed out.",
		}),
		SessionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prover_session_failures_total",
			Help: "Sessions terminated, by reason.",
		}, []string{"reason"}),
		Connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "prover_connected",
			Help: "1 while the session keep-alive round trip has completed.",
		}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_messages_sent_total",
			Help: "Messages written to the coordinator.",
		}),
		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_messages_received_total",
			Help: "Messages read from the coordinator.",
		}),
		PuzzlesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_puzzles_received_total",
			Help: "Puzzle responses successfully decoded.",
		}),
		ProofsFound: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_proofs_found_total",
			Help: "Solutions found by the local solver pool.",
		}),
		SolutionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "prover_solutions_submitted_total",
			Help: "Solutions enqueued for submission.",
		}),
	}
}

// Serve exposes the registry at /metrics until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Infow("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorw("metrics server stopped", "err", err)
	}
}
