package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
)

var log = logging.Logger("telemetry")

// RecordSource produces the current statistics snapshot.
type RecordSource interface {
	Snapshot() prover.Record
}

// report is the wire shape the record endpoint expects.
type report struct {
	Address     string  `json:"address"`
	Worker      string  `json:"worker"`
	TotalProofs uint64  `json:"total_proofs"`
	ProofRate   float64 `json:"proof_rate"`
	Timestamp   int64   `json:"timestamp"`
}

// Reporter periodically posts statistics records to an HTTP endpoint.
// Failures are logged and ignored: never retried, never fatal to the
// session.
type Reporter struct {
	url      string
	address  string
	worker   string
	interval time.Duration
	src      RecordSource
	client   *http.Client

	onReport func(ts int64)
}

func NewReporter(url, address, worker string, interval time.Duration, src RecordSource) *Reporter {
	return &Reporter{
		url:      url,
		address:  address,
		worker:   worker,
		interval: interval,
		src:      src,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// OnReport registers a callback invoked with the record timestamp after
// every successful post. Used to persist the last-report time.
func (r *Reporter) OnReport(fn func(ts int64)) { r.onReport = fn }

func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.post(ctx); err != nil {
				log.Errorw("record data failed", "err", err)
				continue
			}
			log.Infow("record data success")
		}
	}
}

func (r *Reporter) post(ctx context.Context) error {
	snap := r.src.Snapshot()
	body, err := json.Marshal(report{
		Address:     r.address,
		Worker:      r.worker,
		TotalProofs: snap.TotalProofs,
		ProofRate:   snap.ProofRate,
		Timestamp:   snap.Timestamp,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("record endpoint returned %s", resp.Status)
	}
	if r.onReport != nil {
		r.onReport(snap.Timestamp)
	}
	return nil
}
