package prover

import (
	"sync"
	"time"

	"github.com/conjugatebond/aleo-prover-lite/internal/storage/statsbolt"
)

// rateWindow bounds the sliding window used for the proof rate.
const rateWindow = time.Minute

// Record is one telemetry snapshot.
type Record struct {
	TotalProofs uint64  `json:"total_proofs"`
	ProofRate   float64 `json:"proof_rate"`
	Timestamp   int64   `json:"timestamp"`
}

// Stats tracks the cumulative proof count and a sliding-window rate.
// The cumulative count is persisted so restarts do not reset it.
type Stats struct {
	store *statsbolt.Store

	mu     sync.Mutex
	total  uint64
	recent []time.Time
}

// NewStats seeds the in-memory total from the store. A nil store keeps
// everything in memory.
func NewStats(store *statsbolt.Store) (*Stats, error) {
	s := &Stats{store: store}
	if store != nil {
		total, err := store.TotalProofs()
		if err != nil {
			return nil, err
		}
		s.total = total
	}
	return s, nil
}

func (s *Stats) OnProof() {
	now := time.Now()

	s.mu.Lock()
	s.total++
	s.recent = append(s.recent, now)
	s.prune(now)
	s.mu.Unlock()

	if s.store != nil {
		if _, err := s.store.AddProofs(1); err != nil {
			log.Errorw("persist proof count", "err", err)
		}
	}
}

func (s *Stats) Snapshot() Record {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)
	return Record{
		TotalProofs: s.total,
		ProofRate:   float64(len(s.recent)) / rateWindow.Seconds(),
		Timestamp:   now.Unix(),
	}
}

// prune drops window entries older than rateWindow. Caller holds mu.
func (s *Stats) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(s.recent) && s.recent[i].Before(cutoff) {
		i++
	}
	s.recent = s.recent[i:]
}
