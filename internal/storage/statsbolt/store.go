package statsbolt

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bStats = "stats"

	kTotalProofs  = "total_proofs"
	kLastReportTS = "last_report_ts"

	defaultTO = 2 * time.Second
)

// Store persists prover statistics so cumulative totals reported to
// the telemetry endpoint survive restarts.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a BoltDB database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTO})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bStats))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AddProofs adds n to the cumulative proof counter and returns the new
// total.
func (s *Store) AddProofs(n uint64) (uint64, error) {
	var total uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bStats))
		total = decodeU64(b.Get([]byte(kTotalProofs))) + n
		return b.Put([]byte(kTotalProofs), encodeU64(total))
	})
	return total, err
}

func (s *Store) TotalProofs() (uint64, error) {
	var total uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		total = decodeU64(tx.Bucket([]byte(bStats)).Get([]byte(kTotalProofs)))
		return nil
	})
	return total, err
}

func (s *Store) SetLastReport(ts int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bStats)).Put([]byte(kLastReportTS), encodeU64(uint64(ts)))
	})
}

func (s *Store) LastReport() (int64, error) {
	var ts int64
	err := s.db.View(func(tx *bolt.Tx) error {
		ts = int64(decodeU64(tx.Bucket([]byte(bStats)).Get([]byte(kLastReportTS))))
		return nil
	})
	return ts, err
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
