package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
)

type staticSource struct {
	rec prover.Record
}

func (s staticSource) Snapshot() prover.Record { return s.rec }

func TestReporterPostsRecords(t *testing.T) {
	got := make(chan report, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var rep report
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
		got <- rep
	}))
	defer srv.Close()

	src := staticSource{rec: prover.Record{TotalProofs: 12, ProofRate: 0.5, Timestamp: 1700000000}}
	rep := NewReporter(srv.URL, "aabbcc", "rig-1", 10*time.Millisecond, src)
	var lastTS atomic.Int64
	rep.OnReport(lastTS.Store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rep.Run(ctx)

	select {
	case r := <-got:
		require.Equal(t, "aabbcc", r.Address)
		require.Equal(t, "rig-1", r.Worker)
		require.Equal(t, uint64(12), r.TotalProofs)
		require.Equal(t, 0.5, r.ProofRate)
	case <-time.After(5 * time.Second):
		t.Fatal("reporter never posted a record")
	}
	require.Eventually(t, func() bool { return lastTS.Load() == 1700000000 },
		time.Second, 10*time.Millisecond, "success hook never fired")
}

func TestReporterSurvivesEndpointErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rep := NewReporter(srv.URL, "aabbcc", "rig-1", 10*time.Millisecond, staticSource{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rep.Run(ctx)

	require.GreaterOrEqual(t, calls.Load(), int64(2), "failures must not stop the reporter")
}
