package statsbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProofCountPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")

	s, err := Open(path)
	require.NoError(t, err)

	total, err := s.AddProofs(3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), total)

	total, err = s.AddProofs(2)
	require.NoError(t, err)
	require.Equal(t, uint64(5), total)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	total, err = s.TotalProofs()
	require.NoError(t, err)
	require.Equal(t, uint64(5), total)
}

func TestLastReportTimestamp(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer s.Close()

	ts, err := s.LastReport()
	require.NoError(t, err)
	require.Zero(t, ts)

	require.NoError(t, s.SetLastReport(1700000000))
	ts, err = s.LastReport()
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), ts)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
