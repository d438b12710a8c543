package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airside-data/difficulty.report/internal/flightops"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMigratesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	s.Close()

	// Reopening against an already-migrated file must not fail.
	s, err = Open(path)
	require.NoError(t, err)
	s.Close()
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)

	started := time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)
	run := Run{
		ID:                NewRunID(),
		StartedAt:         started,
		FinishedAt:        started.Add(2 * time.Minute),
		FlightCount:       2,
		DifficultCount:    1,
		ModelKind:         ModelKindConstant,
		DelayThresholdMin: 45,
	}
	run.ConstantProb.Valid = true
	run.ConstantProb.Float64 = 0.5

	flights := []flightops.Flight{
		{
			Key:       flightops.FlightKey{CompanyID: "UA", FlightNumber: "100", DepAirport: "ORD", ArrAirport: "DEN"},
			SchedDep:  started,
			FDS:       72.5,
			FDSBucket: "High",
			Difficult: true,
		},
		{
			Key:       flightops.FlightKey{CompanyID: "UA", FlightNumber: "200", DepAirport: "ORD", ArrAirport: "SFO"},
			SchedDep:  started.Add(time.Hour),
			FDS:       12.0,
			FDSBucket: "Low",
		},
	}
	require.NoError(t, s.SaveRun(run, flights))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 2, got.FlightCount)
	assert.Equal(t, 1, got.DifficultCount)
	assert.Equal(t, ModelKindConstant, got.ModelKind)
	require.True(t, got.ConstantProb.Valid)
	assert.Equal(t, 0.5, got.ConstantProb.Float64)

	counts, err := s.BucketCounts(run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"High": 1, "Low": 1}, counts)
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)

	run := Run{
		ID:                NewRunID(),
		StartedAt:         time.Now().UTC(),
		ModelKind:         ModelKindFitted,
		DelayThresholdMin: 45,
	}
	require.NoError(t, s.SaveRun(run, nil))
	assert.Error(t, s.SaveRun(run, nil))
}
