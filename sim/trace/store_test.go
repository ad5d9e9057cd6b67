package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	// GIVEN an in-memory store and a trace with a confirm, a reject and a zone sample
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	st := NewSimulationTrace(TraceConfig{Level: TraceLevelZones})
	st.RecordDecision(DecisionRecord{Time: 2, VIN: 1, RequestID: 10, Confirmed: true, ArrivalLaneID: 0, DepartureLaneID: 4, ArrivalTime: 5, Delay: 0.5})
	st.RecordDecision(DecisionRecord{Time: 2, VIN: 2, RequestID: 20, Reason: "no-clear-path", ArrivalLaneID: 1, DepartureLaneID: 5})
	st.RecordZone(ZoneRecord{Time: 2, LaneID: 4, CurrentSize: 5.3, Capacity: 40})

	// WHEN it is saved and read back
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, st))
	got, err := store.Decisions(ctx, st.RunID)
	require.NoError(t, err)

	// THEN the decisions match in order
	if diff := cmp.Diff(st.Decisions, got); diff != "" {
		t.Errorf("decisions mismatch (-want +got):\n%s", diff)
	}
	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.RunID, runs[0])

	var samples int
	require.NoError(t, store.QueryRowContext(ctx, `SELECT COUNT(*) FROM zone_samples WHERE run_id = ?`, st.RunID.String()).Scan(&samples))
	assert.Equal(t, 1, samples)
}

func TestStore_SameRunTwice_Fails(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, st))
	assert.Error(t, store.Save(ctx, st))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
