package reservation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersection-sim/intersection-sim/sim/grid"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/vehicle"
)

// Lane ids of the default single-lane four-way intersection.
const (
	northIn  = 0
	eastIn   = 1
	northOut = 4
	eastOut  = 5
)

func unitConfig() Config {
	return Config{
		GridTimeStep:      1.0,
		Granularity:       1.0,
		MaxTraversalSteps: 1000,
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	return NewManager(cfg, layout.NewFourWay(layout.DefaultFourWayConfig()))
}

func northbound(vin int, arrival float64) Query {
	return Query{
		VIN:             vin,
		ArrivalTime:     arrival,
		ArrivalVelocity: 10,
		ArrivalLaneID:   northIn,
		DepartureLaneID: northOut,
		Spec:            vehicle.DefaultSpec(),
		MaxTurnVelocity: 10,
	}
}

func TestQuery_ConflictingCell_Fails(t *testing.T) {
	// GIVEN 1s steps, 1m tiles and agent 1 holding (10,5), (10,6), (11,5)
	m := newTestManager(t, unitConfig())
	held := &Plan{VIN: 1, WorkingList: []grid.TimeTile{{Time: 10, TileID: 5}, {Time: 10, TileID: 6}, {Time: 11, TileID: 5}}}
	require.Equal(t, 1, m.Accept(held))

	// WHEN agent 2 queries a northbound traversal entering at t=10,
	// whose footprint covers tiles 3..5 of the bottom row
	plan, ok := m.Query(northbound(2, 10.0))

	// THEN the query fails
	assert.False(t, ok)
	assert.Nil(t, plan)

	// AND the same traversal later succeeds
	plan, ok = m.Query(northbound(2, 20.0))
	require.True(t, ok)
	assert.Contains(t, plan.WorkingList, grid.TimeTile{Time: 20, TileID: 5})
}

func TestQuery_FailureLeavesGridUnchanged(t *testing.T) {
	m := newTestManager(t, unitConfig())
	m.Accept(&Plan{VIN: 1, WorkingList: []grid.TimeTile{{Time: 10, TileID: 4}}})
	before := m.Grid().Snapshot()

	_, ok := m.Query(northbound(2, 10.0))

	require.False(t, ok)
	if diff := cmp.Diff(before, m.Grid().Snapshot()); diff != "" {
		t.Errorf("failed query mutated the grid (-before +after):\n%s", diff)
	}
}

func TestQuery_SuccessDoesNotReserve(t *testing.T) {
	m := newTestManager(t, unitConfig())
	plan, ok := m.Query(northbound(1, 0))
	require.True(t, ok)
	assert.NotEmpty(t, plan.WorkingList)
	assert.Equal(t, 0, m.Grid().Len())
	assert.False(t, m.IsReserved(1))
}

func TestQuery_CoastingExitTimeAndProfile(t *testing.T) {
	// GIVEN 0.1s steps and no time buffers
	cfg := unitConfig()
	cfg.GridTimeStep = 0.1
	cfg.StaticBufferSize = 0.25
	m := newTestManager(t, cfg)

	plan, ok := m.Query(northbound(1, 3.0))
	require.True(t, ok)

	// THEN the rear (front - 4.8 - 0.25) clears y=3.3 once the front has
	// travelled more than 11.55m: 12 steps at 10 m/s
	assert.InDelta(t, 4.2, plan.ExitTime, 1e-9)
	assert.Equal(t, 10.0, plan.ExitVelocity)
	if diff := cmp.Diff([]AccelSegment{{Acceleration: 0, Duration: plan.ExitTime - 3.0}}, plan.AccelerationProfile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_AcceleratingReachesCeiling(t *testing.T) {
	cfg := unitConfig()
	cfg.GridTimeStep = 0.05
	m := newTestManager(t, cfg)
	q := northbound(1, 0)
	q.ArrivalVelocity = 8
	q.MaxTurnVelocity = 9
	q.Accelerating = true

	plan, ok := m.Query(q)
	require.True(t, ok)

	assert.InDelta(t, 9.0, plan.ExitVelocity, 1e-9)
	require.Len(t, plan.AccelerationProfile, 2)
	assert.InDelta(t, 1.0/3.0, plan.AccelerationProfile[0].Duration, 1e-9)
	total := plan.AccelerationProfile[0].Duration + plan.AccelerationProfile[1].Duration
	assert.InDelta(t, plan.ExitTime, total, 1e-9)
}

func TestQuery_TimeBufferWidensWindow(t *testing.T) {
	// GIVEN internal buffer of 2 steps and the edge buffer disabled
	cfg := unitConfig()
	cfg.InternalTileTimeBufferSize = 2.0
	cfg.EdgeTileTimeBufferSize = 5.0
	m := newTestManager(t, cfg)
	internal, edge := m.BufferSteps()
	require.Equal(t, int64(2), internal)
	require.Equal(t, int64(2), edge, "disabled edge buffer falls back to the internal one")

	// AND a cell two steps before the arrival on a tile the vehicle enters
	m.Accept(&Plan{VIN: 9, WorkingList: []grid.TimeTile{{Time: 8, TileID: 4}}})

	// THEN the query at t=10 sees it through the buffer
	_, ok := m.Query(northbound(1, 10))
	assert.False(t, ok)
	// AND at t=11 it is out of reach
	_, ok = m.Query(northbound(1, 11))
	assert.True(t, ok)
}

func TestQuery_EdgeBufferAppliesToEdgeTiles(t *testing.T) {
	cfg := unitConfig()
	cfg.InternalTileTimeBufferSize = 0
	cfg.EdgeTileTimeBufferSize = 3
	cfg.IsEdgeTileTimeBufferEnabled = true
	m := newTestManager(t, cfg)

	require.True(t, m.TiledArea().TileByID(4).Edge)
	m.Accept(&Plan{VIN: 9, WorkingList: []grid.TimeTile{{Time: 7, TileID: 4}}})

	_, ok := m.Query(northbound(1, 10))
	assert.False(t, ok, "edge tile window [7, 13] includes the held cell")
}

func TestQuery_Unroutable_Fails(t *testing.T) {
	m := newTestManager(t, unitConfig())
	q := northbound(1, 0)
	q.DepartureLaneID = 6 // southbound out: U-turn
	_, ok := m.Query(q)
	assert.False(t, ok)
}

func TestQuery_StoppedAndCoasting_Fails(t *testing.T) {
	m := newTestManager(t, unitConfig())
	q := northbound(1, 0)
	q.ArrivalVelocity = 0
	_, ok := m.Query(q)
	assert.False(t, ok)
}

func TestQuery_TooManySteps_Fails(t *testing.T) {
	cfg := unitConfig()
	cfg.GridTimeStep = 0.01
	cfg.MaxTraversalSteps = 10
	m := newTestManager(t, cfg)
	_, ok := m.Query(northbound(1, 0))
	assert.False(t, ok)
}

func TestQuery_CrossingTrafficConflicts(t *testing.T) {
	// GIVEN a northbound vehicle accepted through the centre
	cfg := unitConfig()
	cfg.GridTimeStep = 0.1
	m := newTestManager(t, cfg)
	plan, ok := m.Query(northbound(1, 5))
	require.True(t, ok)
	m.Accept(plan)

	// WHEN an eastbound vehicle arrives at the same moment
	q := northbound(2, 5)
	q.ArrivalLaneID = eastIn
	q.DepartureLaneID = eastOut
	_, ok = m.Query(q)

	// THEN their paths cross and it is refused
	assert.False(t, ok)
}

func TestAccept_ConflictOrDuplicate_Panics(t *testing.T) {
	m := newTestManager(t, unitConfig())
	m.Accept(&Plan{VIN: 1, WorkingList: []grid.TimeTile{{Time: 1, TileID: 1}}})
	assert.Panics(t, func() { m.Accept(&Plan{VIN: 2, WorkingList: []grid.TimeTile{{Time: 1, TileID: 1}}}) })
	assert.Panics(t, func() { m.Accept(&Plan{VIN: 1, WorkingList: []grid.TimeTile{{Time: 2, TileID: 1}}}) })
}

func TestCancel_ReleasesAndRejectsUnknown(t *testing.T) {
	m := newTestManager(t, unitConfig())
	plan, ok := m.Query(northbound(1, 0))
	require.True(t, ok)
	id := m.Accept(plan)
	require.True(t, m.IsReserved(id))

	m.Cancel(id)

	assert.False(t, m.IsReserved(id))
	assert.Equal(t, 0, m.Grid().Len())
	assert.Panics(t, func() { m.Cancel(id) })
}

func TestCleanUp_DoesNotChangeQueryResults(t *testing.T) {
	cfg := unitConfig()
	cfg.GridTimeStep = 0.1
	cfg.InternalTileTimeBufferSize = 0.2
	m := newTestManager(t, cfg)
	for vin, at := range map[int]float64{1: 0, 2: 3, 3: 6} {
		plan, ok := m.Query(northbound(vin, at))
		require.True(t, ok)
		m.Accept(plan)
	}
	_, before := m.Query(northbound(4, 6.05))

	removed := m.CleanUp(5.0)

	assert.Positive(t, removed)
	_, after := m.Query(northbound(4, 6.05))
	assert.Equal(t, before, after)
}

func TestNewManager_InvalidConfig_Panics(t *testing.T) {
	cfg := unitConfig()
	cfg.GridTimeStep = 0
	assert.Panics(t, func() { newTestManager(t, cfg) })
}

func TestNewManager_ExitBoundPaddedByFixedMargin(t *testing.T) {
	for _, g := range []float64{0.5, 1.0, 2.0} {
		cfg := unitConfig()
		cfg.Granularity = g
		m := newTestManager(t, cfg)
		b := m.TiledArea().Bound()
		assert.InDelta(t, b.Min.X()-0.1, m.exitBound.Min.X(), 1e-12, "granularity %v", g)
		assert.InDelta(t, b.Max.Y()+0.1, m.exitBound.Max.Y(), 1e-12, "granularity %v", g)
	}
}
