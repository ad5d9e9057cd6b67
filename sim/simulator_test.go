package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersection-sim/intersection-sim/sim/msg"
	"github.com/intersection-sim/intersection-sim/sim/trace"
	"github.com/intersection-sim/intersection-sim/sim/workload"
)

func runScenario(t *testing.T, seed int64, mutate func(*EngineConfig, *workload.Config), tr *trace.SimulationTrace) *Simulator {
	t.Helper()
	cfg := DefaultEngineConfig()
	wl := workload.DefaultConfig()
	wl.Rate = 0.2
	if mutate != nil {
		mutate(&cfg, &wl)
	}
	s := NewSimulator(cfg, wl, 60, NewSimulationKey(seed), tr)
	s.Run()
	return s
}

func TestSimulator_Run_ConfirmsAndCompletesVehicles(t *testing.T) {
	s := runScenario(t, 42, nil, nil)
	m := s.Metrics

	assert.Positive(t, m.Spawned)
	assert.Positive(t, m.Confirms)
	assert.Positive(t, m.Completed)
	assert.GreaterOrEqual(t, m.Requests, m.Spawned)
	assert.LessOrEqual(t, m.Completed, m.Confirms)
	assert.LessOrEqual(t, m.Away, m.Completed)
	assert.Zero(t, m.Cancels)
	assert.InDelta(t, 60.0, m.SimEndedTime, 1e-6)
	assert.GreaterOrEqual(t, m.MaxDelay*float64(m.Confirms), m.TotalDelay-1e-9)
}

func TestSimulator_Run_IsDeterministic(t *testing.T) {
	// GIVEN two runs with the same seed and config
	a := runScenario(t, 7, nil, nil)
	b := runScenario(t, 7, nil, nil)

	// THEN every metric matches
	if diff := cmp.Diff(a.Metrics, b.Metrics); diff != "" {
		t.Errorf("metrics differ between identical runs (-first +second):\n%s", diff)
	}
}

func TestSimulator_Run_DifferentSeedsDiffer(t *testing.T) {
	a := runScenario(t, 1, nil, nil)
	b := runScenario(t, 2, nil, nil)
	assert.NotEqual(t, a.Agent(1).SpawnTime, b.Agent(1).SpawnTime)
}

func TestSimulator_Run_CancelledVehiclesRetry(t *testing.T) {
	// GIVEN every vehicle withdraws its first confirmation
	s := runScenario(t, 42, func(_ *EngineConfig, wl *workload.Config) { wl.CancelProbability = 1 }, nil)
	m := s.Metrics

	// THEN cancels happen and the retried vehicles still get through
	assert.Positive(t, m.Cancels)
	assert.Greater(t, m.Confirms, m.Cancels)
	assert.Positive(t, m.Completed)
}

func TestSimulator_Run_FullZoneVehiclesGiveUp(t *testing.T) {
	// GIVEN exit zones too short for any vehicle and no retries
	s := runScenario(t, 42, func(cfg *EngineConfig, wl *workload.Config) {
		cfg.ACZ.Capacity = 1
		wl.MaxRetries = 0
	}, nil)
	m := s.Metrics

	// THEN nothing is confirmed and rejected vehicles give up
	assert.Zero(t, m.Confirms)
	assert.Zero(t, m.Completed)
	assert.Positive(t, m.GaveUp)
	assert.Equal(t, m.GaveUp, m.Rejects[msg.ReasonNoClearPath])
	for vin := 1; vin <= m.Spawned; vin++ {
		if a := s.Agent(vin); a.State != AgentGaveUp {
			assert.Equal(t, AgentRequesting, a.State, "vin %d", vin)
		}
	}
}

func TestSimulator_Run_LaneGroupedStrategy(t *testing.T) {
	s := runScenario(t, 42, func(cfg *EngineConfig, _ *workload.Config) { cfg.Batch.Strategy = "lane-grouped" }, nil)
	assert.Positive(t, s.Metrics.Confirms)
	assert.Equal(t, "lane-grouped", s.Manager().Config().Strategy)
}

func TestSimulator_Run_TraceRecordsDecisionsAndZones(t *testing.T) {
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelZones})
	s := runScenario(t, 42, nil, tr)

	require.NotEmpty(t, tr.Decisions)
	confirmed := 0
	for _, d := range tr.Decisions {
		if d.Confirmed {
			confirmed++
			assert.Empty(t, d.Reason)
		} else {
			assert.NotEmpty(t, d.Reason)
		}
	}
	assert.Equal(t, s.Metrics.Confirms, confirmed)
	assert.Equal(t, s.Metrics.TotalRejects(), len(tr.Decisions)-confirmed)

	// one sample per exit lane per simulated second, t = 0..60
	require.Len(t, tr.Zones, 61*4)
	for _, z := range tr.Zones {
		assert.LessOrEqual(t, z.CurrentSize, z.Capacity, "lane %d at t=%.2f", z.LaneID, z.Time)
	}
}

func TestSimulator_Run_DecisionTraceSkipsZones(t *testing.T) {
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	runScenario(t, 42, nil, tr)
	assert.NotEmpty(t, tr.Decisions)
	assert.Empty(t, tr.Zones)
}

func TestNewSimulator_InvalidConfigPanics(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TimeStep = 0
	assert.Panics(t, func() { NewSimulator(cfg, workload.DefaultConfig(), 10, 1, nil) })

	wl := workload.DefaultConfig()
	wl.Rate = -1
	assert.Panics(t, func() { NewSimulator(DefaultEngineConfig(), wl, 10, 1, nil) })
}

func TestSimulator_Run_UngatedExits(t *testing.T) {
	s := runScenario(t, 42, func(cfg *EngineConfig, _ *workload.Config) { cfg.ACZ.Capacity = 0 }, nil)
	assert.Positive(t, s.Metrics.Completed)
	assert.Positive(t, s.Metrics.Away)
	assert.Empty(t, s.Manager().Zones().LaneIDs())
}
