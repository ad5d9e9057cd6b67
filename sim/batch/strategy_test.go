package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intersection-sim/intersection-sim/sim/msg"
)

func queued(lanes []int, arrivals []float64) []*IndexedProposal {
	out := make([]*IndexedProposal, len(lanes))
	for i := range lanes {
		out[i] = &IndexedProposal{Seq: i, Group: i, Proposal: msg.Proposal{ArrivalLaneID: lanes[i], ArrivalTime: arrivals[i]}}
	}
	return out
}

func seqs(batch []*IndexedProposal) []int {
	out := make([]int, len(batch))
	for i, ip := range batch {
		out[i] = ip.Seq
	}
	return out
}

func TestReorderingStrategy_InitialClock(t *testing.T) {
	for name := range ValidReorderingStrategies {
		s := NewReorderingStrategy(name, StrategyConfig{ProcessingInterval: 2, DeadlineMargin: 2})
		assert.Equal(t, 2.0, s.NextProcessingTime(), name)
		assert.Equal(t, 4.0, s.NextProposalDeadline(), name)
	}
}

func TestReorderingStrategy_DeadlineNeverDecreases(t *testing.T) {
	// GIVEN batches at irregular times, some skipping whole intervals
	s := NewFCFSBatchReordering(StrategyConfig{ProcessingInterval: 0.5, DeadlineMargin: 0.25})
	prevNext, prevDeadline := s.NextProcessingTime(), s.NextProposalDeadline()
	for _, now := range []float64{0.5, 1.0, 2.7, 2.9, 3.0, 10.1} {
		// WHEN a batch is taken
		s.GetBatch(now, nil, 0.1)

		// THEN both clocks move past now and never backwards
		assert.Greater(t, s.NextProcessingTime(), now)
		assert.GreaterOrEqual(t, s.NextProcessingTime(), prevNext)
		assert.GreaterOrEqual(t, s.NextProposalDeadline(), prevDeadline)
		prevNext, prevDeadline = s.NextProcessingTime(), s.NextProposalDeadline()
	}
	assert.InDelta(t, 10.5, s.NextProcessingTime(), 1e-9)
}

func TestFCFSBatchReordering_KeepsQueueOrder(t *testing.T) {
	s := NewFCFSBatchReordering(DefaultStrategyConfig())
	queue := queued([]int{2, 0, 2, 1}, []float64{3, 4, 5, 6})

	batch := s.GetBatch(1.0, queue, 0.1)

	assert.Equal(t, []int{0, 1, 2, 3}, seqs(batch))
}

func TestLaneGroupedReordering_GroupsByLaneInFirstArrivalOrder(t *testing.T) {
	s := NewLaneGroupedReordering(DefaultStrategyConfig())
	queue := queued([]int{2, 0, 2, 1, 0}, []float64{3, 4, 5, 6, 7})

	batch := s.GetBatch(1.0, queue, 0.1)

	// lane 2 first (earliest), then 0, then 1
	assert.Equal(t, []int{0, 2, 1, 4, 3}, seqs(batch))
}

func TestReorderingStrategy_LookaheadWindow(t *testing.T) {
	cfg := DefaultStrategyConfig()
	cfg.Lookahead = 3
	s := NewFCFSBatchReordering(cfg)
	queue := queued([]int{0, 0, 0}, []float64{2, 3.9, 4})

	batch := s.GetBatch(1.0, queue, 0.1)

	assert.Equal(t, []int{0, 1}, seqs(batch))
}

func TestNewReorderingStrategy_UnknownName_Panics(t *testing.T) {
	assert.False(t, IsValidReorderingStrategy("random"))
	assert.Panics(t, func() { NewReorderingStrategy("random", DefaultStrategyConfig()) })
}

func TestStrategyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StrategyConfig
		wantErr bool
	}{
		{"default", DefaultStrategyConfig(), false},
		{"zero interval", StrategyConfig{}, true},
		{"negative margin", StrategyConfig{ProcessingInterval: 1, DeadlineMargin: -1}, true},
		{"negative lookahead", StrategyConfig{ProcessingInterval: 1, Lookahead: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Panics(t, func() { NewFCFSBatchReordering(StrategyConfig{}) })
}
