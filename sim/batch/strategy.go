package batch

import (
	"fmt"

	"github.com/samber/lo"
)

// ReorderingStrategy decides when batches are resolved and in which order
// their proposals are tried. Implementations are stateful: GetBatch advances
// NextProcessingTime and NextProposalDeadline, both monotonically.
type ReorderingStrategy interface {
	// GetBatch returns the queued proposals to try now, in processing order.
	// queue is ordered by (arrival time, sequence id) and MUST NOT be modified.
	GetBatch(currentTime float64, queue []*IndexedProposal, timeStep float64) []*IndexedProposal
	NextProcessingTime() float64
	// NextProposalDeadline is the earliest arrival time a proposal may have
	// and still wait for the next batch.
	NextProposalDeadline() float64
}

// StrategyConfig parametrises the built-in strategies.
type StrategyConfig struct {
	ProcessingInterval float64 `yaml:"processing_interval"` // seconds between batches
	DeadlineMargin     float64 `yaml:"deadline_margin"`     // lead time a confirmation needs before arrival
	Lookahead          float64 `yaml:"lookahead"`           // only batch arrivals before now+lookahead; 0 = all
}

// Validate checks value ranges.
func (c StrategyConfig) Validate() error {
	switch {
	case c.ProcessingInterval <= 0:
		return fmt.Errorf("processing_interval must be > 0, got %v", c.ProcessingInterval)
	case c.DeadlineMargin < 0:
		return fmt.Errorf("deadline_margin must be >= 0, got %v", c.DeadlineMargin)
	case c.Lookahead < 0:
		return fmt.Errorf("lookahead must be >= 0, got %v", c.Lookahead)
	}
	return nil
}

// batchClock is the processing-time bookkeeping shared by the strategies.
type batchClock struct {
	cfg                StrategyConfig
	nextProcessingTime float64
}

func newBatchClock(cfg StrategyConfig) batchClock {
	return batchClock{cfg: cfg, nextProcessingTime: cfg.ProcessingInterval}
}

func (c *batchClock) NextProcessingTime() float64 { return c.nextProcessingTime }

func (c *batchClock) NextProposalDeadline() float64 {
	return c.nextProcessingTime + c.cfg.DeadlineMargin
}

// advance moves the processing time past now in whole intervals.
func (c *batchClock) advance(now float64) {
	for c.nextProcessingTime <= now {
		c.nextProcessingTime += c.cfg.ProcessingInterval
	}
}

func (c *batchClock) window(now float64, queue []*IndexedProposal) []*IndexedProposal {
	if c.cfg.Lookahead == 0 {
		return append([]*IndexedProposal(nil), queue...)
	}
	return lo.Filter(queue, func(ip *IndexedProposal, _ int) bool {
		return ip.Proposal.ArrivalTime < now+c.cfg.Lookahead
	})
}

// FCFSBatchReordering tries proposals in arrival-time order.
type FCFSBatchReordering struct {
	batchClock
}

// NewFCFSBatchReordering creates an FCFS strategy. Panics on an invalid config.
func NewFCFSBatchReordering(cfg StrategyConfig) *FCFSBatchReordering {
	mustValidate(cfg)
	return &FCFSBatchReordering{batchClock: newBatchClock(cfg)}
}

func (s *FCFSBatchReordering) GetBatch(currentTime float64, queue []*IndexedProposal, _ float64) []*IndexedProposal {
	batch := s.window(currentTime, queue)
	s.advance(currentTime)
	return batch
}

// LaneGroupedReordering tries all proposals of one arrival lane before the
// next, lanes ordered by their earliest proposal, so vehicles queued on the
// same lane are granted back to back.
type LaneGroupedReordering struct {
	batchClock
}

// NewLaneGroupedReordering creates a lane-grouped strategy. Panics on an invalid config.
func NewLaneGroupedReordering(cfg StrategyConfig) *LaneGroupedReordering {
	mustValidate(cfg)
	return &LaneGroupedReordering{batchClock: newBatchClock(cfg)}
}

func (s *LaneGroupedReordering) GetBatch(currentTime float64, queue []*IndexedProposal, _ float64) []*IndexedProposal {
	window := s.window(currentTime, queue)
	s.advance(currentTime)
	lane := func(ip *IndexedProposal) int { return ip.Proposal.ArrivalLaneID }
	order := lo.Uniq(lo.Map(window, func(ip *IndexedProposal, _ int) int { return lane(ip) }))
	byLane := lo.GroupBy(window, lane)
	batch := make([]*IndexedProposal, 0, len(window))
	for _, id := range order {
		batch = append(batch, byLane[id]...)
	}
	return batch
}

func mustValidate(cfg StrategyConfig) {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("batch: invalid strategy config: %v", err))
	}
}

// ValidReorderingStrategies is the set of recognized strategy names.
var ValidReorderingStrategies = map[string]bool{"": true, "fcfs": true, "lane-grouped": true}

// IsValidReorderingStrategy returns true if name is a recognized strategy.
func IsValidReorderingStrategy(name string) bool { return ValidReorderingStrategies[name] }

// NewReorderingStrategy creates a strategy by name.
// Empty string defaults to FCFS. Panics on unrecognized names.
func NewReorderingStrategy(name string, cfg StrategyConfig) ReorderingStrategy {
	if !IsValidReorderingStrategy(name) {
		panic(fmt.Sprintf("unknown reordering strategy %q", name))
	}
	switch name {
	case "", "fcfs":
		return NewFCFSBatchReordering(cfg)
	case "lane-grouped":
		return NewLaneGroupedReordering(cfg)
	default:
		panic(fmt.Sprintf("unhandled reordering strategy %q", name))
	}
}

// DefaultStrategyConfig returns a 1 s batch interval whose deadline margin
// equals the interval and no lookahead limit.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{ProcessingInterval: 1.0, DeadlineMargin: 1.0}
}
