package sim

import (
	"fmt"

	"github.com/intersection-sim/intersection-sim/sim/batch"
	"github.com/intersection-sim/intersection-sim/sim/im"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/reservation"
)

// BatchConfig groups batch resolution parameters.
type BatchConfig struct {
	Strategy       string  // "fcfs" (default) or "lane-grouped"
	Interval       float64 // seconds between batches
	DeadlineMargin float64 // lead time a confirmation needs before arrival
	Lookahead      float64 // only batch arrivals before now+lookahead; 0 = all
}

// ACZConfig groups admission control zone parameters.
type ACZConfig struct {
	Capacity float64 // zone length per exit lane in metres; 0 = ungated
	Dwell    float64 // seconds a vehicle spends in the zone after leaving the intersection
}

// PolicyConfig groups intersection manager policy parameters.
type PolicyConfig struct {
	RejectBackoff            float64 // seconds before a rejected vehicle may ask again
	MaxFutureReservationTime float64 // furthest accepted arrival, relative to now
	ArrivalError             float64 // early/late tolerance reported in confirms
	CleanUpInterval          int     // steps between grid cleanups; 0 disables
}

// EngineConfig is the full engine configuration.
type EngineConfig struct {
	TimeStep float64 // simulation step in seconds
	Layout   layout.FourWayConfig
	Grid     reservation.Config
	Batch    BatchConfig
	ACZ      ACZConfig
	Policy   PolicyConfig
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	imDefaults := im.DefaultConfig()
	return EngineConfig{
		TimeStep: 0.02,
		Layout:   layout.DefaultFourWayConfig(),
		Grid:     reservation.DefaultConfig(),
		Batch: BatchConfig{
			Strategy:       imDefaults.Strategy,
			Interval:       imDefaults.Batch.ProcessingInterval,
			DeadlineMargin: imDefaults.Batch.DeadlineMargin,
			Lookahead:      imDefaults.Batch.Lookahead,
		},
		ACZ: ACZConfig{Capacity: imDefaults.ACZCapacity, Dwell: 2.0},
		Policy: PolicyConfig{
			RejectBackoff:            imDefaults.RejectBackoff,
			MaxFutureReservationTime: imDefaults.MaxFutureReservationTime,
			ArrivalError:             imDefaults.ArrivalError,
			CleanUpInterval:          imDefaults.CleanUpInterval,
		},
	}
}

// IMConfig maps the engine config onto the intersection manager config.
func (c EngineConfig) IMConfig() im.Config {
	return im.Config{
		Reservation: c.Grid,
		Strategy:    c.Batch.Strategy,
		Batch: batch.StrategyConfig{
			ProcessingInterval: c.Batch.Interval,
			DeadlineMargin:     c.Batch.DeadlineMargin,
			Lookahead:          c.Batch.Lookahead,
		},
		ACZCapacity:              c.ACZ.Capacity,
		RejectBackoff:            c.Policy.RejectBackoff,
		MaxFutureReservationTime: c.Policy.MaxFutureReservationTime,
		ArrivalError:             c.Policy.ArrivalError,
		CleanUpInterval:          c.Policy.CleanUpInterval,
	}
}

// Validate checks every field, including nested configs.
func (c EngineConfig) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("time step must be > 0, got %v", c.TimeStep)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.ACZ.Dwell < 0 {
		return fmt.Errorf("acz dwell must be >= 0, got %v", c.ACZ.Dwell)
	}
	return c.IMConfig().Validate()
}
