package im

import (
	"fmt"

	"github.com/intersection-sim/intersection-sim/sim/batch"
	"github.com/intersection-sim/intersection-sim/sim/reservation"
)

// Config configures an intersection manager.
type Config struct {
	Reservation reservation.Config
	Strategy    string // batch reordering strategy name
	Batch       batch.StrategyConfig

	// ACZCapacity is the length of the admission control zone on every exit
	// lane in metres. Zero leaves exit lanes ungated.
	ACZCapacity float64

	RejectBackoff            float64 // seconds a rejected vehicle must wait before its next request
	MaxFutureReservationTime float64 // furthest arrival time accepted, relative to now
	ArrivalError             float64 // early and late tolerance reported in a Confirm
	CleanUpInterval          int     // Act calls between grid cleanups; 0 disables cleanup
}

// DefaultConfig returns the manager defaults.
func DefaultConfig() Config {
	return Config{
		Reservation:              reservation.DefaultConfig(),
		Strategy:                 "fcfs",
		Batch:                    batch.DefaultStrategyConfig(),
		ACZCapacity:              40.0,
		RejectBackoff:            0.5,
		MaxFutureReservationTime: 30.0,
		ArrivalError:             0.05,
		CleanUpInterval:          50,
	}
}

// Validate checks every field, including nested configs.
func (c Config) Validate() error {
	if err := c.Reservation.Validate(); err != nil {
		return fmt.Errorf("reservation: %w", err)
	}
	if !batch.IsValidReorderingStrategy(c.Strategy) {
		return fmt.Errorf("unknown reordering strategy %q", c.Strategy)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	switch {
	case c.ACZCapacity < 0:
		return fmt.Errorf("acz capacity must be >= 0, got %v", c.ACZCapacity)
	case c.RejectBackoff < 0:
		return fmt.Errorf("reject backoff must be >= 0, got %v", c.RejectBackoff)
	case c.MaxFutureReservationTime <= 0:
		return fmt.Errorf("max future reservation time must be > 0, got %v", c.MaxFutureReservationTime)
	case c.ArrivalError < 0:
		return fmt.Errorf("arrival error must be >= 0, got %v", c.ArrivalError)
	case c.CleanUpInterval < 0:
		return fmt.Errorf("cleanup interval must be >= 0, got %d", c.CleanUpInterval)
	}
	return nil
}
