// Package workload generates the vehicle streams that drive a simulation.
package workload

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/vehicle"
)

// Config describes the traffic offered to the intersection.
type Config struct {
	Process string  `yaml:"process"` // "poisson", "constant" or "gamma"
	CV      float64 `yaml:"cv"`      // coefficient of variation for gamma
	Rate    float64 `yaml:"rate"`    // vehicles per second per incoming lane

	// LeadTime is how far ahead of its arrival a vehicle sends its request.
	LeadTime            float64 `yaml:"lead_time"`
	ProposalsPerRequest int     `yaml:"proposals_per_request"`
	ProposalSpacing     float64 `yaml:"proposal_spacing"` // seconds between alternative arrival times
	MinVelocity         float64 `yaml:"min_velocity"`
	MaxVelocity         float64 `yaml:"max_velocity"`
	// CancelProbability is the chance a confirmed vehicle withdraws its reservation.
	CancelProbability float64 `yaml:"cancel_probability"`
	// MaxRetries bounds how often a rejected vehicle asks again before giving up.
	MaxRetries int          `yaml:"max_retries"`
	Spec       vehicle.Spec `yaml:"vehicle"`
}

// DefaultConfig offers light Poisson traffic of default cars.
func DefaultConfig() Config {
	return Config{
		Process:             "poisson",
		Rate:                0.1,
		LeadTime:            3.0,
		ProposalsPerRequest: 3,
		ProposalSpacing:     0.5,
		MinVelocity:         8.0,
		MaxVelocity:         15.0,
		MaxRetries:          20,
		Spec:                vehicle.DefaultSpec(),
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if !ValidArrivalProcesses[c.Process] {
		return fmt.Errorf("unknown arrival process %q", c.Process)
	}
	switch {
	case c.Rate <= 0:
		return fmt.Errorf("rate must be > 0, got %v", c.Rate)
	case c.CV < 0:
		return fmt.Errorf("cv must be >= 0, got %v", c.CV)
	case c.LeadTime <= 0:
		return fmt.Errorf("lead_time must be > 0, got %v", c.LeadTime)
	case c.ProposalsPerRequest < 1:
		return fmt.Errorf("proposals_per_request must be >= 1, got %d", c.ProposalsPerRequest)
	case c.ProposalSpacing < 0:
		return fmt.Errorf("proposal_spacing must be >= 0, got %v", c.ProposalSpacing)
	case c.MinVelocity <= 0 || c.MaxVelocity < c.MinVelocity:
		return fmt.Errorf("velocity range [%v, %v] is invalid", c.MinVelocity, c.MaxVelocity)
	case c.CancelProbability < 0 || c.CancelProbability > 1:
		return fmt.Errorf("cancel_probability must be in [0, 1], got %v", c.CancelProbability)
	case c.MaxRetries < 0:
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if err := c.Spec.Validate(); err != nil {
		return fmt.Errorf("vehicle: %w", err)
	}
	return nil
}

// Arrival is one vehicle entering the simulation.
type Arrival struct {
	VIN             int
	SpawnTime       float64
	ArrivalLaneID   int
	DepartureLaneID int
	Velocity        float64
	Spec            vehicle.Spec
	Cancels         bool // withdraws its first confirmed reservation
}

// Generate draws every arrival with SpawnTime < horizon from one stream per
// incoming lane. Arrivals are ordered by spawn time and numbered from VIN 1.
func Generate(cfg Config, in *layout.Intersection, rng *rand.Rand, horizon float64) []Arrival {
	sampler := NewArrivalSampler(cfg.Process, cfg.CV, cfg.Rate)
	var out []Arrival
	for _, lane := range in.IncomingLanes() {
		exits := in.DepartureLanes(lane.ID)
		if len(exits) == 0 {
			continue
		}
		for t := sampler.SampleIAT(rng); t < horizon; t += sampler.SampleIAT(rng) {
			out = append(out, Arrival{
				SpawnTime:       t,
				ArrivalLaneID:   lane.ID,
				DepartureLaneID: exits[rng.Intn(len(exits))].ID,
				Velocity:        cfg.MinVelocity + rng.Float64()*(cfg.MaxVelocity-cfg.MinVelocity),
				Spec:            cfg.Spec,
				Cancels:         rng.Float64() < cfg.CancelProbability,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SpawnTime < out[j].SpawnTime })
	for i := range out {
		out[i].VIN = i + 1
	}
	return out
}
