package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/intersection-sim/intersection-sim/sim/batch"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/reservation"
	"github.com/intersection-sim/intersection-sim/sim/workload"
)

// ScenarioBundle is a scenario loaded from YAML. Nil pointer fields mean
// "not set in YAML" and leave the target config alone. The layout, grid
// and workload sections are filled from their defaults for keys a file
// leaves out.
type ScenarioBundle struct {
	Seed     *int64   `yaml:"seed"`
	Horizon  *float64 `yaml:"horizon"` // seconds
	TimeStep *float64 `yaml:"time_step"`

	Batch  BatchBundle  `yaml:"batch"`
	ACZ    ACZBundle    `yaml:"acz"`
	Policy PolicyBundle `yaml:"policy"`

	Layout   *layout.FourWayConfig `yaml:"layout"`
	Grid     *reservation.Config   `yaml:"grid"`
	Workload *workload.Config      `yaml:"workload"`
}

// BatchBundle holds batch settings. Empty Strategy means "not set".
type BatchBundle struct {
	Strategy       string   `yaml:"strategy"`
	Interval       *float64 `yaml:"interval"`
	DeadlineMargin *float64 `yaml:"deadline_margin"`
	Lookahead      *float64 `yaml:"lookahead"`
}

// ACZBundle holds admission control zone settings.
type ACZBundle struct {
	Capacity *float64 `yaml:"capacity"`
	Dwell    *float64 `yaml:"dwell"`
}

// PolicyBundle holds intersection manager policy settings.
type PolicyBundle struct {
	RejectBackoff            *float64 `yaml:"reject_backoff"`
	MaxFutureReservationTime *float64 `yaml:"max_future_reservation_time"`
	ArrivalError             *float64 `yaml:"arrival_error"`
	CleanUpInterval          *int     `yaml:"clean_up_interval"`
}

// LoadScenarioBundle reads and strictly parses a scenario file. Unknown keys
// are errors.
func LoadScenarioBundle(path string) (*ScenarioBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	return ParseScenarioBundle(data)
}

// ParseScenarioBundle parses scenario YAML. See LoadScenarioBundle.
func ParseScenarioBundle(data []byte) (*ScenarioBundle, error) {
	var present ScenarioBundle
	if err := decodeStrict(data, &present); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	// Second pass overlays the nested sections that are present onto defaults.
	bundle := ScenarioBundle{}
	if present.Layout != nil {
		l := layout.DefaultFourWayConfig()
		bundle.Layout = &l
	}
	if present.Grid != nil {
		g := reservation.DefaultConfig()
		bundle.Grid = &g
	}
	if present.Workload != nil {
		w := workload.DefaultConfig()
		bundle.Workload = &w
	}
	if err := decodeStrict(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	return &bundle, nil
}

func decodeStrict(data []byte, out *ScenarioBundle) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks names and parameter ranges of the fields that are set.
func (b *ScenarioBundle) Validate() error {
	if b.Horizon != nil && *b.Horizon <= 0 {
		return fmt.Errorf("horizon must be > 0, got %v", *b.Horizon)
	}
	if b.TimeStep != nil && *b.TimeStep <= 0 {
		return fmt.Errorf("time_step must be > 0, got %v", *b.TimeStep)
	}
	if !batch.IsValidReorderingStrategy(b.Batch.Strategy) {
		return fmt.Errorf("unknown batch strategy %q", b.Batch.Strategy)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"batch.deadline_margin", b.Batch.DeadlineMargin},
		{"batch.lookahead", b.Batch.Lookahead},
		{"acz.capacity", b.ACZ.Capacity},
		{"acz.dwell", b.ACZ.Dwell},
		{"policy.reject_backoff", b.Policy.RejectBackoff},
		{"policy.max_future_reservation_time", b.Policy.MaxFutureReservationTime},
		{"policy.arrival_error", b.Policy.ArrivalError},
	} {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}
	if b.Batch.Interval != nil && *b.Batch.Interval <= 0 {
		return fmt.Errorf("batch.interval must be > 0, got %v", *b.Batch.Interval)
	}
	if b.Policy.CleanUpInterval != nil && *b.Policy.CleanUpInterval < 0 {
		return fmt.Errorf("policy.clean_up_interval must be non-negative, got %d", *b.Policy.CleanUpInterval)
	}
	if b.Layout != nil {
		if err := b.Layout.Validate(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	if b.Grid != nil {
		if err := b.Grid.Validate(); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}
	if b.Workload != nil {
		if err := b.Workload.Validate(); err != nil {
			return fmt.Errorf("workload: %w", err)
		}
	}
	return nil
}

// ApplyTo overwrites the fields of cfg and wl that the bundle sets.
func (b *ScenarioBundle) ApplyTo(cfg *EngineConfig, wl *workload.Config) {
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&cfg.TimeStep, b.TimeStep)
	if b.Batch.Strategy != "" {
		cfg.Batch.Strategy = b.Batch.Strategy
	}
	setFloat(&cfg.Batch.Interval, b.Batch.Interval)
	setFloat(&cfg.Batch.DeadlineMargin, b.Batch.DeadlineMargin)
	setFloat(&cfg.Batch.Lookahead, b.Batch.Lookahead)
	setFloat(&cfg.ACZ.Capacity, b.ACZ.Capacity)
	setFloat(&cfg.ACZ.Dwell, b.ACZ.Dwell)
	setFloat(&cfg.Policy.RejectBackoff, b.Policy.RejectBackoff)
	setFloat(&cfg.Policy.MaxFutureReservationTime, b.Policy.MaxFutureReservationTime)
	setFloat(&cfg.Policy.ArrivalError, b.Policy.ArrivalError)
	if b.Policy.CleanUpInterval != nil {
		cfg.Policy.CleanUpInterval = *b.Policy.CleanUpInterval
	}
	if b.Layout != nil {
		cfg.Layout = *b.Layout
	}
	if b.Grid != nil {
		cfg.Grid = *b.Grid
	}
	if b.Workload != nil && wl != nil {
		*wl = *b.Workload
	}
}
