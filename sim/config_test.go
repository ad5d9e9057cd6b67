package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intersection-sim/intersection-sim/sim/im"
)

func TestDefaultEngineConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultEngineConfig().Validate())
}

func TestEngineConfig_IMConfig_MatchesManagerDefaults(t *testing.T) {
	assert.Equal(t, im.DefaultConfig(), DefaultEngineConfig().IMConfig())
}

func TestEngineConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"zero time step", func(c *EngineConfig) { c.TimeStep = 0 }},
		{"bad layout", func(c *EngineConfig) { c.Layout.LaneWidth = 0 }},
		{"negative dwell", func(c *EngineConfig) { c.ACZ.Dwell = -1 }},
		{"unknown strategy", func(c *EngineConfig) { c.Batch.Strategy = "lifo" }},
		{"zero interval", func(c *EngineConfig) { c.Batch.Interval = 0 }},
		{"bad grid", func(c *EngineConfig) { c.Grid.Granularity = -1 }},
		{"negative capacity", func(c *EngineConfig) { c.ACZ.Capacity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
