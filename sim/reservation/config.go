package reservation

import (
	"fmt"
	"math"
)

// Config is the construction-time configuration of a Manager.
// Time buffers are in seconds and rounded up to whole grid steps.
type Config struct {
	GridTimeStep                float64 `yaml:"grid_time_step"`     // seconds per discrete step
	StaticBufferSize            float64 `yaml:"static_buffer_size"` // metres of footprint padding
	InternalTileTimeBufferSize  float64 `yaml:"internal_tile_time_buffer_size"`
	EdgeTileTimeBufferSize      float64 `yaml:"edge_tile_time_buffer_size"`
	IsEdgeTileTimeBufferEnabled bool    `yaml:"is_edge_tile_time_buffer_enabled"`
	Granularity                 float64 `yaml:"granularity"` // tile side length, metres
	// MaxTraversalSteps bounds the internal simulation; a traversal that
	// takes longer fails.
	MaxTraversalSteps int `yaml:"max_traversal_steps"`
}

// DefaultConfig mirrors a 1m tile grid with 0.02s steps.
func DefaultConfig() Config {
	return Config{
		GridTimeStep:                0.02,
		StaticBufferSize:            0.25,
		InternalTileTimeBufferSize:  0.1,
		EdgeTileTimeBufferSize:      0.25,
		IsEdgeTileTimeBufferEnabled: true,
		Granularity:                 1.0,
		MaxTraversalSteps:           10000,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.GridTimeStep <= 0:
		return fmt.Errorf("grid_time_step must be > 0, got %v", c.GridTimeStep)
	case c.Granularity <= 0:
		return fmt.Errorf("granularity must be > 0, got %v", c.Granularity)
	case c.StaticBufferSize < 0:
		return fmt.Errorf("static_buffer_size must be >= 0, got %v", c.StaticBufferSize)
	case c.InternalTileTimeBufferSize < 0:
		return fmt.Errorf("internal_tile_time_buffer_size must be >= 0, got %v", c.InternalTileTimeBufferSize)
	case c.EdgeTileTimeBufferSize < 0:
		return fmt.Errorf("edge_tile_time_buffer_size must be >= 0, got %v", c.EdgeTileTimeBufferSize)
	case c.MaxTraversalSteps < 1:
		return fmt.Errorf("max_traversal_steps must be >= 1, got %d", c.MaxTraversalSteps)
	}
	return nil
}

// bufferSteps converts a time buffer to whole grid steps, rounding up.
func bufferSteps(buffer, step float64) int64 {
	return int64(math.Ceil(buffer/step - 1e-9))
}
