package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcAccelerationProfile(t *testing.T) {
	tests := []struct {
		name         string
		v0, vmax, a  float64
		arrival      float64
		exit         float64
		accelerating bool
		want         []AccelSegment
	}{
		{"constant speed", 10, 20, 3, 1, 3, false, []AccelSegment{{0, 2}}},
		{"already at ceiling", 20, 20, 3, 0, 2, true, []AccelSegment{{0, 2}}},
		{"reaches ceiling", 10, 13, 3, 0, 4, true, []AccelSegment{{3, 1}, {0, 3}}},
		{"accelerates throughout", 10, 30, 2, 0, 4, true, []AccelSegment{{2, 4}}},
		{"no acceleration capability", 10, 30, 0, 0, 4, true, []AccelSegment{{0, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcAccelerationProfile(tt.arrival, tt.v0, tt.vmax, tt.a, tt.exit, tt.accelerating)
			require.Equal(t, tt.want, got)
			sum := 0.0
			for _, s := range got {
				sum += s.Duration
			}
			assert.InDelta(t, tt.exit-tt.arrival, sum, 1e-12)
		})
	}
}

func TestCalcAccelerationProfile_NonPositiveTraversal_Panics(t *testing.T) {
	assert.Panics(t, func() { CalcAccelerationProfile(5, 10, 20, 3, 5, true) })
	assert.Panics(t, func() { CalcAccelerationProfile(5, 10, 20, 3, 4, false) })
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.EdgeTileTimeBufferSize = -1
	assert.Error(t, cfg.Validate())
	assert.Equal(t, int64(5), bufferSteps(0.1, 0.02))
	assert.Equal(t, int64(13), bufferSteps(0.25, 0.02))
	assert.Equal(t, int64(0), bufferSteps(0, 0.02))
}
