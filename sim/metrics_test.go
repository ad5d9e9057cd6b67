package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intersection-sim/intersection-sim/sim/msg"
)

func TestMetrics_RecordDelay(t *testing.T) {
	m := NewMetrics()
	m.RecordDelay(0.5)
	m.RecordDelay(2.0)
	m.RecordDelay(1.0)
	assert.InDelta(t, 3.5, m.TotalDelay, 1e-12)
	assert.Equal(t, 2.0, m.MaxDelay)
}

func TestMetrics_TotalRejects(t *testing.T) {
	m := NewMetrics()
	m.Rejects[msg.ReasonNoClearPath] = 3
	m.Rejects[msg.ReasonBeforeNextAllowedComm] = 2
	assert.Equal(t, 5, m.TotalRejects())
}

func TestMetrics_Throughput(t *testing.T) {
	m := NewMetrics()
	assert.Zero(t, m.Throughput())
	m.Completed = 30
	m.SimEndedTime = 120
	assert.InDelta(t, 15.0, m.Throughput(), 1e-12)
}
