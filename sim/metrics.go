package sim

import (
	"fmt"
	"sort"

	"github.com/intersection-sim/intersection-sim/sim/msg"
)

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	Spawned   int // vehicles that entered the simulation
	Requests  int // requests sent, retries included
	Confirms  int
	Rejects   map[msg.RejectReason]int
	Cancels   int
	Completed int // vehicles through the intersection
	Away      int // vehicles clear of the exit zone
	GaveUp    int // vehicles that ran out of retries

	TotalDelay float64 // sum over confirms of granted minus first desired arrival
	MaxDelay   float64

	SimEndedTime float64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{Rejects: make(map[msg.RejectReason]int)}
}

// RecordDelay adds one granted delay.
func (m *Metrics) RecordDelay(d float64) {
	m.TotalDelay += d
	m.MaxDelay = max(m.MaxDelay, d)
}

// TotalRejects sums rejects over all reasons.
func (m *Metrics) TotalRejects() int {
	n := 0
	for _, c := range m.Rejects {
		n += c
	}
	return n
}

// Throughput is completed vehicles per minute of simulated time.
func (m *Metrics) Throughput() float64 {
	if m.SimEndedTime <= 0 {
		return 0
	}
	return float64(m.Completed) / m.SimEndedTime * 60
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Simulated Time       : %.2f s\n", m.SimEndedTime)
	fmt.Printf("Vehicles Spawned     : %d\n", m.Spawned)
	fmt.Printf("Requests Sent        : %d\n", m.Requests)
	fmt.Printf("Confirms             : %d\n", m.Confirms)
	fmt.Printf("Rejects              : %d\n", m.TotalRejects())
	reasons := make([]string, 0, len(m.Rejects))
	for r := range m.Rejects {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-26s: %d\n", r, m.Rejects[msg.RejectReason(r)])
	}
	fmt.Printf("Cancels              : %d\n", m.Cancels)
	fmt.Printf("Completed            : %d\n", m.Completed)
	fmt.Printf("Cleared Zone         : %d\n", m.Away)
	fmt.Printf("Gave Up              : %d\n", m.GaveUp)
	if m.Confirms > 0 {
		fmt.Printf("Average Delay        : %.3f s\n", m.TotalDelay/float64(m.Confirms))
		fmt.Printf("Max Delay            : %.3f s\n", m.MaxDelay)
	}
	fmt.Printf("Throughput           : %.2f veh/min\n", m.Throughput())
}
