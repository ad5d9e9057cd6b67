package trace

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions int
	ConfirmedCount int
	RejectedCount  int
	RejectReasons  map[string]int // reason -> count
	MeanDelay      float64        // over confirms
	StdDevDelay    float64
	MaxDelay       float64
	PeakZoneUsage  float64 // highest sampled size/capacity
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{RejectReasons: make(map[string]int)}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	confirmed, rejected := lo.FilterReject(st.Decisions, func(d DecisionRecord, _ int) bool { return d.Confirmed })
	summary.ConfirmedCount = len(confirmed)
	summary.RejectedCount = len(rejected)
	for _, d := range rejected {
		summary.RejectReasons[d.Reason]++
	}

	if len(confirmed) > 0 {
		delays := lo.Map(confirmed, func(d DecisionRecord, _ int) float64 { return d.Delay })
		summary.MaxDelay = lo.Max(delays)
		if len(delays) > 1 {
			summary.MeanDelay, summary.StdDevDelay = stat.MeanStdDev(delays, nil)
		} else {
			summary.MeanDelay = delays[0]
		}
	}

	for _, z := range st.Zones {
		if z.Capacity > 0 {
			summary.PeakZoneUsage = max(summary.PeakZoneUsage, z.CurrentSize/z.Capacity)
		}
	}
	return summary
}
