// Package trace records intersection manager decisions for offline analysis.
// It stores pure data types and has no dependencies on the engine packages.
package trace

import "github.com/google/uuid"

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every confirm and reject.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelZones additionally samples zone occupancy.
	TraceLevelZones TraceLevel = "zones"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelZones:     true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during one run.
type SimulationTrace struct {
	RunID     uuid.UUID
	Config    TraceConfig
	Decisions []DecisionRecord
	Zones     []ZoneRecord
}

// NewSimulationTrace creates a trace with a fresh run id.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		RunID:     uuid.New(),
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
		Zones:     make([]ZoneRecord, 0),
	}
}

// Enabled reports whether decisions are recorded.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level != TraceLevelNone && st.Config.Level != ""
}

// RecordDecision appends a decision record.
func (st *SimulationTrace) RecordDecision(record DecisionRecord) {
	st.Decisions = append(st.Decisions, record)
}

// RecordZone appends a zone sample when zone tracing is on.
func (st *SimulationTrace) RecordZone(record ZoneRecord) {
	if st.Config.Level != TraceLevelZones {
		return
	}
	st.Zones = append(st.Zones, record)
}
