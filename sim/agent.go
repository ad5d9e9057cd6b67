package sim

import (
	"github.com/intersection-sim/intersection-sim/sim/msg"
	"github.com/intersection-sim/intersection-sim/sim/workload"
)

// AgentState is a vehicle's position in its reservation lifecycle.
type AgentState string

const (
	AgentRequesting AgentState = "requesting" // waiting for a reply or a retry
	AgentConfirmed  AgentState = "confirmed"  // holds a reservation, not yet through
	AgentInZone     AgentState = "in-zone"    // through the intersection, inside the exit zone
	AgentGone       AgentState = "gone"       // clear of the zone
	AgentGaveUp     AgentState = "gave-up"
)

// Agent is the simulator's view of one vehicle.
type Agent struct {
	workload.Arrival
	State          AgentState
	RequestID      int     // id of the latest request
	Retries        int     // rejects received so far
	DesiredArrival float64 // arrival time first asked for
	Confirm        *msg.Confirm
}

// proposals builds a request's alternatives: the same lanes at arrival
// times spaced from now + lead time.
func (a *Agent) proposals(now float64, cfg workload.Config) []msg.Proposal {
	out := make([]msg.Proposal, cfg.ProposalsPerRequest)
	for k := range out {
		out[k] = msg.Proposal{
			ArrivalLaneID:   a.ArrivalLaneID,
			DepartureLaneID: a.DepartureLaneID,
			ArrivalTime:     now + cfg.LeadTime + float64(k)*cfg.ProposalSpacing,
			ArrivalVelocity: a.Velocity,
		}
	}
	return out
}
