// Package msg defines the semantic contracts exchanged between vehicles and
// an intersection manager. Framing and transport are out of scope.
package msg

import (
	"fmt"

	"github.com/intersection-sim/intersection-sim/sim/reservation"
	"github.com/intersection-sim/intersection-sim/sim/vehicle"
)

// Proposal is one candidate traversal offered by a vehicle. Immutable.
type Proposal struct {
	ArrivalLaneID       int
	DepartureLaneID     int
	ArrivalTime         float64
	ArrivalVelocity     float64
	MaximumTurnVelocity float64
}

// Request carries a vehicle's proposals ordered by preference (first = most preferred).
type Request struct {
	VIN       int
	RequestID int
	Proposals []Proposal
	Spec      vehicle.Spec
}

func (r *Request) String() string {
	return fmt.Sprintf("Request(vin=%d id=%d proposals=%d)", r.VIN, r.RequestID, len(r.Proposals))
}

// Cancel withdraws a confirmed reservation before it is used.
type Cancel struct {
	VIN           int
	ReservationID int
}

// Done reports that a vehicle has left the intersection area.
type Done struct {
	VIN           int
	ReservationID int
}

// Away reports that a vehicle has left the admission control zone.
type Away struct {
	VIN           int
	ReservationID int
}

// Confirm grants a reservation.
type Confirm struct {
	VIN                 int
	ReservationID       int
	RequestID           int
	ArrivalTime         float64
	EarlyError          float64
	LateError           float64
	ArrivalVelocity     float64
	ArrivalLaneID       int
	DepartureLaneID     int
	ACZDistance         float64
	AccelerationProfile []reservation.AccelSegment
}

// ArrivalWindow returns the earliest and latest acceptable arrival times.
func (c *Confirm) ArrivalWindow() (early, late float64) {
	return c.ArrivalTime - c.EarlyError, c.ArrivalTime + c.LateError
}

// RejectReason explains a Reject.
type RejectReason string

const (
	ReasonNoClearPath             RejectReason = "no-clear-path"
	ReasonConfirmedAnotherRequest RejectReason = "confirmed-another-request"
	ReasonArrivalTimeTooLarge     RejectReason = "arrival-time-too-large"
	ReasonArrivalTimeTooLate      RejectReason = "arrival-time-too-late"
	ReasonBeforeNextAllowedComm   RejectReason = "before-next-allowed-comm"
)

// Reject refuses a request.
type Reject struct {
	VIN                      int
	RequestID                int
	NextAllowedCommunication float64
	Reason                   RejectReason
}
