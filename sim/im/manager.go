// Package im implements an intersection manager: it takes vehicle messages,
// resolves requests through a batch handler against the reservation grid and
// the admission control zones, and queues the replies.
package im

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/intersection-sim/intersection-sim/sim/acz"
	"github.com/intersection-sim/intersection-sim/sim/batch"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/msg"
	"github.com/intersection-sim/intersection-sim/sim/reservation"
)

// Clock supplies the current simulated time.
type Clock interface {
	Now() float64
}

// reserveParam is a reservation found for one proposal, ready to commit.
type reserveParam struct {
	req      *msg.Request
	proposal msg.Proposal
	plan     *reservation.Plan
}

func (p *reserveParam) VIN() int { return p.req.VIN }

// grant is a confirmed reservation not yet completed.
type grant struct {
	requestID       int
	reservationID   int
	departureLaneID int
	exitTime        float64
}

// Manager is a batch.Policy over one intersection. Not thread-safe.
type Manager struct {
	cfg     Config
	clock   Clock
	layout  *layout.Intersection
	grid    *reservation.Manager
	zones   *acz.Manager
	handler *batch.Handler

	active      map[int]grant   // vin -> confirmed reservation
	nextAllowed map[int]float64 // vin -> earliest time of its next request
	confirms    []msg.Confirm
	rejects     []msg.Reject
	acts        int
}

var _ batch.Policy = (*Manager)(nil)

// NewManager creates a manager for the intersection. Panics on an invalid config.
func NewManager(cfg Config, in *layout.Intersection, clock Clock) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("im.NewManager: %v", err))
	}
	var gated []int
	if cfg.ACZCapacity > 0 {
		for _, l := range in.OutgoingLanes() {
			gated = append(gated, l.ID)
		}
	}
	m := &Manager{
		cfg:         cfg,
		clock:       clock,
		layout:      in,
		grid:        reservation.NewManager(cfg.Reservation, in),
		zones:       acz.NewManager(cfg.ACZCapacity, gated),
		active:      make(map[int]grant),
		nextAllowed: make(map[int]float64),
	}
	m.handler = batch.NewHandler(
		batch.NewReorderingStrategy(cfg.Strategy, cfg.Batch),
		m,
		msg.StandardProposalsFilter(cfg.MaxFutureReservationTime),
	)
	return m
}

// timeEpsilon absorbs float drift between step times and backoff deadlines.
const timeEpsilon = 1e-9

// HandleRequest takes a reservation request.
func (m *Manager) HandleRequest(req *msg.Request) {
	now := m.clock.Now()
	if next, ok := m.nextAllowed[req.VIN]; ok && now+timeEpsilon < next {
		logrus.Debugf("[t=%.2f] im: vin %d request %d before next allowed communication %.2f", now, req.VIN, req.RequestID, next)
		m.rejects = append(m.rejects, msg.Reject{
			VIN:                      req.VIN,
			RequestID:                req.RequestID,
			NextAllowedCommunication: next,
			Reason:                   msg.ReasonBeforeNextAllowedComm,
		})
		return
	}
	m.handler.ProcessRequest(req)
}

// HandleCancel withdraws a confirmed reservation and its zone admission.
// Panics if the reservation does not exist.
func (m *Manager) HandleCancel(c msg.Cancel) {
	a := m.mustActive(c.VIN, c.ReservationID, "HandleCancel")
	m.grid.Cancel(a.reservationID)
	m.zones.Cancel(c.VIN)
	delete(m.active, c.VIN)
	logrus.Debugf("[t=%.2f] im: vin %d cancelled reservation %d", m.clock.Now(), c.VIN, c.ReservationID)
}

// HandleDone releases the grid cells left of a completed traversal. The zone
// admission is held until HandleAway. Panics if the reservation does not exist.
func (m *Manager) HandleDone(d msg.Done) {
	a := m.mustActive(d.VIN, d.ReservationID, "HandleDone")
	m.grid.Cancel(a.reservationID)
	delete(m.active, d.VIN)
	logrus.Debugf("[t=%.2f] im: vin %d done with reservation %d", m.clock.Now(), d.VIN, d.ReservationID)
}

// HandleAway releases a vehicle's zone admission. Panics if it holds none.
func (m *Manager) HandleAway(a msg.Away) {
	m.zones.Away(a.VIN)
	logrus.Debugf("[t=%.2f] im: vin %d left the admission zone", m.clock.Now(), a.VIN)
}

func (m *Manager) mustActive(vin, reservationID int, op string) grant {
	a, ok := m.active[vin]
	if !ok || a.reservationID != reservationID {
		panic(fmt.Sprintf("Manager.%s: vin %d holds no reservation %d", op, vin, reservationID))
	}
	return a
}

// Act advances the manager by one simulation step.
func (m *Manager) Act(timeStep float64) {
	m.handler.Act(timeStep)
	m.acts++
	if m.cfg.CleanUpInterval > 0 && m.acts%m.cfg.CleanUpInterval == 0 {
		now := m.clock.Now()
		purged := m.grid.CleanUp(now)
		for vin, next := range m.nextAllowed {
			if next <= now {
				delete(m.nextAllowed, vin)
			}
		}
		logrus.Debugf("[t=%.2f] im: cleanup purged %d cells", now, purged)
	}
}

// Outbox returns and clears the replies produced since the last call.
func (m *Manager) Outbox() (confirms []msg.Confirm, rejects []msg.Reject) {
	confirms, rejects = m.confirms, m.rejects
	m.confirms, m.rejects = nil, nil
	return confirms, rejects
}

// CurrentTime implements batch.Policy.
func (m *Manager) CurrentTime() float64 { return m.clock.Now() }

// HasReservation implements batch.Policy.
func (m *Manager) HasReservation(vin int) bool {
	_, ok := m.active[vin]
	return ok
}

// FindReserveParam implements batch.Policy. Each proposal is tried with an
// accelerating traversal first and a coasting one second; the plan must
// also fit the admission control zone of the departure lane.
func (m *Manager) FindReserveParam(req *msg.Request, proposals []msg.Proposal) (batch.ReserveParam, bool) {
	for _, p := range proposals {
		turnVelocity := p.MaximumTurnVelocity
		if turnVelocity <= 0 {
			turnVelocity = req.Spec.MaxVelocity
		}
		for _, accelerating := range []bool{true, false} {
			plan, ok := m.grid.Query(reservation.Query{
				VIN:             req.VIN,
				ArrivalTime:     p.ArrivalTime,
				ArrivalVelocity: p.ArrivalVelocity,
				ArrivalLaneID:   p.ArrivalLaneID,
				DepartureLaneID: p.DepartureLaneID,
				Spec:            req.Spec,
				MaxTurnVelocity: turnVelocity,
				Accelerating:    accelerating,
			})
			if !ok {
				continue
			}
			stop := req.Spec.StoppingDistance(plan.ExitVelocity)
			if !m.zones.IsAdmissible(p.DepartureLaneID, req.VIN, req.Spec.Length, stop) {
				logrus.Debugf("im: vin %d lane %d zone full", req.VIN, p.DepartureLaneID)
				continue
			}
			return &reserveParam{req: req, proposal: p, plan: plan}, true
		}
	}
	return nil, false
}

// SendConfirmMsg implements batch.Policy: it commits the reservation and
// queues the Confirm.
func (m *Manager) SendConfirmMsg(requestID int, p batch.ReserveParam) {
	rp, ok := p.(*reserveParam)
	if !ok {
		panic(fmt.Sprintf("Manager.SendConfirmMsg: foreign reserve param %T", p))
	}
	vin := rp.VIN()
	id := m.grid.Accept(rp.plan)
	m.zones.Admit(rp.proposal.DepartureLaneID, vin, rp.req.Spec.Length, rp.req.Spec.StoppingDistance(rp.plan.ExitVelocity))
	m.active[vin] = grant{
		requestID:       requestID,
		reservationID:   id,
		departureLaneID: rp.proposal.DepartureLaneID,
		exitTime:        rp.plan.ExitTime,
	}
	var aczDistance float64
	if z := m.zones.Zone(rp.proposal.DepartureLaneID); z != nil {
		aczDistance = z.Capacity()
	}
	m.confirms = append(m.confirms, msg.Confirm{
		VIN:                 vin,
		ReservationID:       id,
		RequestID:           requestID,
		ArrivalTime:         rp.proposal.ArrivalTime,
		EarlyError:          m.cfg.ArrivalError,
		LateError:           m.cfg.ArrivalError,
		ArrivalVelocity:     rp.proposal.ArrivalVelocity,
		ArrivalLaneID:       rp.proposal.ArrivalLaneID,
		DepartureLaneID:     rp.proposal.DepartureLaneID,
		ACZDistance:         aczDistance,
		AccelerationProfile: rp.plan.AccelerationProfile,
	})
	logrus.Debugf("[t=%.2f] im: confirmed vin %d request %d arrival %.2f exit %.2f",
		m.clock.Now(), vin, requestID, rp.proposal.ArrivalTime, rp.plan.ExitTime)
}

// SendRejectMsg implements batch.Policy: it queues the Reject and starts the
// vehicle's backoff.
func (m *Manager) SendRejectMsg(vin, requestID int, reason msg.RejectReason) {
	next := m.clock.Now() + m.cfg.RejectBackoff
	m.nextAllowed[vin] = next
	m.rejects = append(m.rejects, msg.Reject{
		VIN:                      vin,
		RequestID:                requestID,
		NextAllowedCommunication: next,
		Reason:                   reason,
	})
	logrus.Debugf("[t=%.2f] im: rejected vin %d request %d: %s", m.clock.Now(), vin, requestID, reason)
}

// ExitTime returns the planned exit time of vin's active reservation.
func (m *Manager) ExitTime(vin int) (float64, bool) {
	a, ok := m.active[vin]
	return a.exitTime, ok
}

func (m *Manager) Config() Config                     { return m.cfg }
func (m *Manager) Layout() *layout.Intersection       { return m.layout }
func (m *Manager) Reservations() *reservation.Manager { return m.grid }
func (m *Manager) Zones() *acz.Manager                { return m.zones }
func (m *Manager) Handler() *batch.Handler            { return m.handler }
