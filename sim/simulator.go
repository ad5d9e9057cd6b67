package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/intersection-sim/intersection-sim/sim/im"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/msg"
	"github.com/intersection-sim/intersection-sim/sim/trace"
	"github.com/intersection-sim/intersection-sim/sim/workload"
)

// timeEpsilon absorbs float drift between event timestamps and step times.
const timeEpsilon = 1e-9

// Simulator advances vehicles and one intersection manager in fixed steps.
// Not thread-safe.
type Simulator struct {
	Ctx     *Context
	Config  EngineConfig
	Horizon float64
	Metrics *Metrics
	Trace   *trace.SimulationTrace // nil when tracing is off

	workload      workload.Config
	rng           *PartitionedRNG
	manager       *im.Manager
	events        *EventHeap
	nextEventID   uint64
	nextRequestID int
	agents        map[int]*Agent
}

// NewSimulator builds the intersection, its manager and the vehicle stream
// up to horizon. Panics on an invalid config; callers validate first.
func NewSimulator(cfg EngineConfig, wl workload.Config, horizon float64, key SimulationKey, tr *trace.SimulationTrace) *Simulator {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("sim.NewSimulator: %v", err))
	}
	if err := wl.Validate(); err != nil {
		panic(fmt.Sprintf("sim.NewSimulator: workload: %v", err))
	}
	ctx := &Context{Intersection: layout.NewFourWay(cfg.Layout)}
	s := &Simulator{
		Ctx:      ctx,
		Config:   cfg,
		Horizon:  horizon,
		Metrics:  NewMetrics(),
		Trace:    tr,
		workload: wl,
		rng:      NewPartitionedRNG(key),
		manager:  im.NewManager(cfg.IMConfig(), ctx.Intersection, ctx),
		events:   NewEventHeap(),
		agents:   make(map[int]*Agent),
	}
	for _, a := range workload.Generate(wl, ctx.Intersection, s.rng.ForSubsystem(SubsystemWorkload), horizon) {
		s.agents[a.VIN] = &Agent{Arrival: a, State: AgentRequesting}
		s.Schedule(&SpawnEvent{BaseEvent: newBaseEvent(a.SpawnTime, EventTypeSpawn, a.VIN)})
	}
	logrus.Infof("simulator: %d vehicles scheduled over %.1fs", len(s.agents), horizon)
	return s
}

// Schedule assigns the event its id and queues it.
func (s *Simulator) Schedule(ev Event) {
	s.nextEventID++
	ev.(interface{ base() *BaseEvent }).base().eventID = s.nextEventID
	s.events.Schedule(ev)
}

// Manager returns the intersection manager.
func (s *Simulator) Manager() *im.Manager { return s.manager }

// Agent returns the vehicle with the given VIN, or nil.
func (s *Simulator) Agent(vin int) *Agent { return s.agents[vin] }

// Run steps the simulation until the horizon.
func (s *Simulator) Run() {
	dt := s.Config.TimeStep
	samplePeriod := max(int64(math.Round(1/dt)), 1)
	for step := int64(0); ; step++ {
		now := float64(step) * dt
		if now > s.Horizon+timeEpsilon {
			break
		}
		s.Ctx.Time, s.Ctx.Step = now, step
		for ev := s.events.Peek(); ev != nil && ev.Timestamp() <= now+timeEpsilon; ev = s.events.Peek() {
			s.events.PopNext()
			logrus.Debugf("[t=%.2f] executing %s for vin %d", now, ev.Type(), ev.(interface{ base() *BaseEvent }).base().VIN)
			ev.Execute(s)
		}
		s.manager.Act(dt)
		s.deliver()
		if step%samplePeriod == 0 {
			s.sampleZones()
		}
	}
	s.Metrics.SimEndedTime = s.Ctx.Time
	logrus.Infof("[t=%.2f] simulation ended: %d confirms, %d rejects, %d completed",
		s.Ctx.Time, s.Metrics.Confirms, s.Metrics.TotalRejects(), s.Metrics.Completed)
}

func (s *Simulator) sendRequest(a *Agent) {
	now := s.Ctx.Time
	s.nextRequestID++
	a.RequestID = s.nextRequestID
	a.State = AgentRequesting
	req := &msg.Request{
		VIN:       a.VIN,
		RequestID: a.RequestID,
		Proposals: a.proposals(now, s.workload),
		Spec:      a.Spec,
	}
	if a.DesiredArrival == 0 {
		a.DesiredArrival = req.Proposals[0].ArrivalTime
	}
	s.Metrics.Requests++
	s.manager.HandleRequest(req)
}

func (s *Simulator) handleSpawn(e *SpawnEvent) {
	a := s.agents[e.VIN]
	s.Metrics.Spawned++
	s.sendRequest(a)
}

func (s *Simulator) handleRetry(e *RetryEvent) {
	a := s.agents[e.VIN]
	if a.State != AgentRequesting {
		return
	}
	s.sendRequest(a)
}

func (s *Simulator) handleCancel(e *CancelEvent) {
	a := s.agents[e.VIN]
	s.manager.HandleCancel(msg.Cancel{VIN: a.VIN, ReservationID: e.ReservationID})
	s.Metrics.Cancels++
	a.Cancels = false
	a.Confirm = nil
	a.State = AgentRequesting
	s.Schedule(&RetryEvent{BaseEvent: newBaseEvent(s.Ctx.Time+s.Config.TimeStep, EventTypeRetry, a.VIN)})
}

func (s *Simulator) handleDone(e *DoneEvent) {
	a := s.agents[e.VIN]
	s.manager.HandleDone(msg.Done{VIN: a.VIN, ReservationID: e.ReservationID})
	s.Metrics.Completed++
	a.State = AgentInZone
	s.Schedule(&AwayEvent{
		BaseEvent:     newBaseEvent(s.Ctx.Time+s.Config.ACZ.Dwell, EventTypeAway, a.VIN),
		ReservationID: e.ReservationID,
	})
}

func (s *Simulator) handleAway(e *AwayEvent) {
	a := s.agents[e.VIN]
	s.manager.HandleAway(msg.Away{VIN: a.VIN, ReservationID: e.ReservationID})
	s.Metrics.Away++
	a.State = AgentGone
}

// deliver hands the manager's replies to their vehicles.
func (s *Simulator) deliver() {
	now := s.Ctx.Time
	confirms, rejects := s.manager.Outbox()
	for i := range confirms {
		c := &confirms[i]
		a := s.agents[c.VIN]
		a.State = AgentConfirmed
		a.Confirm = c
		delay := c.ArrivalTime - a.DesiredArrival
		s.Metrics.Confirms++
		s.Metrics.RecordDelay(delay)
		s.record(trace.DecisionRecord{
			Time: now, VIN: c.VIN, RequestID: c.RequestID, Confirmed: true,
			ArrivalLaneID: c.ArrivalLaneID, DepartureLaneID: c.DepartureLaneID,
			ArrivalTime: c.ArrivalTime, Delay: delay,
		})

		if a.Cancels {
			frac := 0.1 + 0.8*s.rng.ForSubsystem(SubsystemCancel).Float64()
			s.Schedule(&CancelEvent{
				BaseEvent:     newBaseEvent(now+frac*(c.ArrivalTime-now), EventTypeCancel, a.VIN),
				ReservationID: c.ReservationID,
			})
			continue
		}
		exit, ok := s.manager.ExitTime(c.VIN)
		if !ok {
			panic(fmt.Sprintf("Simulator.deliver: confirmed vin %d has no exit time", c.VIN))
		}
		s.Schedule(&DoneEvent{
			BaseEvent:     newBaseEvent(exit, EventTypeDone, a.VIN),
			ReservationID: c.ReservationID,
		})
	}

	for _, r := range rejects {
		a := s.agents[r.VIN]
		s.Metrics.Rejects[r.Reason]++
		s.record(trace.DecisionRecord{
			Time: now, VIN: r.VIN, RequestID: r.RequestID, Reason: string(r.Reason),
			ArrivalLaneID: a.ArrivalLaneID, DepartureLaneID: a.DepartureLaneID,
		})
		a.Retries++
		if a.Retries > s.workload.MaxRetries {
			a.State = AgentGaveUp
			s.Metrics.GaveUp++
			logrus.Debugf("[t=%.2f] vin %d gave up after %d rejects", now, a.VIN, a.Retries)
			continue
		}
		at := max(r.NextAllowedCommunication, now+s.Config.TimeStep)
		s.Schedule(&RetryEvent{BaseEvent: newBaseEvent(at, EventTypeRetry, a.VIN)})
	}
}

func (s *Simulator) record(d trace.DecisionRecord) {
	if s.Trace.Enabled() {
		s.Trace.RecordDecision(d)
	}
}

func (s *Simulator) sampleZones() {
	if !s.Trace.Enabled() {
		return
	}
	zones := s.manager.Zones()
	for _, id := range zones.LaneIDs() {
		z := zones.Zone(id)
		s.Trace.RecordZone(trace.ZoneRecord{Time: s.Ctx.Time, LaneID: id, CurrentSize: z.CurrentSize(), Capacity: z.Capacity()})
	}
}
