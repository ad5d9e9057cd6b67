package sim

import "fmt"

// EventType identifies an event kind.
type EventType int

const (
	EventTypeDone EventType = iota
	EventTypeAway
	EventTypeCancel
	EventTypeSpawn
	EventTypeRetry
)

// EventTypePriority orders events sharing a timestamp: releases first, so
// that requests in the same step see the freed cells and zone space.
var EventTypePriority = map[EventType]int{
	EventTypeDone:   0,
	EventTypeAway:   1,
	EventTypeCancel: 2,
	EventTypeSpawn:  3,
	EventTypeRetry:  4,
}

func (t EventType) String() string {
	switch t {
	case EventTypeDone:
		return "done"
	case EventTypeAway:
		return "away"
	case EventTypeCancel:
		return "cancel"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeRetry:
		return "retry"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a scheduled change to one vehicle.
type Event interface {
	Timestamp() float64
	EventID() uint64
	Type() EventType
	Execute(sim *Simulator)
}

// BaseEvent provides common event fields. The id is assigned by
// Simulator.Schedule.
type BaseEvent struct {
	timestamp float64
	eventID   uint64
	eventType EventType
	VIN       int
}

func (e *BaseEvent) Timestamp() float64 { return e.timestamp }
func (e *BaseEvent) EventID() uint64    { return e.eventID }
func (e *BaseEvent) Type() EventType    { return e.eventType }

func (e *BaseEvent) base() *BaseEvent { return e }

// SpawnEvent brings a vehicle into range of the intersection; it sends its
// first request.
type SpawnEvent struct{ BaseEvent }

func (e *SpawnEvent) Execute(sim *Simulator) { sim.handleSpawn(e) }

// RetryEvent makes a rejected vehicle ask again.
type RetryEvent struct{ BaseEvent }

func (e *RetryEvent) Execute(sim *Simulator) { sim.handleRetry(e) }

// CancelEvent withdraws a confirmed reservation.
type CancelEvent struct {
	BaseEvent
	ReservationID int
}

func (e *CancelEvent) Execute(sim *Simulator) { sim.handleCancel(e) }

// DoneEvent reports that a vehicle has crossed the intersection.
type DoneEvent struct {
	BaseEvent
	ReservationID int
}

func (e *DoneEvent) Execute(sim *Simulator) { sim.handleDone(e) }

// AwayEvent reports that a vehicle has left the exit lane's zone.
type AwayEvent struct {
	BaseEvent
	ReservationID int
}

func (e *AwayEvent) Execute(sim *Simulator) { sim.handleAway(e) }

func newBaseEvent(t float64, typ EventType, vin int) BaseEvent {
	return BaseEvent{timestamp: t, eventType: typ, VIN: vin}
}
