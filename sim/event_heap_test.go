package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scheduleAll(s *Simulator, evs ...Event) {
	for _, ev := range evs {
		s.Schedule(ev)
	}
}

func TestEventHeap_OrdersByTimestampThenPriorityThenID(t *testing.T) {
	// GIVEN events sharing timestamps across types, scheduled out of order
	s := &Simulator{events: NewEventHeap()}
	scheduleAll(s,
		&RetryEvent{BaseEvent: newBaseEvent(1.0, EventTypeRetry, 1)},
		&SpawnEvent{BaseEvent: newBaseEvent(1.0, EventTypeSpawn, 2)},
		&DoneEvent{BaseEvent: newBaseEvent(1.0, EventTypeDone, 3)},
		&AwayEvent{BaseEvent: newBaseEvent(0.5, EventTypeAway, 4)},
		&SpawnEvent{BaseEvent: newBaseEvent(1.0, EventTypeSpawn, 5)},
		&CancelEvent{BaseEvent: newBaseEvent(1.0, EventTypeCancel, 6)},
	)

	// WHEN they are drained
	var vins []int
	for ev := s.events.PopNext(); ev != nil; ev = s.events.PopNext() {
		vins = append(vins, ev.(interface{ base() *BaseEvent }).base().VIN)
	}

	// THEN releases precede requests at equal times, and ties keep schedule order
	assert.Equal(t, []int{4, 3, 6, 2, 5, 1}, vins)
}

func TestEventHeap_EmptyPeekAndPop(t *testing.T) {
	h := NewEventHeap()
	assert.Nil(t, h.Peek())
	assert.Nil(t, h.PopNext())
}

func TestSimulator_Schedule_AssignsIncreasingIDs(t *testing.T) {
	s := &Simulator{events: NewEventHeap()}
	a := &SpawnEvent{BaseEvent: newBaseEvent(2, EventTypeSpawn, 1)}
	b := &SpawnEvent{BaseEvent: newBaseEvent(1, EventTypeSpawn, 2)}
	scheduleAll(s, a, b)
	assert.Equal(t, uint64(1), a.EventID())
	assert.Equal(t, uint64(2), b.EventID())
	assert.Same(t, b, s.events.Peek())
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "done", EventTypeDone.String())
	assert.Equal(t, "retry", EventTypeRetry.String())
	assert.Equal(t, "EventType(42)", EventType(42).String())
}
