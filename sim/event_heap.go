package sim

import "container/heap"

// EventHeap is the simulator's pending-event queue. Events pop in
// (timestamp, EventTypePriority, event id) order, so runs with the same
// seed replay identically.
type EventHeap struct {
	events []Event
}

func NewEventHeap() *EventHeap {
	return &EventHeap{events: make([]Event, 0, 64)}
}

func (h *EventHeap) Len() int { return len(h.events) }

func (h *EventHeap) Less(i, j int) bool {
	a, b := h.events[i], h.events[j]
	if ta, tb := a.Timestamp(), b.Timestamp(); ta != tb {
		return ta < tb
	}
	if pa, pb := EventTypePriority[a.Type()], EventTypePriority[b.Type()]; pa != pb {
		return pa < pb
	}
	return a.EventID() < b.EventID()
}

func (h *EventHeap) Swap(i, j int) { h.events[i], h.events[j] = h.events[j], h.events[i] }

func (h *EventHeap) Push(x any) { h.events = append(h.events, x.(Event)) }

func (h *EventHeap) Pop() any {
	n := len(h.events) - 1
	ev := h.events[n]
	h.events[n] = nil
	h.events = h.events[:n]
	return ev
}

// Schedule queues e.
func (h *EventHeap) Schedule(e Event) { heap.Push(h, e) }

// PopNext removes and returns the earliest event, or nil.
func (h *EventHeap) PopNext() Event {
	if len(h.events) == 0 {
		return nil
	}
	return heap.Pop(h).(Event)
}

// Peek returns the earliest event without removing it, or nil.
func (h *EventHeap) Peek() Event {
	if len(h.events) == 0 {
		return nil
	}
	return h.events[0]
}
