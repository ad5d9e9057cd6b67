package acz

import (
	"fmt"
	"sort"
)

// Manager holds one Zone per gated exit lane. Lanes without a zone are
// always admissible.
type Manager struct {
	zones map[int]*Zone // departure lane id -> zone
	held  map[int]int   // VIN -> lane id of its admission
}

// NewManager creates a zone with the given capacity for each lane id.
func NewManager(capacity float64, laneIDs []int) *Manager {
	m := &Manager{zones: make(map[int]*Zone, len(laneIDs)), held: make(map[int]int)}
	for _, id := range laneIDs {
		m.zones[id] = NewZone(capacity)
	}
	return m
}

// Zone returns the zone on a lane, or nil.
func (m *Manager) Zone(laneID int) *Zone { return m.zones[laneID] }

// LaneIDs returns the gated lanes in ascending order.
func (m *Manager) LaneIDs() []int {
	ids := make([]int, 0, len(m.zones))
	for id := range m.zones {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsAdmissible checks the zone on laneID. A vin still holding an admission
// on any lane is never admissible.
func (m *Manager) IsAdmissible(laneID, vin int, length, stoppingDistance float64) bool {
	if m.IsHeld(vin) {
		return false
	}
	z := m.zones[laneID]
	if z == nil {
		return true
	}
	return z.IsAdmissible(vin, length, stoppingDistance)
}

// Admit admits vin onto laneID's zone, if any.
// Panics if vin already holds an admission anywhere.
func (m *Manager) Admit(laneID, vin int, length, stoppingDistance float64) {
	if lane, ok := m.held[vin]; ok {
		panic(fmt.Sprintf("acz.Manager.Admit: vin %d already admitted on lane %d", vin, lane))
	}
	if z := m.zones[laneID]; z != nil {
		z.Admit(vin, length, stoppingDistance)
	}
	m.held[vin] = laneID
}

// Cancel releases vin's unused admission. Panics if vin holds nothing.
func (m *Manager) Cancel(vin int) {
	lane := m.take(vin, "Cancel")
	if z := m.zones[lane]; z != nil {
		z.Cancel(vin)
	}
}

// Away releases vin's admission after it left the zone. Panics if vin holds nothing.
func (m *Manager) Away(vin int) {
	lane := m.take(vin, "Away")
	if z := m.zones[lane]; z != nil {
		z.Away(vin)
	}
}

func (m *Manager) take(vin int, op string) int {
	lane, ok := m.held[vin]
	if !ok {
		panic(fmt.Sprintf("acz.Manager.%s: vin %d holds no admission", op, vin))
	}
	delete(m.held, vin)
	return lane
}

// IsHeld reports whether vin holds an admission.
func (m *Manager) IsHeld(vin int) bool {
	_, ok := m.held[vin]
	return ok
}
