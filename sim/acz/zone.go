// Package acz implements admission control zones: length-capacity bins on
// the exit lanes just past the intersection.
package acz

import "fmt"

// MinGap is the inter-vehicle gap added to every admitted length, in metres.
const MinGap = 0.5

// Zone gates one exit lane by total reserved length.
// currentSize always equals the sum of the values in reservations. Not thread-safe.
type Zone struct {
	capacity     float64
	currentSize  float64
	reservations map[int]float64 // VIN -> reserved length (including MinGap)
}

// NewZone creates an empty zone. Panics on a negative capacity.
func NewZone(capacity float64) *Zone {
	if capacity < 0 {
		panic(fmt.Sprintf("NewZone: capacity must be >= 0, got %v", capacity))
	}
	return &Zone{capacity: capacity, reservations: make(map[int]float64)}
}

// IsAdmissible reports whether vin could be admitted with the given length
// and stopping distance.
func (z *Zone) IsAdmissible(vin int, length, stoppingDistance float64) bool {
	if _, held := z.reservations[vin]; held {
		return false
	}
	return z.currentSize+length+stoppingDistance <= z.capacity
}

// Admit reserves length + MinGap for vin.
// Panics if vin is not admissible.
func (z *Zone) Admit(vin int, length, stoppingDistance float64) {
	if _, held := z.reservations[vin]; held {
		panic(fmt.Sprintf("Zone.Admit: vin %d already holds a reservation", vin))
	}
	if !z.IsAdmissible(vin, length, stoppingDistance) {
		panic(fmt.Sprintf("Zone.Admit: vin %d not admissible (size=%v length=%v stop=%v capacity=%v)",
			vin, z.currentSize, length, stoppingDistance, z.capacity))
	}
	reserved := length + MinGap
	z.reservations[vin] = reserved
	z.currentSize += reserved
}

// Cancel releases an admission that was never used.
// Panics if vin holds nothing.
func (z *Zone) Cancel(vin int) { z.release(vin, "Cancel") }

// Away releases an admission after vin has left the zone.
// Panics if vin holds nothing.
func (z *Zone) Away(vin int) { z.release(vin, "Away") }

func (z *Zone) release(vin int, op string) {
	reserved, held := z.reservations[vin]
	if !held {
		panic(fmt.Sprintf("Zone.%s: vin %d holds no reservation", op, vin))
	}
	delete(z.reservations, vin)
	z.currentSize -= reserved
	if len(z.reservations) == 0 {
		// reset accumulated float drift
		z.currentSize = 0
	}
}

// IsReserved reports whether vin holds an admission.
func (z *Zone) IsReserved(vin int) bool {
	_, held := z.reservations[vin]
	return held
}

// CurrentSize returns the total reserved length.
func (z *Zone) CurrentSize() float64 { return z.currentSize }

// Capacity returns the zone capacity.
func (z *Zone) Capacity() float64 { return z.capacity }

// Len returns the number of admitted vehicles.
func (z *Zone) Len() int { return len(z.reservations) }
