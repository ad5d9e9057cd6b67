package reservation

import "fmt"

// AccelSegment is one piece of an acceleration schedule: hold Acceleration
// for Duration seconds.
type AccelSegment struct {
	Acceleration float64
	Duration     float64
}

// CalcAccelerationProfile derives the schedule a vehicle follows between
// arrivalTime and exitTime. Accelerating vehicles get a single
// constant-acceleration segment, followed by a constant-speed segment when
// maxVelocity is reached before exit. Everything else is one constant-speed
// segment. Durations sum to exitTime - arrivalTime.
// Panics on a non-positive traversal time.
func CalcAccelerationProfile(arrivalTime, arrivalVelocity, maxVelocity, maxAcceleration, exitTime float64, accelerating bool) []AccelSegment {
	traversal := exitTime - arrivalTime
	if traversal <= 0 {
		panic(fmt.Sprintf("CalcAccelerationProfile: non-positive traversal time %v (arrival=%v exit=%v)",
			traversal, arrivalTime, exitTime))
	}
	if !accelerating || maxAcceleration <= 0 || arrivalVelocity >= maxVelocity {
		return []AccelSegment{{Acceleration: 0, Duration: traversal}}
	}
	reach := (maxVelocity - arrivalVelocity) / maxAcceleration
	if reach >= traversal {
		return []AccelSegment{{Acceleration: maxAcceleration, Duration: traversal}}
	}
	return []AccelSegment{
		{Acceleration: maxAcceleration, Duration: reach},
		{Acceleration: 0, Duration: traversal - reach},
	}
}
