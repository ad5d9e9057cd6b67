package trace

// DecisionRecord captures one reply of the intersection manager.
type DecisionRecord struct {
	Time            float64 // simulated time the reply was sent
	VIN             int
	RequestID       int
	Confirmed       bool
	Reason          string  // reject reason; empty for confirms
	ArrivalLaneID   int
	DepartureLaneID int
	ArrivalTime     float64 // granted arrival time; zero for rejects
	Delay           float64 // granted arrival minus the vehicle's first desired arrival
}

// ZoneRecord samples the occupancy of one admission control zone.
type ZoneRecord struct {
	Time        float64
	LaneID      int
	CurrentSize float64
	Capacity    float64
}
