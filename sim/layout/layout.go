// Package layout describes the intersection a reservation engine manages:
// its area, the approach and exit lanes, and the path a vehicle follows
// from an arrival lane to a departure lane.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/intersection-sim/intersection-sim/sim/geom"
)

// Heading is the compass direction of travel on a lane.
type Heading int

const (
	North Heading = iota
	East
	South
	West
)

var headingNames = [...]string{"north", "east", "south", "west"}

func (h Heading) String() string { return headingNames[h] }

// Angle returns the heading in radians counter-clockwise from +x.
func (h Heading) Angle() float64 {
	switch h {
	case North:
		return math.Pi / 2
	case East:
		return 0
	case South:
		return -math.Pi / 2
	default:
		return math.Pi
	}
}

// Turn classifies the manoeuvre between two headings.
type Turn string

const (
	TurnStraight Turn = "straight"
	TurnLeft     Turn = "left"
	TurnRight    Turn = "right"
	TurnU        Turn = "u-turn"
)

// TurnBetween returns the turn from one heading to another.
func TurnBetween(from, to Heading) Turn {
	switch (int(to) - int(from) + 4) % 4 {
	case 0:
		return TurnStraight
	case 1:
		return TurnRight
	case 3:
		return TurnLeft
	default:
		return TurnU
	}
}

// Lane is a directed lane touching the intersection boundary. For an
// incoming lane Point is where it enters the area; for an outgoing lane it
// is where it leaves.
type Lane struct {
	ID         int
	Heading    Heading
	Index      int // 0 = rightmost lane of its road
	Incoming   bool
	Point      orb.Point
	SpeedLimit float64 // m/s
}

func (l *Lane) String() string {
	dir := "out"
	if l.Incoming {
		dir = "in"
	}
	return fmt.Sprintf("Lane(%d %s-%s #%d)", l.ID, l.Heading, dir, l.Index)
}

// Intersection is a read-only description of one managed intersection.
type Intersection struct {
	area  orb.Ring
	lanes map[int]*Lane
	paths map[[2]int]*geom.Path
}

// Area returns the intersection boundary ring.
func (in *Intersection) Area() orb.Ring { return in.area }

// Lane returns the lane with the given id, or nil.
func (in *Intersection) Lane(id int) *Lane { return in.lanes[id] }

// IncomingLanes returns the approach lanes ordered by id.
func (in *Intersection) IncomingLanes() []*Lane { return in.filter(true) }

// OutgoingLanes returns the exit lanes ordered by id.
func (in *Intersection) OutgoingLanes() []*Lane { return in.filter(false) }

func (in *Intersection) filter(incoming bool) []*Lane {
	var out []*Lane
	for _, l := range in.lanes {
		if l.Incoming == incoming {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Path returns the traversal path from an arrival lane to a departure lane.
func (in *Intersection) Path(arrivalLaneID, departureLaneID int) (*geom.Path, bool) {
	p, ok := in.paths[[2]int{arrivalLaneID, departureLaneID}]
	return p, ok
}

// DepartureLanes returns the exit lanes reachable from an arrival lane.
func (in *Intersection) DepartureLanes(arrivalLaneID int) []*Lane {
	var out []*Lane
	for _, l := range in.OutgoingLanes() {
		if _, ok := in.paths[[2]int{arrivalLaneID, l.ID}]; ok {
			out = append(out, l)
		}
	}
	return out
}
