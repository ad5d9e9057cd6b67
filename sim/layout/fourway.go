package layout

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/intersection-sim/intersection-sim/sim/geom"
)

// FourWayConfig sizes a square four-way intersection with right-hand traffic.
type FourWayConfig struct {
	LanesPerDirection int     `yaml:"lanes_per_direction"`
	LaneWidth         float64 `yaml:"lane_width"`  // metres
	SpeedLimit        float64 `yaml:"speed_limit"` // m/s
	TurnSegments      int     `yaml:"turn_segments"`
}

// DefaultFourWayConfig is one lane each way, 3.2m lanes, 25 m/s.
func DefaultFourWayConfig() FourWayConfig {
	return FourWayConfig{LanesPerDirection: 1, LaneWidth: 3.2, SpeedLimit: 25.0, TurnSegments: 8}
}

// Validate checks the configuration.
func (c FourWayConfig) Validate() error {
	switch {
	case c.LanesPerDirection < 1:
		return fmt.Errorf("lanes_per_direction must be >= 1, got %d", c.LanesPerDirection)
	case c.LaneWidth <= 0:
		return fmt.Errorf("lane_width must be > 0, got %v", c.LaneWidth)
	case c.SpeedLimit <= 0:
		return fmt.Errorf("speed_limit must be > 0, got %v", c.SpeedLimit)
	case c.TurnSegments < 2:
		return fmt.Errorf("turn_segments must be >= 2, got %d", c.TurnSegments)
	}
	return nil
}

// NewFourWay builds a square intersection centred on the origin. Lane ids
// are assigned per heading (north, east, south, west), incoming lanes first
// then outgoing, rightmost lane first. Every incoming lane connects to every
// outgoing lane except its own U-turn; a lane keeps straight only into the
// lane with the same index, and turns only leave from the outermost lanes on
// their side of the road (rightmost for right turns, leftmost for left).
// Panics on an invalid configuration.
func NewFourWay(cfg FourWayConfig) *Intersection {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("NewFourWay: %v", err))
	}
	n := cfg.LanesPerDirection
	h := float64(n) * cfg.LaneWidth
	in := &Intersection{
		area: orb.Bound{Min: orb.Point{-h, -h}, Max: orb.Point{h, h}}.ToRing(),
		lanes: make(map[int]*Lane),
		paths: make(map[[2]int]*geom.Path),
	}
	id := 0
	for _, incoming := range []bool{true, false} {
		for hd := North; hd <= West; hd++ {
			for i := 0; i < n; i++ {
				in.lanes[id] = &Lane{
					ID:         id,
					Heading:    hd,
					Index:      i,
					Incoming:   incoming,
					Point:      boundaryPoint(hd, i, cfg.LaneWidth, h, incoming),
					SpeedLimit: cfg.SpeedLimit,
				}
				id++
			}
		}
	}
	for _, a := range in.IncomingLanes() {
		for _, d := range in.OutgoingLanes() {
			if !connects(a, d, n) {
				continue
			}
			in.paths[[2]int{a.ID, d.ID}] = geom.NewPath(traversal(a, d, cfg.TurnSegments))
		}
	}
	return in
}

// boundaryPoint is where lane i of a road with heading hd crosses the area
// boundary. Lane offsets are measured to the right of the direction of travel.
func boundaryPoint(hd Heading, i int, w, h float64, incoming bool) orb.Point {
	off := (float64(i) + 0.5) * w
	edge := h
	if incoming {
		edge = -h
	}
	switch hd {
	case North:
		return orb.Point{off, edge}
	case South:
		return orb.Point{-off, -edge}
	case East:
		return orb.Point{edge, -off}
	default:
		return orb.Point{-edge, off}
	}
}

func connects(a, d *Lane, n int) bool {
	switch TurnBetween(a.Heading, d.Heading) {
	case TurnStraight:
		return a.Index == d.Index
	case TurnRight:
		return a.Index == 0 && d.Index == 0
	case TurnLeft:
		return a.Index == n-1 && d.Index == n-1
	default:
		return false
	}
}

// traversal is a straight segment for through movements and a sampled
// quadratic Bezier for turns, with its control point where the two lane
// centre lines cross.
func traversal(a, d *Lane, segments int) orb.LineString {
	if TurnBetween(a.Heading, d.Heading) == TurnStraight {
		return orb.LineString{a.Point, d.Point}
	}
	c := crossing(a.Point, a.Heading.Angle(), d.Point, d.Heading.Angle())
	line := make(orb.LineString, 0, segments+1)
	for k := 0; k <= segments; k++ {
		t := float64(k) / float64(segments)
		u := 1 - t
		line = append(line, orb.Point{
			u*u*a.Point[0] + 2*u*t*c[0] + t*t*d.Point[0],
			u*u*a.Point[1] + 2*u*t*c[1] + t*t*d.Point[1],
		})
	}
	return line
}

// crossing intersects two perpendicular lines given by point and angle.
func crossing(p orb.Point, pa float64, q orb.Point, qa float64) orb.Point {
	dx1, dy1 := math.Cos(pa), math.Sin(pa)
	dx2, dy2 := math.Cos(qa), math.Sin(qa)
	den := dx1*dy2 - dy1*dx2
	t := ((q[0]-p[0])*dy2 - (q[1]-p[1])*dx2) / den
	return orb.Point{p[0] + t*dx1, p[1] + t*dy1}
}
