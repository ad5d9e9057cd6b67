package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Path is a polyline parametrised by arc length. Positions before the start
// or past the end extrapolate along the first or last segment, so a vehicle
// can be placed partly outside the polyline.
type Path struct {
	line orb.LineString
	cum  []float64 // cumulative arc length at each vertex
}

// NewPath builds a Path from at least two distinct points.
// Panics on degenerate input.
func NewPath(line orb.LineString) *Path {
	if len(line) < 2 {
		panic(fmt.Sprintf("NewPath: need at least 2 points, got %d", len(line)))
	}
	cum := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		seg := planar.Distance(line[i-1], line[i])
		if seg == 0 {
			panic(fmt.Sprintf("NewPath: zero-length segment at index %d", i))
		}
		cum[i] = cum[i-1] + seg
	}
	return &Path{line: line, cum: cum}
}

// Length returns the total arc length.
func (p *Path) Length() float64 { return p.cum[len(p.cum)-1] }

// Start returns the first point.
func (p *Path) Start() orb.Point { return p.line[0] }

// End returns the last point.
func (p *Path) End() orb.Point { return p.line[len(p.line)-1] }

// LineString returns the underlying polyline.
func (p *Path) LineString() orb.LineString { return p.line }

func (p *Path) segment(s float64) int {
	for i := 1; i < len(p.cum)-1; i++ {
		if s < p.cum[i] {
			return i - 1
		}
	}
	return len(p.cum) - 2
}

// PointAt returns the point at arc length s.
func (p *Path) PointAt(s float64) orb.Point {
	i := p.segment(s)
	a, b := p.line[i], p.line[i+1]
	f := (s - p.cum[i]) / (p.cum[i+1] - p.cum[i])
	return orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f}
}

// HeadingAt returns the direction of travel at arc length s in radians.
func (p *Path) HeadingAt(s float64) float64 {
	i := p.segment(s)
	a, b := p.line[i], p.line[i+1]
	return math.Atan2(b[1]-a[1], b[0]-a[0])
}
