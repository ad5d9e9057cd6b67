// Package geom holds the planar helpers shared by the tiled area, the
// intersection layout and the test vehicle. All shapes are orb types in a
// local metric frame (x east, y north, metres).
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// OrientedRect returns the closed ring of a rectangle whose front edge is
// centred on front and which extends length metres behind it along heading
// (radians, counter-clockwise from +x). pad grows every side by the same amount.
func OrientedRect(front orb.Point, heading, length, width, pad float64) orb.Ring {
	dx, dy := math.Cos(heading), math.Sin(heading)
	// left-hand normal
	nx, ny := -dy, dx
	half := width/2 + pad
	fx := front[0] + dx*pad
	fy := front[1] + dy*pad
	rx := front[0] - dx*(length+pad)
	ry := front[1] - dy*(length+pad)
	return orb.Ring{
		{fx + nx*half, fy + ny*half},
		{fx - nx*half, fy - ny*half},
		{rx - nx*half, ry - ny*half},
		{rx + nx*half, ry + ny*half},
		{fx + nx*half, fy + ny*half},
	}
}

// RingIntersectsBound reports whether the ring and the rectangle share at
// least one point. Touching boundaries count as intersecting.
func RingIntersectsBound(r orb.Ring, b orb.Bound) bool {
	if len(r) == 0 || !r.Bound().Intersects(b) {
		return false
	}
	for _, p := range r {
		if b.Contains(p) {
			return true
		}
	}
	corners := boundCorners(b)
	for _, c := range corners {
		if planar.RingContains(r, c) {
			return true
		}
	}
	for i := 0; i < len(r)-1; i++ {
		for j := 0; j < 4; j++ {
			if SegmentsIntersect(r[i], r[i+1], corners[j], corners[(j+1)%4]) {
				return true
			}
		}
	}
	return false
}

func boundCorners(b orb.Bound) [4]orb.Point {
	return [4]orb.Point{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
	}
}

// SegmentsIntersect reports whether segment p1p2 and segment q1q2 intersect,
// including collinear overlap and shared endpoints.
func SegmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
