package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestOrientedRect_EastHeading_CoversBehindFront(t *testing.T) {
	// GIVEN a 4m x 2m vehicle whose front is at (10, 5) heading east
	r := OrientedRect(orb.Point{10, 5}, 0, 4, 2, 0)

	// THEN the ring spans x in [6, 10] and y in [4, 6]
	b := r.Bound()
	assert.InDelta(t, 6.0, b.Min[0], 1e-9)
	assert.InDelta(t, 10.0, b.Max[0], 1e-9)
	assert.InDelta(t, 4.0, b.Min[1], 1e-9)
	assert.InDelta(t, 6.0, b.Max[1], 1e-9)
	assert.Equal(t, r[0], r[len(r)-1], "ring must be closed")
}

func TestOrientedRect_PadGrowsEverySide(t *testing.T) {
	r := OrientedRect(orb.Point{0, 0}, math.Pi/2, 4, 2, 0.5)
	b := r.Bound()
	assert.InDelta(t, -1.5, b.Min[0], 1e-9)
	assert.InDelta(t, 1.5, b.Max[0], 1e-9)
	assert.InDelta(t, -4.5, b.Min[1], 1e-9)
	assert.InDelta(t, 0.5, b.Max[1], 1e-9)
}

func TestRingIntersectsBound(t *testing.T) {
	cell := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	tests := []struct {
		name string
		ring orb.Ring
		want bool
	}{
		{"disjoint", orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{3, 3}}.ToRing(), false},
		{"vertex inside", orb.Bound{Min: orb.Point{0.5, 0.5}, Max: orb.Point{3, 3}}.ToRing(), true},
		{"ring encloses cell", orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{2, 2}}.ToRing(), true},
		{"edges cross without contained vertices", orb.Ring{{-1, 0.4}, {2, 0.4}, {2, 0.6}, {-1, 0.6}, {-1, 0.4}}, true},
		{"diagonal diamond misses corner", orb.Ring{{1.2, 1.5}, {1.5, 1.2}, {2, 2}, {1.2, 1.5}}, false},
		{"touching edge", orb.Bound{Min: orb.Point{1, 0}, Max: orb.Point{2, 1}}.ToRing(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RingIntersectsBound(tt.ring, cell))
		})
	}
}

func TestPath_PointAtAndHeading(t *testing.T) {
	// GIVEN an L-shaped polyline: east 10m then north 10m
	p := NewPath(orb.LineString{{0, 0}, {10, 0}, {10, 10}})

	assert.InDelta(t, 20.0, p.Length(), 1e-9)
	assertPoint(t, orb.Point{5, 0}, p.PointAt(5))
	assertPoint(t, orb.Point{10, 5}, p.PointAt(15))
	assert.InDelta(t, 0.0, p.HeadingAt(5), 1e-9)
	assert.InDelta(t, math.Pi/2, p.HeadingAt(15), 1e-9)

	// extrapolation at both ends
	assertPoint(t, orb.Point{-3, 0}, p.PointAt(-3))
	assertPoint(t, orb.Point{10, 14}, p.PointAt(24))
}

func assertPoint(t *testing.T, want, got orb.Point) {
	t.Helper()
	assert.InDelta(t, want[0], got[0], 1e-9, "x")
	assert.InDelta(t, want[1], got[1], 1e-9, "y")
}

func TestNewPath_Degenerate_Panics(t *testing.T) {
	assert.Panics(t, func() { NewPath(orb.LineString{{0, 0}}) })
	assert.Panics(t, func() { NewPath(orb.LineString{{0, 0}, {0, 0}}) })
}
