// Package tiles partitions an intersection area into a sparse grid of
// rectangular cells and answers which cells a shape overlaps.
package tiles

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/intersection-sim/intersection-sim/sim/geom"
)

// Tile is one rectangular cell of the tiled area. Immutable.
type Tile struct {
	ID   int
	X, Y int // column and row in the grid
	Rect orb.Bound
	Edge bool // on the grid border or next to an unpopulated slot
}

func (t *Tile) String() string {
	return fmt.Sprintf("Tile(%d @ %d,%d edge=%v)", t.ID, t.X, t.Y, t.Edge)
}

// TiledArea is the sparse tile grid covering an area's bounding box.
// Read-only after construction.
type TiledArea struct {
	area        orb.Ring
	bound       orb.Bound
	granularity float64
	xNum, yNum  int
	grid        [][]*Tile // grid[x][y], nil where the cell misses the area
	byID        []*Tile
}

// NewTiledArea tiles area with square cells of the given side length.
// Panics on a non-positive granularity or an empty area.
func NewTiledArea(area orb.Ring, granularity float64) *TiledArea {
	if granularity <= 0 {
		panic(fmt.Sprintf("NewTiledArea: granularity must be > 0, got %v", granularity))
	}
	if len(area) < 3 {
		panic("NewTiledArea: area ring needs at least 3 points")
	}
	b := area.Bound()
	ta := &TiledArea{
		area:        area,
		bound:       b,
		granularity: granularity,
		xNum:        cellCount(b.Max[0]-b.Min[0], granularity),
		yNum:        cellCount(b.Max[1]-b.Min[1], granularity),
	}
	ta.grid = make([][]*Tile, ta.xNum)
	for x := range ta.grid {
		ta.grid[x] = make([]*Tile, ta.yNum)
	}
	// Row-major id order keeps ids stable for a given area and granularity.
	for y := 0; y < ta.yNum; y++ {
		for x := 0; x < ta.xNum; x++ {
			rect := ta.cellRect(x, y)
			if !overlapsInterior(area, rect) {
				continue
			}
			t := &Tile{ID: len(ta.byID), X: x, Y: y, Rect: rect}
			ta.grid[x][y] = t
			ta.byID = append(ta.byID, t)
		}
	}
	ta.markEdgeTiles()
	return ta
}

// cellCount is ceil(extent/g), at least 1, tolerant of float noise on
// exactly divisible extents.
func cellCount(extent, g float64) int {
	n := int(math.Ceil(extent/g - 1e-9))
	return max(n, 1)
}

// overlapsInterior drops cells that only touch the area along a boundary.
func overlapsInterior(area orb.Ring, rect orb.Bound) bool {
	shrunk := rect.Pad(-1e-9 * math.Max(1, rect.Max[0]-rect.Min[0]))
	return geom.RingIntersectsBound(area, shrunk)
}

func (ta *TiledArea) cellRect(x, y int) orb.Bound {
	minX := ta.bound.Min[0] + float64(x)*ta.granularity
	minY := ta.bound.Min[1] + float64(y)*ta.granularity
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{minX + ta.granularity, minY + ta.granularity},
	}
}

var neighbours = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func (ta *TiledArea) markEdgeTiles() {
	for _, t := range ta.byID {
		if t.X == 0 || t.Y == 0 || t.X == ta.xNum-1 || t.Y == ta.yNum-1 {
			t.Edge = true
			continue
		}
		t.Edge = lo.SomeBy(neighbours[:], func(d [2]int) bool {
			return ta.grid[t.X+d[0]][t.Y+d[1]] == nil
		})
	}
}

// FindOccupiedTiles returns the tiles the shape overlaps, in row-major order.
// Only the columns and rows under the shape's bounding box are tested.
func (ta *TiledArea) FindOccupiedTiles(shape orb.Ring) []*Tile {
	if len(shape) == 0 {
		return nil
	}
	sb := shape.Bound()
	if !sb.Intersects(ta.bound) {
		return nil
	}
	minX := ta.clampX(int(math.Floor((sb.Min[0] - ta.bound.Min[0]) / ta.granularity)))
	maxX := ta.clampX(int(math.Floor((sb.Max[0] - ta.bound.Min[0]) / ta.granularity)))
	minY := ta.clampY(int(math.Floor((sb.Min[1] - ta.bound.Min[1]) / ta.granularity)))
	maxY := ta.clampY(int(math.Floor((sb.Max[1] - ta.bound.Min[1]) / ta.granularity)))

	var out []*Tile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			t := ta.grid[x][y]
			if t != nil && geom.RingIntersectsBound(shape, t.Rect) {
				out = append(out, t)
			}
		}
	}
	return out
}

func (ta *TiledArea) clampX(x int) int { return min(max(x, 0), ta.xNum-1) }
func (ta *TiledArea) clampY(y int) int { return min(max(y, 0), ta.yNum-1) }

// Tile returns the tile at column x, row y, or nil if out of range or unpopulated.
func (ta *TiledArea) Tile(x, y int) *Tile {
	if x < 0 || y < 0 || x >= ta.xNum || y >= ta.yNum {
		return nil
	}
	return ta.grid[x][y]
}

// TileByID returns the tile with the given id, or nil.
func (ta *TiledArea) TileByID(id int) *Tile {
	if id < 0 || id >= len(ta.byID) {
		return nil
	}
	return ta.byID[id]
}

// Tiles returns every populated tile ordered by id. Callers MUST NOT modify it.
func (ta *TiledArea) Tiles() []*Tile { return ta.byID }

func (ta *TiledArea) NumTiles() int        { return len(ta.byID) }
func (ta *TiledArea) XNum() int            { return ta.xNum }
func (ta *TiledArea) YNum() int            { return ta.yNum }
func (ta *TiledArea) Granularity() float64 { return ta.granularity }
func (ta *TiledArea) Area() orb.Ring       { return ta.area }
func (ta *TiledArea) Bound() orb.Bound     { return ta.bound }
