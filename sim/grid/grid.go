// Package grid implements the sparse space-time reservation table.
package grid

import (
	"fmt"
	"math"
)

// NoReservation is returned by LastReservedTime on an empty grid.
const NoReservation int64 = -1

// timeEpsilon absorbs float noise so that a time exactly divisible by the
// step lands on its own step rather than the one before.
const timeEpsilon = 1e-9

// TimeTile identifies one space-time cell.
type TimeTile struct {
	Time   int64 // discrete time index
	TileID int
}

func (tt TimeTile) String() string {
	return fmt.Sprintf("(%d,%d)", tt.Time, tt.TileID)
}

// TimeIndex maps continuous time to its discrete step: floor(t / step).
func TimeIndex(t, step float64) int64 {
	return int64(math.Floor(t/step + timeEpsilon))
}

// Phase returns the offset of t inside its discrete step.
func Phase(t, step float64) float64 {
	p := t - float64(TimeIndex(t, step))*step
	if p < 0 {
		return 0
	}
	return p
}

// ReservationGrid maps TimeTiles to the VIN holding them.
// At most one VIN owns a TimeTile. Not thread-safe.
type ReservationGrid struct {
	numTiles int
	timeStep float64
	cells    map[TimeTile]int
	byVIN    map[int][]TimeTile
	// retention is how many steps behind the cleanup time entries survive.
	retention int64
}

// NewReservationGrid creates a grid over numTiles tiles with the given time step.
// Panics on a non-positive time step.
func NewReservationGrid(numTiles int, timeStep float64) *ReservationGrid {
	if timeStep <= 0 {
		panic(fmt.Sprintf("NewReservationGrid: timeStep must be > 0, got %v", timeStep))
	}
	return &ReservationGrid{
		numTiles:  numTiles,
		timeStep:  timeStep,
		cells:     make(map[TimeTile]int),
		byVIN:     make(map[int][]TimeTile),
		retention: 1,
	}
}

// SetRetention sets how many steps before the cleanup time survive CleanUp.
// It must cover the widest time buffer a query applies behind its own step.
func (g *ReservationGrid) SetRetention(steps int64) {
	if steps < 0 {
		panic(fmt.Sprintf("ReservationGrid.SetRetention: steps must be >= 0, got %d", steps))
	}
	g.retention = steps
}

// TimeStep returns the grid's discrete time step in seconds.
func (g *ReservationGrid) TimeStep() float64 { return g.timeStep }

// NumTiles returns the number of tiles the grid covers.
func (g *ReservationGrid) NumTiles() int { return g.numTiles }

// TimeIndex converts continuous time using the grid's step.
func (g *ReservationGrid) TimeIndex(t float64) int64 { return TimeIndex(t, g.timeStep) }

// IsReserved reports whether the cell is held by anyone.
func (g *ReservationGrid) IsReserved(t int64, tileID int) bool {
	_, ok := g.cells[TimeTile{Time: t, TileID: tileID}]
	return ok
}

// ReservedBy returns the VIN holding the cell.
func (g *ReservationGrid) ReservedBy(t int64, tileID int) (int, bool) {
	vin, ok := g.cells[TimeTile{Time: t, TileID: tileID}]
	return vin, ok
}

// Reserve assigns all cells to vin. Nothing is written if any cell is held
// by another VIN. Cells already held by vin are kept.
func (g *ReservationGrid) Reserve(vin int, cells []TimeTile) bool {
	for _, c := range cells {
		if owner, ok := g.cells[c]; ok && owner != vin {
			return false
		}
	}
	for _, c := range cells {
		if _, ok := g.cells[c]; ok {
			continue
		}
		g.cells[c] = vin
		g.byVIN[vin] = append(g.byVIN[vin], c)
	}
	return true
}

// Cancel releases every cell held by vin.
func (g *ReservationGrid) Cancel(vin int) {
	for _, c := range g.byVIN[vin] {
		if owner, ok := g.cells[c]; ok && owner == vin {
			delete(g.cells, c)
		}
	}
	delete(g.byVIN, vin)
}

// HasReservation reports whether vin holds any cell.
func (g *ReservationGrid) HasReservation(vin int) bool {
	_, ok := g.byVIN[vin]
	return ok
}

// CleanUp drops entries older than the retention horizon behind currentTime.
// Queries never look at steps before the current one, so results are unchanged.
func (g *ReservationGrid) CleanUp(currentTime float64) int {
	horizon := g.TimeIndex(currentTime) - g.retention
	removed := 0
	for vin, held := range g.byVIN {
		kept := held[:0]
		for _, c := range held {
			if c.Time < horizon {
				delete(g.cells, c)
				removed++
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(g.byVIN, vin)
		} else {
			g.byVIN[vin] = kept
		}
	}
	return removed
}

// LastReservedTime returns the latest discrete time with a reservation,
// or NoReservation.
func (g *ReservationGrid) LastReservedTime() int64 {
	last := NoReservation
	for c := range g.cells {
		if c.Time > last {
			last = c.Time
		}
	}
	return last
}

// Len returns the number of reserved cells.
func (g *ReservationGrid) Len() int { return len(g.cells) }

// Snapshot returns a copy of the reservation table.
func (g *ReservationGrid) Snapshot() map[TimeTile]int {
	out := make(map[TimeTile]int, len(g.cells))
	for k, v := range g.cells {
		out[k] = v
	}
	return out
}
