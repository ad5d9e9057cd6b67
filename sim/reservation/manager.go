// Package reservation implements the reservation grid manager: it turns a
// traversal query into a conflict-free set of space-time cells by simulating
// a disposable test vehicle across the tiled intersection.
package reservation

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/intersection-sim/intersection-sim/sim/geom"
	"github.com/intersection-sim/intersection-sim/sim/grid"
	"github.com/intersection-sim/intersection-sim/sim/layout"
	"github.com/intersection-sim/intersection-sim/sim/tiles"
	"github.com/intersection-sim/intersection-sim/sim/vehicle"
)

// exitMargin enlarges the area bound a test vehicle must leave, in metres.
const exitMargin = 0.1

// Query describes one candidate traversal.
type Query struct {
	VIN             int
	ArrivalTime     float64
	ArrivalVelocity float64
	ArrivalLaneID   int
	DepartureLaneID int
	Spec            vehicle.Spec
	MaxTurnVelocity float64
	Accelerating    bool
}

// Plan is the outcome of a successful query. It is consumed once by Accept.
type Plan struct {
	VIN                 int
	ExitTime            float64
	ExitVelocity        float64
	WorkingList         []grid.TimeTile
	AccelerationProfile []AccelSegment
}

// Manager owns the tiled area and the reservation grid of one intersection.
// Not thread-safe.
type Manager struct {
	config       Config
	layout       *layout.Intersection
	tiles        *tiles.TiledArea
	grid         *grid.ReservationGrid
	exitBound    orb.Bound
	internalBuf  int64
	edgeBuf      int64
	reservations map[int]struct{}
}

// NewManager builds the tiled area and an empty grid for the intersection.
// Panics on an invalid config.
func NewManager(cfg Config, in *layout.Intersection) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("reservation.NewManager: %v", err))
	}
	ta := tiles.NewTiledArea(in.Area(), cfg.Granularity)
	m := &Manager{
		config:       cfg,
		layout:       in,
		tiles:        ta,
		grid:         grid.NewReservationGrid(ta.NumTiles(), cfg.GridTimeStep),
		exitBound:    ta.Bound().Pad(exitMargin),
		internalBuf:  bufferSteps(cfg.InternalTileTimeBufferSize, cfg.GridTimeStep),
		edgeBuf:      bufferSteps(cfg.EdgeTileTimeBufferSize, cfg.GridTimeStep),
		reservations: make(map[int]struct{}),
	}
	if !cfg.IsEdgeTileTimeBufferEnabled {
		m.edgeBuf = m.internalBuf
	}
	// keep every cell a query can still look back at
	m.grid.SetRetention(max(m.internalBuf, m.edgeBuf) + 1)
	return m
}

// Query simulates the traversal and returns a Plan when every cell it needs
// is free. Query never mutates the grid.
func (m *Manager) Query(q Query) (*Plan, bool) {
	path, ok := m.layout.Path(q.ArrivalLaneID, q.DepartureLaneID)
	if !ok {
		logrus.Debugf("query vin=%d: no path from lane %d to lane %d", q.VIN, q.ArrivalLaneID, q.DepartureLaneID)
		return nil, false
	}
	ceiling := math.Min(q.MaxTurnVelocity, q.Spec.MaxVelocity)
	if dep := m.layout.Lane(q.DepartureLaneID); dep != nil {
		ceiling = math.Min(ceiling, dep.SpeedLimit)
	}
	moving := q.ArrivalVelocity > 0 ||
		(q.Accelerating && q.Spec.MaxAcceleration > 0 && ceiling > 0)
	if !moving {
		return nil, false
	}

	tv := vehicle.NewTestVehicle(q.Spec, path, q.ArrivalVelocity, ceiling, q.Accelerating, m.config.StaticBufferSize)
	dt := m.config.GridTimeStep
	seen := make(map[grid.TimeTile]struct{})
	var working []grid.TimeTile

	step := 0
	for {
		if step > m.config.MaxTraversalSteps {
			logrus.Debugf("query vin=%d: traversal exceeded %d steps", q.VIN, m.config.MaxTraversalSteps)
			return nil, false
		}
		t := q.ArrivalTime + float64(step)*dt
		footprint := tv.Footprint()
		if step > 0 && !geom.RingIntersectsBound(footprint, m.exitBound) {
			break
		}
		d := m.grid.TimeIndex(t)
		for _, tile := range m.tiles.FindOccupiedTiles(footprint) {
			buf := m.internalBuf
			if tile.Edge {
				buf = m.edgeBuf
			}
			for k := d - buf; k <= d+buf; k++ {
				tt := grid.TimeTile{Time: k, TileID: tile.ID}
				if owner, held := m.grid.ReservedBy(tt.Time, tt.TileID); held && owner != q.VIN {
					logrus.Debugf("query vin=%d: cell %v held by vin %d", q.VIN, tt, owner)
					return nil, false
				}
				if _, dup := seen[tt]; !dup {
					seen[tt] = struct{}{}
					working = append(working, tt)
				}
			}
		}
		tv.Advance(dt)
		step++
	}

	exitTime := q.ArrivalTime + float64(step)*dt
	plan := &Plan{
		VIN:          q.VIN,
		ExitTime:     exitTime,
		ExitVelocity: tv.Velocity(),
		WorkingList:  working,
		AccelerationProfile: CalcAccelerationProfile(q.ArrivalTime, q.ArrivalVelocity, tv.Ceiling(),
			q.Spec.MaxAcceleration, exitTime, q.Accelerating),
	}
	logrus.Debugf("query vin=%d: ok, %d cells, exit at %.3f v=%.2f", q.VIN, len(working), exitTime, plan.ExitVelocity)
	return plan, true
}

// Accept commits a plan and returns its reservation id (the plan's VIN).
// Panics if the VIN already holds a reservation or any cell was taken since
// the query.
func (m *Manager) Accept(plan *Plan) int {
	if _, held := m.reservations[plan.VIN]; held {
		panic(fmt.Sprintf("Manager.Accept: vin %d already holds a reservation", plan.VIN))
	}
	if !m.grid.Reserve(plan.VIN, plan.WorkingList) {
		panic(fmt.Sprintf("Manager.Accept: plan for vin %d conflicts with the grid", plan.VIN))
	}
	m.reservations[plan.VIN] = struct{}{}
	return plan.VIN
}

// Cancel releases every cell of a reservation.
// Panics if the reservation does not exist.
func (m *Manager) Cancel(reservationID int) {
	if _, held := m.reservations[reservationID]; !held {
		panic(fmt.Sprintf("Manager.Cancel: no reservation %d", reservationID))
	}
	delete(m.reservations, reservationID)
	m.grid.Cancel(reservationID)
}

// IsReserved reports whether a reservation with this id is active.
func (m *Manager) IsReserved(reservationID int) bool {
	_, held := m.reservations[reservationID]
	return held
}

// CleanUp purges grid entries the current time has left behind.
func (m *Manager) CleanUp(currentTime float64) int { return m.grid.CleanUp(currentTime) }

func (m *Manager) Grid() *grid.ReservationGrid  { return m.grid }
func (m *Manager) TiledArea() *tiles.TiledArea  { return m.tiles }
func (m *Manager) Layout() *layout.Intersection { return m.layout }
func (m *Manager) Config() Config               { return m.config }

// BufferSteps returns the internal and edge tile time buffers in grid steps.
func (m *Manager) BufferSteps() (internal, edge int64) { return m.internalBuf, m.edgeBuf }
