// Package sim drives an intersection reservation engine with a discrete-time
// traffic simulation.
//
// # Reading Guide
//
// Start with these files to understand the simulation loop:
//   - config.go: EngineConfig and its grouped sub-configs
//   - bundle.go: YAML scenario files layered over the defaults
//   - event.go: events that move vehicles through their lifecycle (spawn, retry, cancel, done, away)
//   - simulator.go: the fixed-step loop, message delivery and metrics
//
// # Architecture
//
// The engine itself lives in sub-packages, leaf first:
//   - sim/geom/: planar helpers over paulmach/orb
//   - sim/tiles/: the tiled area of an intersection
//   - sim/grid/: the space-time reservation grid
//   - sim/acz/: admission control zones on exit lanes
//   - sim/reservation/: traversal queries against the grid
//   - sim/batch/: batched resolution of reservation proposals
//   - sim/im/: the intersection manager tying the above together
//   - sim/layout/, sim/vehicle/: intersection maps and vehicle kinematics
//   - sim/workload/: vehicle stream generation
//   - sim/trace/: decision trace recording and SQLite export
//
// Every step the simulator executes due events, lets the intersection
// manager act, then delivers its replies. All mutation happens on one
// goroutine.
package sim
