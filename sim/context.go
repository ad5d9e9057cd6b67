package sim

import "github.com/intersection-sim/intersection-sim/sim/layout"

// Context is the shared simulation state handed to engine components in
// place of globals: the clock and the intersection being managed.
type Context struct {
	Time         float64 // seconds
	Step         int64
	Intersection *layout.Intersection
}

// Now returns the current simulated time.
func (c *Context) Now() float64 { return c.Time }
