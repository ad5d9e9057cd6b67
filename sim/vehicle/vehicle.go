// Package vehicle defines the kinematic adapter the reservation engine
// drives, and the disposable test vehicle used inside traversal queries.
package vehicle

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/intersection-sim/intersection-sim/sim/geom"
)

// Spec is the kinematic envelope of a vehicle.
type Spec struct {
	Length          float64 `yaml:"length"`           // metres
	Width           float64 `yaml:"width"`            // metres
	MaxAcceleration float64 `yaml:"max_acceleration"` // m/s^2
	MaxDeceleration float64 `yaml:"max_deceleration"` // m/s^2, positive
	MaxVelocity     float64 `yaml:"max_velocity"`     // m/s
}

// DefaultSpec is a mid-size passenger car.
func DefaultSpec() Spec {
	return Spec{Length: 4.8, Width: 1.8, MaxAcceleration: 3.0, MaxDeceleration: 4.5, MaxVelocity: 25.0}
}

// Validate checks that every dimension is positive.
func (s Spec) Validate() error {
	switch {
	case s.Length <= 0:
		return fmt.Errorf("vehicle length must be > 0, got %v", s.Length)
	case s.Width <= 0:
		return fmt.Errorf("vehicle width must be > 0, got %v", s.Width)
	case s.MaxAcceleration < 0:
		return fmt.Errorf("vehicle max acceleration must be >= 0, got %v", s.MaxAcceleration)
	case s.MaxDeceleration <= 0:
		return fmt.Errorf("vehicle max deceleration must be > 0, got %v", s.MaxDeceleration)
	case s.MaxVelocity <= 0:
		return fmt.Errorf("vehicle max velocity must be > 0, got %v", s.MaxVelocity)
	}
	return nil
}

// StoppingDistance is the distance needed to stop from velocity v at MaxDeceleration.
func (s Spec) StoppingDistance(v float64) float64 {
	return v * v / (2 * s.MaxDeceleration)
}

// Kinematics is what the reservation engine needs from a simulated vehicle.
type Kinematics interface {
	Advance(dt float64)
	Position() orb.Point // front centre
	Heading() float64
	Velocity() float64
	Footprint() orb.Ring
	MaxAcceleration() float64
	MaxVelocity() float64
}

// TestVehicle follows a fixed path, either accelerating at the Spec's
// maximum rate up to a velocity ceiling or coasting at constant velocity.
type TestVehicle struct {
	spec         Spec
	path         *geom.Path
	s            float64 // arc length of the front along path
	velocity     float64
	ceiling      float64
	accelerating bool
	buffer       float64 // static footprint padding
}

// NewTestVehicle places the vehicle's front at the start of path.
// ceiling caps velocity when accelerating; it is clamped to the Spec's MaxVelocity.
func NewTestVehicle(spec Spec, path *geom.Path, velocity, ceiling float64, accelerating bool, buffer float64) *TestVehicle {
	return &TestVehicle{
		spec:         spec,
		path:         path,
		velocity:     velocity,
		ceiling:      math.Min(ceiling, spec.MaxVelocity),
		accelerating: accelerating,
		buffer:       buffer,
	}
}

// Advance moves the vehicle forward by dt seconds. Reaching the ceiling
// mid-step is integrated exactly.
func (v *TestVehicle) Advance(dt float64) {
	a := v.spec.MaxAcceleration
	if !v.accelerating || a == 0 || v.velocity >= v.ceiling {
		v.s += v.velocity * dt
		return
	}
	tReach := (v.ceiling - v.velocity) / a
	if tReach >= dt {
		v.s += v.velocity*dt + 0.5*a*dt*dt
		v.velocity += a * dt
		return
	}
	v.s += v.velocity*tReach + 0.5*a*tReach*tReach + v.ceiling*(dt-tReach)
	v.velocity = v.ceiling
}

func (v *TestVehicle) Position() orb.Point      { return v.path.PointAt(v.s) }
func (v *TestVehicle) Heading() float64         { return v.path.HeadingAt(v.s) }
func (v *TestVehicle) Velocity() float64        { return v.velocity }
func (v *TestVehicle) Distance() float64        { return v.s }
func (v *TestVehicle) MaxAcceleration() float64 { return v.spec.MaxAcceleration }
func (v *TestVehicle) MaxVelocity() float64     { return v.spec.MaxVelocity }
func (v *TestVehicle) Ceiling() float64         { return v.ceiling }

// Footprint is the vehicle rectangle padded by the static buffer.
func (v *TestVehicle) Footprint() orb.Ring {
	return geom.OrientedRect(v.Position(), v.Heading(), v.spec.Length, v.spec.Width, v.buffer)
}
