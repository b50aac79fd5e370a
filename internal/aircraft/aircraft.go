// Package aircraft holds the state the control core shares with the external flight
// dynamics model. Pose and kinematics are written by that model; the control core
// writes the stall flag and the yaw/pitch/roll/throttle inputs.
package aircraft

import (
	"flight-control/internal/geometry"

	"github.com/go-gl/mathgl/mgl64"
)

// Kinematics is the read-only motion state reported by the flight dynamics model.
type Kinematics struct {
	LocalVelocity mgl64.Vec3 // body frame, Z forward
	LocalGForce   mgl64.Vec3
	AngleOfAttack float64 // degrees
	Velocity      mgl64.Vec3
}

// StallCommand is the fixed control set applied while stalled.
type StallCommand struct {
	Yaw   float64 `mapstructure:"yaw"`
	Pitch float64 `mapstructure:"pitch"`
	Roll  float64 `mapstructure:"roll"`
}

type Aircraft struct {
	Transform geometry.Transform
	Kinematics

	Throttle         float64
	AirBrakeDeployed bool
	FlapsDeployed    bool

	// Written by the stall detector.
	IsInStall bool

	// Final control inputs in [-1, 1].
	Yaw   float64
	Pitch float64
	Roll  float64

	Stall StallCommand
}

// New returns a level aircraft at pos.
func New(pos mgl64.Vec3, stall StallCommand) *Aircraft {
	return &Aircraft{
		Transform: geometry.NewTransform(pos),
		Stall:     stall,
	}
}

// Pose returns the aircraft transform.
func (a *Aircraft) Pose() geometry.Transform { return a.Transform }

// Speed is the world-space velocity magnitude.
func (a *Aircraft) Speed() float64 { return a.Velocity.Len() }

// Altitude is the world Y coordinate.
func (a *Aircraft) Altitude() float64 { return a.Transform.Position.Y() }

// Update replaces pose and kinematics with a fresh reading from the dynamics model.
func (a *Aircraft) Update(pose geometry.Transform, kin Kinematics) {
	a.Transform = pose
	a.Kinematics = kin
}
