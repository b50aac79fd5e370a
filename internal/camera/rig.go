// Package camera implements the follow-camera rig that trails the aim direction and
// the viewport projection used to decide whether a world point is on screen.
package camera

import (
	"flight-control/internal/geometry"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// verticalLimit is the |forward.y| above which the rig stops leveling to the horizon
// and uses its own up vector instead.
const verticalLimit = 0.9

// Aim is the part of the aim tracker the rig re-aligns during control-mode swaps.
type Aim interface {
	Realign(target mgl64.Quat, rate, dt float64)
	Forward() mgl64.Vec3
}

type Config struct {
	// TrackingRate damps the rig toward the aim direction.
	TrackingRate float64
	// SwapRate damps the aim toward the aircraft on a control-mode swap.
	SwapRate float64
	// Offset places the camera relative to the rig origin.
	Offset geometry.Transform
}

// Rig is the camera mount. Its origin snaps to the aircraft, its orientation is damped.
type Rig struct {
	transform geometry.Transform
	cfg       Config
}

func NewRig(cfg Config) *Rig {
	if cfg.Offset.Rotation == (mgl64.Quat{}) {
		cfg.Offset.Rotation = mgl64.QuatIdent()
	}
	return &Rig{
		transform: geometry.NewTransform(mgl64.Vec3{}),
		cfg:       cfg,
	}
}

// FollowPosition moves the rig origin to p without damping.
func (r *Rig) FollowPosition(p mgl64.Vec3) {
	r.transform.Position = p
}

// RotateToward damps the rig orientation toward dir at the tracking rate.
func (r *Rig) RotateToward(dir mgl64.Vec3, dt float64) {
	r.rotateToward(dir, r.cfg.TrackingRate, dt)
}

func (r *Rig) rotateToward(dir mgl64.Vec3, rate, dt float64) {
	up := geometry.Up
	if math.Abs(geometry.Normalize(dir).Y()) > verticalLimit {
		up = r.transform.Up()
	}
	target := geometry.LookRotation(dir, up)
	r.transform.Rotation = geometry.Damp(r.transform.Rotation, target, rate, dt)
}

// ForceAlign pulls the aim toward the aircraft orientation at the swap rate. With
// forceCamera the rig also turns toward the new aim direction in the same step.
func (r *Rig) ForceAlign(aim Aim, aircraft mgl64.Quat, dt float64, forceCamera bool) {
	if aim == nil {
		return
	}
	aim.Realign(aircraft, r.cfg.SwapRate, dt)
	if forceCamera {
		r.RotateToward(aim.Forward(), dt)
	}
}

// Transform is the rig's own pose.
func (r *Rig) Transform() geometry.Transform { return r.transform }

// Camera is the world pose of the camera mounted on the rig.
func (r *Rig) Camera() geometry.Transform {
	return geometry.Transform{
		Position: r.transform.TransformPoint(r.cfg.Offset.Position),
		Rotation: r.transform.Rotation.Mul(r.cfg.Offset.Rotation).Normalize(),
	}
}

// Reset places the rig at t without damping.
func (r *Rig) Reset(t geometry.Transform) {
	r.transform = t
}
