// Package autopilot converts an aim point into proportional yaw, pitch and roll
// commands.
package autopilot

import (
	"flight-control/internal/geometry"

	"github.com/go-gl/mathgl/mgl64"
)

// Law is the proportional steering law. It has no state.
type Law struct {
	// Sensitivity scales the normalized local target direction before clamping.
	Sensitivity float64
	// AggressiveTurnAngle is the angle off target, in degrees, at which roll is fully
	// banked into the target instead of holding wings level.
	AggressiveTurnAngle float64
}

// Output holds yaw, pitch and roll commands in [-1, 1].
type Output struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// Compute steers owner toward target.
//
// Yaw and pitch drive the target's local X and Y to zero. Roll blends from wings level
// (zeroing right.y) when on target to banking into the target once the angle off target
// reaches AggressiveTurnAngle.
//
// The law is proportional only and can overshoot. A target directly behind the
// aircraft produces near-zero yaw and pitch even though a large correction is needed.
func (l Law) Compute(owner geometry.Transform, target mgl64.Vec3) Output {
	local := geometry.Normalize(owner.InverseTransformPoint(target)).Mul(l.Sensitivity)
	angleOffTarget := geometry.Angle(owner.Forward(), target.Sub(owner.Position))

	yaw := geometry.Clamp(local.X(), -1, 1)
	pitch := geometry.Clamp(-local.Y(), -1, 1)

	aggressiveRoll := geometry.Clamp(local.X(), -1, 1)
	wingsLevelRoll := owner.Right().Y()

	blend := geometry.InverseLerp(0, l.AggressiveTurnAngle, angleOffTarget)
	roll := geometry.Lerp(wingsLevelRoll, aggressiveRoll, blend)

	return Output{Yaw: yaw, Pitch: pitch, Roll: roll}
}

// Axis returns the command for axis index 0 (yaw), 1 (pitch) or 2 (roll).
func (o Output) Axis(i int) float64 {
	switch i {
	case 0:
		return o.Yaw
	case 1:
		return o.Pitch
	default:
		return o.Roll
	}
}
