// Package geometry provides the vector, rotation and scalar helpers shared by the
// flight-control components.
//
// Frame convention: +X right, +Y up, +Z forward. Altitude is world Y.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World axes.
var (
	Right   = mgl64.Vec3{1, 0, 0}
	Up      = mgl64.Vec3{0, 1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
)

const epsilon = 1e-9

// NewVec3 creates a new 3D vector with the given components
func NewVec3(x, y, z float64) mgl64.Vec3 {
	return mgl64.Vec3{x, y, z}
}

// Normalize returns a unit vector in the same direction, or the zero vector when v
// is too short to have a direction.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Angle returns the unsigned angle between a and b in degrees, in [0, 180].
// A zero-length argument yields 0.
func Angle(a, b mgl64.Vec3) float64 {
	denom := a.Len() * b.Len()
	if denom < epsilon {
		return 0
	}
	cos := Clamp(a.Dot(b)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}
