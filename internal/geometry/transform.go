package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid pose: a position and an orientation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform returns an unrotated transform at pos.
func NewTransform(pos mgl64.Vec3) Transform {
	return Transform{Position: pos, Rotation: mgl64.QuatIdent()}
}

func (t Transform) Forward() mgl64.Vec3 { return t.Rotation.Rotate(Forward) }
func (t Transform) Right() mgl64.Vec3   { return t.Rotation.Rotate(Right) }
func (t Transform) Up() mgl64.Vec3      { return t.Rotation.Rotate(Up) }

// InverseTransformPoint expresses the world point p in this transform's local frame.
func (t Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Inverse().Rotate(p.Sub(t.Position))
}

// TransformPoint maps the local point p into world space.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(p))
}

// RotateWorld rotates the transform by deg degrees about a world-space axis.
func (t *Transform) RotateWorld(axis mgl64.Vec3, deg float64) {
	axis = Normalize(axis)
	if axis == (mgl64.Vec3{}) || deg == 0 {
		return
	}
	q := mgl64.QuatRotate(mgl64.DegToRad(deg), axis)
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// SetForward orients the transform so that it faces dir with world up as the up hint.
func (t *Transform) SetForward(dir mgl64.Vec3) {
	t.Rotation = LookRotation(dir, Up)
}

// LookRotation builds the rotation whose forward axis is dir and whose up axis is as
// close to up as possible. A zero dir yields the identity; an up parallel to dir is
// replaced by a perpendicular fallback.
func LookRotation(dir, up mgl64.Vec3) mgl64.Quat {
	f := Normalize(dir)
	if f == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	r := Normalize(up.Cross(f))
	if r == (mgl64.Vec3{}) {
		alt := Forward
		if math.Abs(f.Z()) > 0.9 {
			alt = Right
		}
		r = Normalize(alt.Cross(f))
	}
	u := f.Cross(r)

	m := mgl64.Mat4FromCols(r.Vec4(0), u.Vec4(0), f.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize()
}

// DampFactor is the interpolation fraction for exponential smoothing at rate lambda
// over dt seconds. Applying it n times over dt/n converges identically to once over dt.
func DampFactor(lambda, dt float64) float64 {
	return 1 - math.Exp(-lambda*dt)
}

// Damp moves a toward b along the shortest arc by DampFactor(lambda, dt).
func Damp(a, b mgl64.Quat, lambda, dt float64) mgl64.Quat {
	t := DampFactor(lambda, dt)
	if t <= 0 {
		return a
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if t >= 1 {
		return b.Normalize()
	}
	return slerp(a.Normalize(), b.Normalize(), t)
}

// slerp interpolates unit quaternions along the great arc. Unlike mgl64.QuatSlerp it
// only falls back to nlerp for near-identical inputs, so small damping steps compose.
func slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	omega := 2 * math.Atan2(b.Sub(a).Len(), b.Add(a).Len())
	s := math.Sin(omega)
	if s < epsilon {
		return mgl64.QuatNlerp(a, b, t)
	}
	wa := math.Sin((1-t)*omega) / s
	wb := math.Sin(t*omega) / s
	return a.Scale(wa).Add(b.Scale(wb)).Normalize()
}
