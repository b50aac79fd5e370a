package camera

import (
	"flight-control/internal/geometry"

	"github.com/go-gl/mathgl/mgl64"
)

// Viewport describes a perspective lens.
type Viewport struct {
	FieldOfView float64 // vertical, degrees
	Aspect      float64
	Near        float64
	Far         float64
}

// Projection is the OpenGL-style projection matrix for the lens.
func (v Viewport) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(v.FieldOfView), v.Aspect, v.Near, v.Far)
}

// WorldToViewport projects p as seen from cam into normalized viewport coordinates.
// x and y are in [0, 1] across the visible frame; z is the distance along the camera
// forward axis and is <= 0 for points behind the camera.
func (v Viewport) WorldToViewport(cam geometry.Transform, p mgl64.Vec3) mgl64.Vec3 {
	local := cam.InverseTransformPoint(p)
	// local frame looks down +Z, the projection expects -Z
	clip := v.Projection().Mul4x1(mgl64.Vec4{local.X(), local.Y(), -local.Z(), 1})
	w := clip.W()
	if w == 0 {
		return mgl64.Vec3{0.5, 0.5, 0}
	}
	return mgl64.Vec3{
		(clip.X()/w + 1) / 2,
		(clip.Y()/w + 1) / 2,
		local.Z(),
	}
}
