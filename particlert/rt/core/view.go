package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneView is the camera a frame is rendered from. Right-handed, camera looks down -Z
// in view space.
type SceneView struct {
	ViewOrigin        mgl32.Vec3
	ViewMatrix        mgl32.Mat4
	ProjectionMatrix  mgl32.Mat4
	ViewProjection    mgl32.Mat4
	InvViewMatrix     mgl32.Mat4
	LODDistanceFactor float32
	Frustum           [6]mgl32.Vec4
}

func NewSceneView(view, proj mgl32.Mat4) *SceneView {
	inv := view.Inv()
	v := &SceneView{
		ViewMatrix:        view,
		ProjectionMatrix:  proj,
		ViewProjection:    proj.Mul4(view),
		InvViewMatrix:     inv,
		ViewOrigin:        inv.Col(3).Vec3(),
		LODDistanceFactor: 1,
	}
	v.Frustum = ExtractFrustum(v.ViewProjection)
	return v
}

// LookAtView builds a perspective view from eye towards target.
func LookAtView(eye, target, up mgl32.Vec3, fovDeg, aspect, near, far float32) *SceneView {
	view := mgl32.LookAtV(eye, target, up)
	proj := mgl32.Perspective(mgl32.DegToRad(fovDeg), aspect, near, far)
	return NewSceneView(view, proj)
}

func (v *SceneView) CameraRight() mgl32.Vec3 { return v.InvViewMatrix.Col(0).Vec3() }
func (v *SceneView) CameraUp() mgl32.Vec3    { return v.InvViewMatrix.Col(1).Vec3() }

func (v *SceneView) CameraForward() mgl32.Vec3 {
	return v.InvViewMatrix.Col(2).Vec3().Mul(-1)
}

// ViewDepth is the clip-space W of p, the distance in front of the camera for
// perspective projections.
func (v *SceneView) ViewDepth(p mgl32.Vec3) float32 {
	return v.ViewProjection.Mul4x1(p.Vec4(1)).W()
}

// IntersectsSphere tests a bounding sphere against the frustum.
func (v *SceneView) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range v.Frustum {
		if p.X()*center.X()+p.Y()*center.Y()+p.Z()*center.Z()+p.W() < -radius {
			return false
		}
	}
	return true
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0, normalized, pointing inward.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	planes := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r3.Add(r2),
		r3.Sub(r2),
	}
	for i := range planes {
		l := math32.Sqrt(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])
		if l > 0 {
			planes[i] = planes[i].Mul(1 / l)
		}
	}
	return planes
}
