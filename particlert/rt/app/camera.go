package app

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// OrbitCamera circles a target point. Yaw and pitch are in radians.
type OrbitCamera struct {
	Target     mgl32.Vec3
	Distance   float32
	Yaw        float32
	Pitch      float32
	Speed      float32 // auto-rotation, radians per second
	AutoRotate bool
	Near, Far  float32
}

func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Target:     mgl32.Vec3{0, 2, 0},
		Distance:   18,
		Pitch:      0.35,
		Speed:      0.2,
		AutoRotate: true,
		Near:       0.1,
		Far:        500,
	}
}

const maxPitch = 1.45

func (c *OrbitCamera) Update(dt float32) {
	if c.AutoRotate {
		c.Yaw += c.Speed * dt
	}
}

func (c *OrbitCamera) Orbit(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

func (c *OrbitCamera) Zoom(factor float32) {
	c.Distance = mgl32.Clamp(c.Distance*factor, 1, c.Far*0.5)
}

func (c *OrbitCamera) Eye() mgl32.Vec3 {
	cp := math32.Cos(c.Pitch)
	return c.Target.Add(mgl32.Vec3{
		c.Distance * cp * math32.Sin(c.Yaw),
		c.Distance * math32.Sin(c.Pitch),
		c.Distance * cp * math32.Cos(c.Yaw),
	})
}

// View builds the scene view for a viewport of the given aspect ratio.
func (c *OrbitCamera) View(fovDeg, aspect, lodFactor float32) *core.SceneView {
	if aspect <= 0 {
		aspect = 1
	}
	v := core.LookAtView(c.Eye(), c.Target, core.AxisY, fovDeg, aspect, c.Near, c.Far)
	if lodFactor > 0 {
		v.LODDistanceFactor = lodFactor
	}
	return v
}
