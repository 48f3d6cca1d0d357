package demo

import (
	"github.com/go-gl/mathgl/mgl32"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/core"
)

// Debris installs tumbling box particles drawn through the instanced mesh path.
type Debris struct {
	Particles int
	Seed      int64
}

func (m Debris) Install(s *particles.Scene) error {
	mat := core.NewMaterial("debris", core.BlendOpaque, core.LightingLit)
	mat.BaseColor = mgl32.Vec4{0.55, 0.7, 0.9, 1}
	mat.InstancedMeshParticles = true
	box := core.NewBoxMesh("debris box", mgl32.Vec3{0.5, 0.25, 0.35}, mat)

	sp := particles.NewSprayer(uint64(m.Seed))
	sp.SpawnRate = float32(m.Particles) / 3 * 0.9
	sp.LifetimeRange = [2]float32{2, 3}
	sp.StartSpeedRange = [2]float32{5, 7}
	sp.StartSizeRange = [2]float32{0.3, 0.6}
	sp.Gravity = 6
	sp.ConeAngleDegrees = 35
	sp.RotationRateRange = [2]float32{-3, 3}

	l := particles.NewRecordLayout()
	src := core.NewMeshSource(box)
	src.MeshRotation = particles.AddSlot[core.MeshRotationPayload](l)

	e, err := particles.NewEmitterInstance("debris", src, l.Stride(), m.Particles, sp)
	if err != nil {
		return err
	}
	c := particles.NewParticleSystemComponent(e)
	c.LocalToWorld = mgl32.Translate3D(0, 0, -9)
	c.CastShadow = true
	_, err = s.Register(c)
	return err
}
