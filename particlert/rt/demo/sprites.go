package demo

import (
	"github.com/go-gl/mathgl/mgl32"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/core"
)

const fountainLifetime = 2.5

// Fountains installs additive sprite fountains on a ring, sharing Particles between them.
type Fountains struct {
	Particles int
	Seed      int64
}

func (m Fountains) Install(s *particles.Scene) error {
	mat := core.NewMaterial("fountain", core.BlendAdditive, core.LightingUnlit)
	mat.BaseColor = mgl32.Vec4{1, 0.8, 0.5, 1}
	sizes := split(m.Particles, 3)
	anchors := ring(len(sizes), 6)

	for i, n := range sizes {
		sp := particles.NewSprayer(uint64(m.Seed) + uint64(i))
		sp.SpawnRate = float32(n) / fountainLifetime * 0.9
		sp.LifetimeRange = [2]float32{fountainLifetime * 0.6, fountainLifetime}
		sp.StartSpeedRange = [2]float32{4, 6}
		sp.StartSizeRange = [2]float32{0.08, 0.2}
		sp.StartColorMin = mgl32.Vec4{1, 0.4, 0.1, 1}
		sp.StartColorMax = mgl32.Vec4{1, 0.9, 0.4, 1}
		sp.Gravity = 4
		sp.Drag = 0.2
		sp.ConeAngleDegrees = 18
		sp.FadeOut = true
		sp.LODSpawnScale = []float32{1, 0.5, 0.25}

		l := particles.NewRecordLayout()
		src := core.NewSpriteSource(mat)
		src.ScreenAlignment = core.AlignVelocity
		src.DynamicParameter = particles.AddSlot[core.DynamicParameterPayload](l)

		e, err := particles.NewEmitterInstance("fountain", src, l.Stride(), n, newDrift(sp, m.Seed+int64(i), 1.5))
		if err != nil {
			return err
		}
		c := particles.NewParticleSystemComponent(e)
		c.LocalToWorld = mgl32.Translate3D(anchors[i].Elem())
		c.LODDistances = []float32{30, 60}
		if _, err := s.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Smoke installs one translucent flipbook column sorted back to front.
type Smoke struct {
	Particles int
	Seed      int64
}

func (m Smoke) Install(s *particles.Scene) error {
	mat := core.NewMaterial("smoke", core.BlendTranslucent, core.LightingUnlit)
	mat.BaseColor = mgl32.Vec4{0.6, 0.6, 0.65, 0.5}

	sp := particles.NewSprayer(uint64(m.Seed))
	sp.SpawnRate = float32(m.Particles) / 4 * 0.9
	sp.LifetimeRange = [2]float32{3, 4}
	sp.StartSpeedRange = [2]float32{0.8, 1.6}
	sp.StartSizeRange = [2]float32{0.4, 0.9}
	sp.StartColorMin = mgl32.Vec4{0.5, 0.5, 0.5, 0.6}
	sp.StartColorMax = mgl32.Vec4{0.8, 0.8, 0.8, 0.9}
	sp.Gravity = -0.3
	sp.ConeAngleDegrees = 25
	sp.RotationRateRange = [2]float32{-0.6, 0.6}
	sp.FadeOut = true

	l := particles.NewRecordLayout()
	src := core.NewSubUVSource(mat, 4, 4)
	src.Interpolation = core.SubUVLinearBlend
	src.SortMode = core.SortDistanceToView
	src.SubUV = particles.AddSlot[core.SubUVPayload](l)

	e, err := particles.NewEmitterInstance("smoke", src, l.Stride(), m.Particles, newDrift(sp, m.Seed, 0.8))
	if err != nil {
		return err
	}
	c := particles.NewParticleSystemComponent(e)
	_, err = s.Register(c)
	return err
}
