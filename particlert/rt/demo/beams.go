package demo

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"
)

const arcNoisePoints = 8

// Arcs installs noisy lightning beams from a ring of anchors to a point above its centre.
type Arcs struct {
	Beams int
	Seed  int64
}

func (m Arcs) Install(s *particles.Scene) error {
	mat := core.NewMaterial("arc", core.BlendAdditive, core.LightingUnlit)
	mat.BaseColor = mgl32.Vec4{0.5, 0.7, 1, 1}

	l := particles.NewRecordLayout()
	src := core.NewBeamSource(mat)
	src.Beam = particles.AddSlot[core.BeamPayload](l)
	src.TargetNoisePoints = particles.AddArraySlot[mgl32.Vec3](l, arcNoisePoints+1)
	src.NextNoisePoints = particles.AddArraySlot[mgl32.Vec3](l, arcNoisePoints+1)
	src.NoiseDeltaTime = particles.AddSlot[float32](l)
	src.NoiseEnabled = true
	src.SmoothNoise = true
	src.TargetNoise = false
	src.NoiseTessellation = 4
	src.NoiseSpeed = 8
	src.NoiseLockRadius = 0.01
	src.NoiseTension = 0.2
	src.TaperMethod = core.TaperFull
	src.TaperFactor = 0.3
	src.Sheets = 2
	src.TextureTile = 1

	sim := &arcSim{
		anchors: ring(m.Beams, 10),
		target:  mgl32.Vec3{0, 7, 0},
		noise:   opensimplex.New32(m.Seed),
		src:     src,
	}
	e, err := particles.NewEmitterInstance("arcs", src, l.Stride(), m.Beams, sim)
	if err != nil {
		return err
	}
	c := particles.NewParticleSystemComponent(e)
	_, err = s.Register(c)
	return err
}

// arcSim keeps one immortal beam per anchor and re-rolls its noise targets every tick.
type arcSim struct {
	anchors []mgl32.Vec3
	target  mgl32.Vec3
	noise   opensimplex.Noise32
	src     *core.BeamSource
	spawned bool
}

func (a *arcSim) Simulate(e *particles.EmitterInstance, dt float32) {
	st := e.Storage
	if !a.spawned {
		for range a.anchors {
			if _, rec, ok := st.Spawn(); ok {
				core.WriteParticle(rec, &core.Particle{
					Size:     mgl32.Vec3{0.12, 0.12, 0.12},
					BaseSize: mgl32.Vec3{0.12, 0.12, 0.12},
					Color:    mgl32.Vec4{0.6, 0.8, 1, 1},
				})
			}
		}
		a.spawned = true
	}

	t := e.Time
	for i := 0; i < st.Active && i < len(a.anchors); i++ {
		rec := st.Record(i)
		from := core.TransformPosition(e.LocalToWorld, a.anchors[i])
		wobble := mgl32.Vec3{math32.Sin(t + float32(i)), 0, math32.Cos(t*0.7 + float32(i))}
		to := core.TransformPosition(e.LocalToWorld, a.target.Add(wobble))

		p := core.ReadParticle(rec)
		p.OldLocation = p.Location
		p.Location = from
		core.WriteParticle(rec, &p)

		a.src.Beam.Set(rec, core.BeamPayload{
			SourcePoint:           from,
			TargetPoint:           to,
			LockMaxNumNoisePoints: core.PackBeamLock(false, arcNoisePoints, arcNoisePoints),
		})
		amp := to.Sub(from).Len() * 0.06
		for k := 0; k <= arcNoisePoints; k++ {
			cur := a.src.TargetNoisePoints.At(rec, k)
			chased := emitter.ChaseNoise(a.src.NextNoisePoints.At(rec, k), cur, a.src.NoiseSpeed, dt, a.src.NoiseLockRadius)
			a.src.NextNoisePoints.SetAt(rec, k, chased)
			x, y := float32(k)*0.9, float32(i)*13.7
			a.src.TargetNoisePoints.SetAt(rec, k, mgl32.Vec3{
				a.noise.Eval3(x, y, t*3) * amp,
				a.noise.Eval3(x+17, y, t*3) * amp,
				a.noise.Eval3(x, y+29, t*3) * amp,
			})
		}
		a.src.NoiseDeltaTime.Set(rec, dt)
	}
}
