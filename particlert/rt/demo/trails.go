package demo

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/core"
)

// trailSpacing is the path time between consecutive trail knots.
const trailSpacing = 0.04

// Ribbons installs Trails ribbons of Length knots each, flying Lissajous paths.
type Ribbons struct {
	Trails int
	Length int
	Seed   int64
}

func (m Ribbons) Install(s *particles.Scene) error {
	length := max(m.Length, 1)
	total := m.Trails * length
	if total > core.TrailNullNext {
		return fmt.Errorf("ribbons: %d knots exceed the trail link range %d", total, core.TrailNullNext)
	}
	mat := core.NewMaterial("ribbon", core.BlendTranslucent, core.LightingUnlit)

	l := particles.NewRecordLayout()
	src := core.NewTrailSource(mat)
	src.Trail = particles.AddSlot[core.TrailPayload](l)
	src.TessellationFactor = 3
	src.TextureTile = 2

	sim := &ribbonSim{trails: m.Trails, length: length, noise: opensimplex.New32(m.Seed), src: src}
	e, err := particles.NewEmitterInstance("ribbons", src, l.Stride(), total, sim)
	if err != nil {
		return err
	}
	c := particles.NewParticleSystemComponent(e)
	_, err = s.Register(c)
	return err
}

// ribbonSim owns a fixed chain of records per trail, head first. Knot k samples the
// path k*trailSpacing seconds in the past.
type ribbonSim struct {
	trails, length int
	noise          opensimplex.Noise32
	src            *core.TrailSource
	chains         [][]int
}

func (r *ribbonSim) link(st *core.ParticleStorage) {
	r.chains = make([][]int, r.trails)
	for t := range r.chains {
		chain := make([]int, 0, r.length)
		for k := 0; k < r.length; k++ {
			idx, _, ok := st.Spawn()
			if !ok {
				break
			}
			chain = append(chain, idx)
		}
		r.chains[t] = chain
	}
	for _, chain := range r.chains {
		n := len(chain)
		for k, idx := range chain {
			prev, next := core.TrailNullPrev, core.TrailNullNext
			if k > 0 {
				prev = chain[k-1]
			}
			if k < n-1 {
				next = chain[k+1]
			}
			marker := core.TrailFlagMiddle
			switch {
			case n == 1:
				marker = core.TrailFlagOnly
			case k == 0:
				marker = core.TrailFlagStart
			case k == n-1:
				marker = core.TrailFlagEnd
			}
			r.src.Trail.Set(st.RecordAt(idx), core.TrailPayload{Flags: core.PackTrailFlags(marker, prev, next)})
		}
	}
}

// path is trail t's position at time s.
func (r *ribbonSim) path(t int, s float32) mgl32.Vec3 {
	ph := float32(t) * 2.1
	p := mgl32.Vec3{
		7 * math32.Sin(s*0.9+ph),
		4 + 2*math32.Sin(s*1.7+ph),
		7 * math32.Cos(s*1.3+ph),
	}
	n := r.noise.Eval2(s*0.5, float32(t)*11)
	return p.Add(mgl32.Vec3{0, n, 0})
}

func (r *ribbonSim) Simulate(e *particles.EmitterInstance, dt float32) {
	st := e.Storage
	if r.chains == nil {
		r.link(st)
	}
	for t, chain := range r.chains {
		n := float32(len(chain))
		for k, idx := range chain {
			s := e.Time - float32(k)*trailSpacing
			pos := core.TransformPosition(e.LocalToWorld, r.path(t, s))
			ahead := core.TransformPosition(e.LocalToWorld, r.path(t, s+trailSpacing))
			fade := 1 - float32(k)/n
			width := 0.05 + 0.25*fade

			rec := st.RecordAt(idx)
			p := core.ReadParticle(rec)
			p.OldLocation = p.Location
			p.Location = pos
			p.Size = mgl32.Vec3{width, width, width}
			p.Color = mgl32.Vec4{0.4 + 0.6*fade, 0.5, 1 - 0.5*fade, fade}
			core.WriteParticle(rec, &p)

			tp := r.src.Trail.Get(rec)
			tp.Tangent = ahead.Sub(pos)
			tp.SpawnTime = s
			r.src.Trail.Set(rec, tp)
		}
	}
}
