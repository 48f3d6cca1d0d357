// Package demo feeds the viewer with synthetic particle systems. Each Module installs
// its systems into a scene; noise fields come from OpenSimplex so runs are repeatable
// for a given seed.
package demo

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
)

// Modules returns the demo modules enabled by cfg, in a fixed order.
func Modules(cfg config.DemoConfig) []particles.Module {
	var mods []particles.Module
	if cfg.Sprites > 0 {
		mods = append(mods, Fountains{Particles: cfg.Sprites, Seed: cfg.Seed})
	}
	if cfg.SubUV > 0 {
		mods = append(mods, Smoke{Particles: cfg.SubUV, Seed: cfg.Seed + 1})
	}
	if cfg.Meshes > 0 {
		mods = append(mods, Debris{Particles: cfg.Meshes, Seed: cfg.Seed + 2})
	}
	if cfg.Beams > 0 {
		mods = append(mods, Arcs{Beams: cfg.Beams, Seed: cfg.Seed + 3})
	}
	if cfg.Trails > 0 {
		mods = append(mods, Ribbons{Trails: cfg.Trails, Length: cfg.TrailLength, Seed: cfg.Seed + 4})
	}
	return mods
}

// ring places n anchors evenly on a circle of radius r in the XZ plane.
func ring(n int, r float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, n)
	for i := range out {
		a := 2 * math32.Pi * float32(i) / float32(max(n, 1))
		out[i] = mgl32.Vec3{r * math32.Cos(a), 0, r * math32.Sin(a)}
	}
	return out
}

// split divides total into parts chunks as evenly as possible, dropping empty chunks.
func split(total, parts int) []int {
	if parts <= 0 || total <= 0 {
		return nil
	}
	parts = min(parts, total)
	out := make([]int, parts)
	for i := range out {
		out[i] = total / parts
		if i < total%parts {
			out[i]++
		}
	}
	return out
}

// drift wraps a simulator and pushes live particles through a 3D noise field after each
// step.
type drift struct {
	inner    particles.Simulator
	noise    opensimplex.Noise32
	strength float32
	scale    float32
}

func newDrift(inner particles.Simulator, seed int64, strength float32) *drift {
	return &drift{inner: inner, noise: opensimplex.New32(seed), strength: strength, scale: 0.35}
}

func (d *drift) Simulate(e *particles.EmitterInstance, dt float32) {
	d.inner.Simulate(e, dt)
	if d.strength == 0 {
		return
	}
	st := e.Storage
	t := e.Time * 0.5
	for i := 0; i < st.Active; i++ {
		rec := st.Record(i)
		p := core.ReadParticle(rec)
		q := p.Location.Mul(d.scale)
		push := mgl32.Vec3{
			d.noise.Eval3(q.Y(), q.Z(), t),
			d.noise.Eval3(q.Z()+31, q.X(), t),
			d.noise.Eval3(q.X(), q.Y()+57, t),
		}
		p.Location = p.Location.Add(push.Mul(d.strength * dt))
		core.WriteParticle(rec, &p)
	}
}
