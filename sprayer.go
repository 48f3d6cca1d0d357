package particles

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// Sprayer is a CPU particle fountain: particles spawn at the emitter origin, fly along a
// cone and fall under gravity until their lifetime runs out.
type Sprayer struct {
	SpawnRate        float32    // particles per second
	LifetimeRange    [2]float32 // seconds (min,max)
	StartSpeedRange  [2]float32 // units/sec (min,max)
	StartSizeRange   [2]float32 // world units (min,max)
	StartColorMin    mgl32.Vec4
	StartColorMax    mgl32.Vec4
	Gravity          float32 // positive acceleration downward
	Drag             float32 // per-second linear drag
	ConeAngleDegrees float32 // 0 = along the emitter up axis
	Rotation         mgl32.Quat
	// RotationRateRange spins sprites and mesh particles, radians per second.
	RotationRateRange [2]float32
	// FadeOut scales alpha down over the particle lifetime.
	FadeOut bool
	// LODSpawnScale scales SpawnRate per LOD level; missing levels use 1.
	LODSpawnScale []float32

	rng      *rand.Rand
	spawnAcc float32
}

func NewSprayer(seed uint64) *Sprayer {
	return &Sprayer{
		LifetimeRange:   [2]float32{1, 2},
		StartSpeedRange: [2]float32{1, 2},
		StartSizeRange:  [2]float32{0.1, 0.2},
		StartColorMin:   mgl32.Vec4{1, 1, 1, 1},
		StartColorMax:   mgl32.Vec4{1, 1, 1, 1},
		Rotation:        mgl32.QuatIdent(),
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func (s *Sprayer) rand() float32 {
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(1, 2))
	}
	return s.rng.Float32()
}

// sampleDirection picks a direction uniformly inside a cone around the emitter up axis.
func (s *Sprayer) sampleDirection() mgl32.Vec3 {
	if s.ConeAngleDegrees <= 0 {
		return s.Rotation.Rotate(core.AxisY).Normalize()
	}
	thetaMax := math32.Pi * (s.ConeAngleDegrees / 180)
	cosTheta := lerp(math32.Cos(thetaMax), 1, s.rand())
	sinTheta := math32.Sqrt(1 - cosTheta*cosTheta)
	phi := 2 * math32.Pi * s.rand()
	local := mgl32.Vec3{math32.Cos(phi) * sinTheta, cosTheta, math32.Sin(phi) * sinTheta}
	return s.Rotation.Rotate(local).Normalize()
}

func (s *Sprayer) spawnScale(lod int) float32 {
	if lod >= 0 && lod < len(s.LODSpawnScale) {
		return s.LODSpawnScale[lod]
	}
	return 1
}

func (s *Sprayer) Simulate(e *EmitterInstance, dt float32) {
	st := e.Storage
	drag := math32.Max(0, 1-s.Drag*dt)

	for i := 0; i < st.Active; {
		rec := st.Record(i)
		p := core.ReadParticle(rec)
		p.RelativeTime += dt * p.OneOverMaxLifetime
		if p.RelativeTime >= 1 {
			st.Kill(i)
			continue
		}
		v := p.Velocity.Add(mgl32.Vec3{0, -s.Gravity * dt, 0}).Mul(drag)
		p.OldLocation = p.Location
		p.Location = p.Location.Add(v.Mul(dt))
		p.Velocity = v
		p.Rotation += p.RotationRate * dt
		if s.FadeOut {
			p.Color[3] = p.BaseColor[3] * (1 - p.RelativeTime)
		}
		core.WriteParticle(rec, &p)
		s.updateModules(e.Template, rec, &p, dt)
		i++
	}

	s.spawnAcc += s.SpawnRate * s.spawnScale(e.LOD) * dt
	n := int(s.spawnAcc)
	s.spawnAcc -= float32(n)
	for k := 0; k < n; k++ {
		_, rec, ok := st.Spawn()
		if !ok {
			s.spawnAcc = 0
			break
		}
		s.spawn(e, rec)
	}
}

func (s *Sprayer) spawn(e *EmitterInstance, rec []byte) {
	local := false
	if sb, ok := spriteSettings(e.Template); ok {
		local = sb.UseLocalSpace
	}
	origin := mgl32.Vec3{}
	dir := s.sampleDirection()
	if !local {
		origin = core.TransformPosition(e.LocalToWorld, origin)
		dir = core.TransformVector(e.LocalToWorld, dir).Normalize()
	}

	life := math32.Max(lerp(s.LifetimeRange[0], s.LifetimeRange[1], s.rand()), 1e-3)
	size := lerp(s.StartSizeRange[0], s.StartSizeRange[1], s.rand())
	var color mgl32.Vec4
	for j := 0; j < 4; j++ {
		color[j] = lerp(s.StartColorMin[j], s.StartColorMax[j], s.rand())
	}
	vel := dir.Mul(lerp(s.StartSpeedRange[0], s.StartSpeedRange[1], s.rand()))
	rate := lerp(s.RotationRateRange[0], s.RotationRateRange[1], s.rand())

	p := core.Particle{
		OldLocation:        origin,
		Location:           origin,
		OneOverMaxLifetime: 1 / life,
		BaseVelocity:       vel,
		Velocity:           vel,
		Rotation:           s.rand() * 2 * math32.Pi,
		BaseRotationRate:   rate,
		RotationRate:       rate,
		BaseSize:           mgl32.Vec3{size, size, size},
		Size:               mgl32.Vec3{size, size, size},
		Color:              color,
		BaseColor:          color,
	}
	core.WriteParticle(rec, &p)

	if m, ok := e.Template.(*core.MeshSource); ok && m.MeshRotation.Valid() {
		initial := mgl32.Vec3{s.rand() * 360, s.rand() * 360, s.rand() * 360}
		m.MeshRotation.Set(rec, core.MeshRotationPayload{
			InitialRotation: initial,
			Rotation:        initial,
			RotationRate:    mgl32.Vec3{rate, rate, rate}.Mul(180 / math32.Pi),
		})
	}
	s.updateModules(e.Template, rec, &p, 0)
}

// updateModules keeps the optional payloads of the template in step with the particle.
func (s *Sprayer) updateModules(template core.Source, rec []byte, p *core.Particle, dt float32) {
	switch t := template.(type) {
	case *core.SubUVSource:
		frames := float32(t.SubImagesHorizontal * t.SubImagesVertical)
		if t.SubUV.Valid() && frames > 0 {
			idx := p.RelativeTime * frames
			if !t.Interpolation.Blends() {
				idx = math32.Floor(idx)
			}
			t.SubUV.Set(rec, core.SubUVPayload{ImageIndex: math32.Min(idx, frames-1)})
		}
		s.updateSpriteModules(&t.SpriteSource, rec, p)
	case *core.MeshSource:
		if t.MeshRotation.Valid() && dt > 0 {
			r := t.MeshRotation.Get(rec)
			r.Rotation = r.Rotation.Add(r.RotationRate.Mul(dt))
			t.MeshRotation.Set(rec, r)
		}
		s.updateSpriteModules(&t.SpriteSource, rec, p)
	case *core.SpriteSource:
		s.updateSpriteModules(t, rec, p)
	}
}

func (s *Sprayer) updateSpriteModules(t *core.SpriteSource, rec []byte, p *core.Particle) {
	if t.DynamicParameter.Valid() {
		t.DynamicParameter.Set(rec, core.DynamicParameterPayload{Value: [4]float32{p.RelativeTime, 0, 0, 0}})
	}
}

func spriteSettings(src core.Source) (*core.SpriteSource, bool) {
	switch t := src.(type) {
	case *core.SpriteSource:
		return t, true
	case *core.SubUVSource:
		return &t.SpriteSource, true
	case *core.MeshSource:
		return &t.SpriteSource, true
	case *core.BeamSource:
		return &t.SpriteSource, true
	case *core.TrailSource:
		return &t.SpriteSource, true
	}
	return nil, false
}
