package demo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Demo = config.DemoConfig{Seed: 3, Sprites: 30, SubUV: 20, Meshes: 6, Beams: 3, Trails: 2, TrailLength: 8}
	return cfg
}

func TestModulesFollowConfig(t *testing.T) {
	cfg := smallConfig().Demo
	mods := Modules(cfg)
	require.Len(t, mods, 5)
	assert.IsType(t, Fountains{}, mods[0])
	assert.IsType(t, Ribbons{}, mods[4])

	cfg.Meshes, cfg.Beams = 0, 0
	assert.Len(t, Modules(cfg), 3)
	assert.Empty(t, Modules(config.DemoConfig{}))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []int{4, 3, 3}, split(10, 3))
	assert.Equal(t, []int{1, 1}, split(2, 3))
	assert.Nil(t, split(0, 3))
}

func TestRing(t *testing.T) {
	pts := ring(4, 2)
	require.Len(t, pts, 4)
	for _, p := range pts {
		assert.InDelta(t, 2, p.Len(), 1e-5)
		assert.Zero(t, p.Y())
	}
}

func TestDemoSceneDraws(t *testing.T) {
	cfg := smallConfig()
	res := coretest.NewResources()
	rc := coretest.NewRenderContext(res)
	rt := proxy.NewRenderThread(rc)

	s, err := particles.NewSceneBuilder().
		UseConfig(cfg).
		UseLogger(core.NewNopLogger()).
		UseRenderThread(rt).
		UseModule(Modules(cfg.Demo)...).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 7, s.Len())

	var stats particles.TickStats
	for i := 0; i < 10; i++ {
		stats, err = s.Tick(0.1)
		require.NoError(t, err)
	}
	assert.Equal(t, 7, stats.Systems)
	assert.Greater(t, stats.Particles, cfg.Demo.Beams+cfg.Demo.Trails*cfg.Demo.TrailLength)
	rt.Drain()

	view := core.LookAtView(mgl32.Vec3{0, 10, 35}, mgl32.Vec3{0, 3, 0}, core.AxisY, 60, 16.0/9, 0.1, 200)
	pdi := coretest.NewDrawer()
	fs := s.DrawFrame(rc, []*core.SceneView{view}, pdi)
	assert.Equal(t, 7, fs.Proxies)
	assert.Positive(t, fs.Draws)

	ribbons := 0
	for _, b := range pdi.Batches {
		if b.VertexFactory != nil && b.VertexFactory.Kind() == core.VFBeamTrail {
			ribbons++
		}
	}
	assert.GreaterOrEqual(t, ribbons, 2, "beam and trail batches")

	require.NoError(t, s.Close())
	rt.Drain()
	rc.Garbage.Flush()
	assert.Zero(t, res.LiveFactories())
}

func TestRibbonChainsAreLinked(t *testing.T) {
	src := core.NewTrailSource(nil)
	l := particles.NewRecordLayout()
	src.Trail = particles.AddSlot[core.TrailPayload](l)
	sim := &ribbonSim{trails: 2, length: 3, src: src}
	e, err := particles.NewEmitterInstance("ribbons", src, l.Stride(), 6, sim)
	require.NoError(t, err)

	e.Tick(0.1)
	require.Len(t, sim.chains, 2)
	for _, chain := range sim.chains {
		require.Len(t, chain, 3)
		head := src.Trail.Get(e.Storage.RecordAt(chain[0]))
		mid := src.Trail.Get(e.Storage.RecordAt(chain[1]))
		tail := src.Trail.Get(e.Storage.RecordAt(chain[2]))

		assert.True(t, head.IsStart())
		assert.Equal(t, core.TrailNullPrev, head.Prev())
		assert.Equal(t, chain[1], head.Next())
		assert.True(t, mid.IsMiddle())
		assert.Equal(t, chain[0], mid.Prev())
		assert.Equal(t, chain[2], mid.Next())
		assert.True(t, tail.IsEnd())
		assert.Equal(t, core.TrailNullNext, tail.Next())
	}
}

func TestArcsStayAlive(t *testing.T) {
	l := particles.NewRecordLayout()
	src := core.NewBeamSource(nil)
	src.Beam = particles.AddSlot[core.BeamPayload](l)
	src.TargetNoisePoints = particles.AddArraySlot[mgl32.Vec3](l, arcNoisePoints+1)
	src.NextNoisePoints = particles.AddArraySlot[mgl32.Vec3](l, arcNoisePoints+1)
	src.NoiseDeltaTime = particles.AddSlot[float32](l)
	sim := &arcSim{anchors: ring(2, 10), target: mgl32.Vec3{0, 7, 0}, noise: opensimplex.New32(1), src: src}
	e, err := particles.NewEmitterInstance("arcs", src, l.Stride(), 2, sim)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		e.Tick(0.2)
	}
	require.Equal(t, 2, e.Active())
	for i := 0; i < 2; i++ {
		rec := e.Storage.Record(i)
		bp := src.Beam.Get(rec)
		assert.Equal(t, arcNoisePoints, bp.Frequency())
		assert.False(t, bp.Locked())
		assert.InDelta(t, 0.2, src.NoiseDeltaTime.Get(rec), 1e-6)
		assert.Equal(t, bp.SourcePoint, core.ParticleLocation(rec))
	}
}
