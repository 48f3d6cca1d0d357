package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

func TestSceneTickAndDraw(t *testing.T) {
	s := newTestScene(t, "single")
	e, _ := fountain(t, 10, 64)
	c := NewParticleSystemComponent(e)
	p, err := s.Register(c)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	stats, err := s.Tick(0.5)
	require.NoError(t, err)
	assert.Equal(t, TickStats{Systems: 1, Emitters: 1, Particles: 5, Updates: 1}, stats)

	s.rt.Drain()
	assert.Equal(t, proxy.StateHasCurrentData, p.State())

	pdi := coretest.NewDrawer()
	fs := s.DrawFrame(s.rc, []*core.SceneView{frontView()}, pdi)
	assert.Equal(t, FrameStats{Proxies: 1, Visible: 1, Draws: 1}, fs)
	require.Len(t, pdi.Batches, 1)
	assert.Equal(t, 5*4, pdi.Batches[0].NumVertices)
}

func TestSceneUnregisterReleasesResources(t *testing.T) {
	for _, buffering := range []string{"single", "double"} {
		t.Run(buffering, func(t *testing.T) {
			s := newTestScene(t, buffering)
			e, _ := fountain(t, 10, 64)
			c := NewParticleSystemComponent(e)
			_, err := s.Register(c)
			require.NoError(t, err)

			for i := 0; i < 4; i++ {
				_, err := s.Tick(0.1)
				require.NoError(t, err)
			}
			s.rt.Drain()
			want := int64(1)
			if buffering == "double" {
				want = 2
			}
			assert.Equal(t, want, s.res.LiveFactories())

			require.NoError(t, s.Unregister(c.ID))
			s.rt.Drain()
			assert.Zero(t, s.res.LiveFactories())
			assert.Zero(t, s.Len())
			assert.Zero(t, s.DrawFrame(s.rc, []*core.SceneView{frontView()}, coretest.NewDrawer()).Proxies)
			assert.Error(t, s.Unregister(c.ID))
		})
	}
}

func TestSceneRegisterErrors(t *testing.T) {
	s := newTestScene(t, "single")
	_, err := s.Register(nil)
	assert.Error(t, err)

	c := &ParticleSystemComponent{Enabled: true}
	_, err = s.Register(c)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, mgl32.Ident4(), c.LocalToWorld)

	_, err = s.Register(c)
	assert.Error(t, err)
}

func TestSceneLODFeedback(t *testing.T) {
	s := newTestScene(t, "single")
	e, sp := fountain(t, 10, 64)
	sp.LODSpawnScale = []float32{1, 0}
	c := NewParticleSystemComponent(e)
	c.LODDistances = []float32{5, 20}
	_, err := s.Register(c)
	require.NoError(t, err)

	_, err = s.Tick(0.5)
	require.NoError(t, err)
	s.rt.Drain()
	s.DrawFrame(s.rc, []*core.SceneView{frontView()}, coretest.NewDrawer())
	assert.Zero(t, c.LODLevel())

	_, err = s.Tick(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, c.LODLevel())
	assert.Equal(t, 5, e.Active(), "level 1 spawns nothing")
}

func TestLODLevelFor(t *testing.T) {
	c := &ParticleSystemComponent{LODDistances: []float32{5, 20}}
	assert.Equal(t, 0, c.lodLevelFor(4))
	assert.Equal(t, 1, c.lodLevelFor(5))
	assert.Equal(t, 1, c.lodLevelFor(19))
	assert.Equal(t, 2, c.lodLevelFor(25))
	assert.Equal(t, 0, (&ParticleSystemComponent{}).lodLevelFor(100))
}

func TestSceneTickReportsCaptureErrors(t *testing.T) {
	s := newTestScene(t, "single")
	s.limits.MaxParticles = 2
	e, _ := fountain(t, 10, 64)
	c := NewParticleSystemComponent(e)
	_, err := s.Register(c)
	require.NoError(t, err)

	stats, err := s.Tick(0.5)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 1, stats.Updates)
	assert.Zero(t, stats.Emitters)
}

func TestSceneSkipsDisabledSystems(t *testing.T) {
	s := newTestScene(t, "single")
	e, _ := fountain(t, 10, 64)
	c := NewParticleSystemComponent(e)
	c.Enabled = false
	_, err := s.Register(c)
	require.NoError(t, err)

	stats, err := s.Tick(0.5)
	require.NoError(t, err)
	assert.Zero(t, stats.Updates)
	assert.Zero(t, e.Active())
}

func TestSceneSetTransformAndCulling(t *testing.T) {
	s := newTestScene(t, "single")
	e, _ := fountain(t, 10, 64)
	c := NewParticleSystemComponent(e)
	_, err := s.Register(c)
	require.NoError(t, err)

	require.NoError(t, s.SetTransform(c.ID, mgl32.Translate3D(0, 0, 30)))
	_, err = s.Tick(0.5)
	require.NoError(t, err)
	s.rt.Drain()

	fs := s.DrawFrame(s.rc, []*core.SceneView{frontView()}, coretest.NewDrawer())
	assert.Equal(t, 1, fs.Proxies)
	assert.Zero(t, fs.Visible, "particles spawned behind the camera")
	assert.Error(t, s.SetTransform(uuid.New(), mgl32.Ident4()))
}

func TestLoadScene(t *testing.T) {
	s := newTestScene(t, "double")
	e, _ := fountain(t, 10, 64)
	c := NewParticleSystemComponent(e)
	def := &SceneDef{Systems: []ParticleSystemDef{{Position: mgl32.Vec3{1, 2, 3}, Component: c}}}
	require.NoError(t, LoadScene(s.Scene, def))
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), c.LocalToWorld)

	_, ok := s.Proxy(c.ID)
	assert.True(t, ok)
	assert.Error(t, LoadScene(s.Scene, &SceneDef{Systems: []ParticleSystemDef{{}}}))
}

func TestSceneClose(t *testing.T) {
	s := newTestScene(t, "double")
	for i := 0; i < 3; i++ {
		e, _ := fountain(t, 10, 64)
		_, err := s.Register(NewParticleSystemComponent(e))
		require.NoError(t, err)
	}
	_, err := s.Tick(0.2)
	require.NoError(t, err)
	s.rt.Drain()
	assert.Equal(t, int64(3), s.res.LiveFactories())

	require.NoError(t, s.Close())
	s.rt.Drain()
	assert.Zero(t, s.res.LiveFactories())
	assert.Zero(t, s.Len())
}
