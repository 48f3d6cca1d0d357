package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

type testScene struct {
	*Scene
	rt  *proxy.RenderThread
	rc  *core.RenderContext
	res *coretest.Resources
}

func newTestScene(t *testing.T, buffering string) *testScene {
	t.Helper()
	cfg := config.Default()
	cfg.Buffering = buffering
	require.NoError(t, cfg.Validate())
	res := coretest.NewResources()
	rc := coretest.NewRenderContext(res)
	rt := proxy.NewRenderThread(rc)
	return &testScene{Scene: NewScene(cfg, rt, core.NewNopLogger()), rt: rt, rc: rc, res: res}
}

// fountain is a sprite emitter spawning rate particles per second that live one second
// and never move.
func fountain(t *testing.T, rate float32, capacity int) (*EmitterInstance, *Sprayer) {
	t.Helper()
	sp := NewSprayer(1)
	sp.SpawnRate = rate
	sp.LifetimeRange = [2]float32{1, 1}
	sp.StartSpeedRange = [2]float32{0, 0}
	e, err := NewEmitterInstance("fountain", core.NewSpriteSource(nil), core.BaseParticleSize, capacity, sp)
	require.NoError(t, err)
	return e, sp
}

func frontView() *core.SceneView {
	return core.LookAtView(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, core.AxisY, 60, 1, 0.1, 100)
}
