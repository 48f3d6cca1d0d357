package proxy

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
)

func spriteSource(t *testing.T, mat *core.Material, locs ...mgl32.Vec3) *core.SpriteSource {
	t.Helper()
	src := core.NewSpriteSource(mat)
	s, err := core.NewParticleStorage(core.BaseParticleSize, max(len(locs), 1))
	require.NoError(t, err)
	for _, loc := range locs {
		_, rec, ok := s.Spawn()
		require.True(t, ok)
		core.WriteParticle(rec, &core.Particle{
			OldLocation: loc,
			Location:    loc,
			Size:        mgl32.Vec3{1, 1, 1},
			Color:       mgl32.Vec4{1, 1, 1, 1},
		})
	}
	require.NoError(t, core.Capture(s, src, core.DefaultLimits(), nil))
	return src
}

// spriteFrame is one frame holding a single sprite emitter at the given locations.
func spriteFrame(t *testing.T, locs ...mgl32.Vec3) *DynamicParticleData {
	t.Helper()
	d, err := FromSources(spriteSource(t, nil, locs...))
	require.NoError(t, err)
	return d
}

func worldPass() core.DrawPass {
	return core.DrawPass{DPG: core.DPGWorld, DynamicData: true}
}
