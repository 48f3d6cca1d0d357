package emitter

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var white = mgl32.Vec4{1, 1, 1, 1}

// snapshot spawns n records of stride bytes, lets fill write each one and captures the
// storage into src.
func snapshot(t *testing.T, src core.Source, stride, n int, fill func(i int, rec []byte)) *core.ParticleStorage {
	t.Helper()
	s, err := core.NewParticleStorage(stride, max(n, 1))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, rec, ok := s.Spawn()
		require.True(t, ok)
		fill(i, rec)
	}
	require.NoError(t, core.Capture(s, src, core.DefaultLimits(), nil))
	return s
}

func writeAt(rec []byte, loc, size mgl32.Vec3) {
	core.WriteParticle(rec, &core.Particle{
		OldLocation: loc,
		Location:    loc,
		Size:        size,
		Color:       white,
	})
}

func translucentUnlit() *core.Material {
	return core.NewMaterial("smoke", core.BlendTranslucent, core.LightingUnlit)
}

func vertexAt(vb []byte, stride, i int) core.SpriteVertex {
	return core.DecodeSpriteVertex(vb[i*stride:])
}

func requireNearVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	require.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}
