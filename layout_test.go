package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
)

func TestRecordLayoutPacksPayloads(t *testing.T) {
	l := NewRecordLayout()
	assert.Equal(t, core.BaseParticleSize, l.Stride())

	beam := AddSlot[core.BeamPayload](l)
	points := AddArraySlot[mgl32.Vec3](l, 4)
	taper := AddSlot[float32](l)
	none := AddArraySlot[float32](l, 0)

	assert.Equal(t, core.BaseParticleSize, beam.Offset())
	assert.Equal(t, core.BaseParticleSize+beam.Size(), points.Offset())
	assert.Equal(t, points.Offset()+48, taper.Offset())
	assert.Equal(t, taper.Offset()+4, l.Stride())
	assert.False(t, none.Valid())

	rec := make([]byte, l.Stride())
	require.NoError(t, beam.Validate("beam", l.Stride()))
	require.NoError(t, points.Validate("points", l.Stride()))
	points.SetAt(rec, 3, mgl32.Vec3{1, 2, 3})
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, points.At(rec, 3))
}
