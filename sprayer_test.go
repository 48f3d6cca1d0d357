package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
)

func TestSprayerSpawnsAndExpires(t *testing.T) {
	e, _ := fountain(t, 10, 64)

	e.Tick(0.5)
	assert.Equal(t, 5, e.Active())
	e.Tick(0.5)
	assert.Equal(t, 10, e.Active())
	e.Tick(0.5)
	assert.Equal(t, 10, e.Active(), "the first batch dies as the third spawns")
	require.NoError(t, e.Storage.ValidateIndices())
}

func TestSprayerStopsAtCapacity(t *testing.T) {
	e, _ := fountain(t, 100, 8)
	e.Tick(0.5)
	assert.Equal(t, 8, e.Active())
}

func TestSprayerGravity(t *testing.T) {
	sp := NewSprayer(3)
	sp.SpawnRate = 2
	sp.LifetimeRange = [2]float32{10, 10}
	sp.StartSpeedRange = [2]float32{0, 0}
	sp.Gravity = 10
	e, err := NewEmitterInstance("drop", core.NewSpriteSource(nil), core.BaseParticleSize, 4, sp)
	require.NoError(t, err)

	e.Tick(0.5)
	require.Equal(t, 1, e.Active())
	e.Tick(0.25)

	p := core.ReadParticle(e.Storage.Record(0))
	assert.InDelta(t, -2.5, p.Velocity.Y(), 1e-5)
	assert.InDelta(t, -0.625, p.Location.Y(), 1e-5)
	assert.Equal(t, mgl32.Vec3{}, p.OldLocation)
	assert.InDelta(t, 0.025, p.RelativeTime, 1e-6)
}

func TestSprayerSpawnsAtWorldOrigin(t *testing.T) {
	e, _ := fountain(t, 2, 4)
	e.LocalToWorld = mgl32.Translate3D(3, 4, 5)
	e.Tick(0.5)
	require.Equal(t, 1, e.Active())
	assert.Equal(t, mgl32.Vec3{3, 4, 5}, core.ParticleLocation(e.Storage.Record(0)))
}

func TestSprayerConeStaysInside(t *testing.T) {
	sp := NewSprayer(11)
	sp.ConeAngleDegrees = 30
	for i := 0; i < 200; i++ {
		d := sp.sampleDirection()
		assert.InDelta(t, 1, d.Len(), 1e-4)
		assert.GreaterOrEqual(t, d.Dot(core.AxisY), float32(0.866))
	}
}

func TestSprayerSubUVFrames(t *testing.T) {
	l := NewRecordLayout()
	src := core.NewSubUVSource(nil, 2, 2)
	src.SubUV = AddSlot[core.SubUVPayload](l)

	sp := NewSprayer(5)
	sp.SpawnRate = 2
	sp.LifetimeRange = [2]float32{1, 1}
	e, err := NewEmitterInstance("flipbook", src, l.Stride(), 4, sp)
	require.NoError(t, err)

	e.Tick(0.5)
	e.Tick(0.6)
	rec := e.Storage.Record(0)
	assert.InDelta(t, 0.6, core.ParticleRelativeTime(rec), 1e-5)
	assert.Equal(t, float32(2), src.SubUV.Get(rec).ImageIndex)
}

func TestSprayerMeshRotation(t *testing.T) {
	l := NewRecordLayout()
	src := core.NewMeshSource(nil)
	src.MeshRotation = AddSlot[core.MeshRotationPayload](l)

	sp := NewSprayer(9)
	sp.SpawnRate = 2
	sp.LifetimeRange = [2]float32{5, 5}
	sp.RotationRateRange = [2]float32{1, 1}
	e, err := NewEmitterInstance("rocks", src, l.Stride(), 4, sp)
	require.NoError(t, err)

	e.Tick(0.5)
	before := src.MeshRotation.Get(e.Storage.Record(0))
	e.Tick(0.5)
	after := src.MeshRotation.Get(e.Storage.Record(0))
	assert.InDelta(t, 0.5*180/3.14159265, after.Rotation.X()-before.Rotation.X(), 1e-3)
	assert.Equal(t, before.InitialRotation, after.InitialRotation)
}

func TestSprayerLODScale(t *testing.T) {
	e, sp := fountain(t, 10, 64)
	sp.LODSpawnScale = []float32{1, 0}
	e.LOD = 1
	e.Tick(1)
	assert.Zero(t, e.Active())
	e.LOD = 3
	e.Tick(0.5)
	assert.Equal(t, 5, e.Active())
}
