package emitter

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
)

type beamFixture struct {
	src    *core.BeamSource
	stride int
}

// newBeamFixture places the beam payload right after the record head; the with helpers
// append optional payloads behind it.
func newBeamFixture(mat *core.Material) *beamFixture {
	src := core.NewBeamSource(mat)
	off := core.BaseParticleSize
	src.Beam = core.SlotAt[core.BeamPayload](off)
	off += src.Beam.Size()
	return &beamFixture{src: src, stride: off}
}

func (f *beamFixture) withNoisePoints(n int) {
	f.src.TargetNoisePoints = core.ArraySlotAt[mgl32.Vec3](f.stride, n)
	f.stride += 12 * n
	f.src.NextNoisePoints = core.ArraySlotAt[mgl32.Vec3](f.stride, n)
	f.stride += 12 * n
	f.src.NoiseDeltaTime = core.SlotAt[float32](f.stride)
	f.stride += 4
}

func (f *beamFixture) withTaperValues(n int) {
	f.src.TaperValues = core.ArraySlotAt[float32](f.stride, n)
	f.stride += 4 * n
}

func (f *beamFixture) capture(t *testing.T, beams []core.BeamPayload, each func(i int, rec []byte)) {
	t.Helper()
	snapshot(t, f.src, f.stride, len(beams), func(i int, rec []byte) {
		writeAt(rec, beams[i].SourcePoint, mgl32.Vec3{2, 2, 2})
		f.src.Beam.Set(rec, beams[i])
		if each != nil {
			each(i, rec)
		}
	})
}

func straightBeam(from, to mgl32.Vec3) core.BeamPayload {
	return core.BeamPayload{SourcePoint: from, TargetPoint: to}
}

func fillBeam(t *testing.T, d *BeamData, view *core.SceneView) ([]byte, []byte, int) {
	t.Helper()
	nv, ni := d.Counts()
	vb := make([]byte, nv*core.BeamTrailVertexSize)
	ib := make([]byte, ni*core.IndexStrideFor(nv))
	prims, err := d.FillVertexAndIndexData(vb, ib, view, mgl32.Ident4())
	require.NoError(t, err)
	return vb, ib, prims
}

func TestBeamStraightSegmentEndpoints(t *testing.T) {
	f := newBeamFixture(nil)
	s, tgt := mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0}
	f.capture(t, []core.BeamPayload{straightBeam(s, tgt)}, nil)

	camPos := mgl32.Vec3{5, 0, 10}
	view := core.LookAtView(camPos, mgl32.Vec3{5, 0, 0}, core.AxisY, 60, 1, 0.1, 100)
	d := NewBeam(f.src)

	vb, ib, prims := fillBeam(t, d, view)
	require.Len(t, vb, 4*core.BeamTrailVertexSize)
	assert.Equal(t, 2, prims)
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint32(i), core.IndexAt(ib, 2, i))
	}

	upAt := func(p mgl32.Vec3) mgl32.Vec3 {
		return tgt.Sub(s).Cross(camPos.Sub(p)).Normalize()
	}
	const size = 2
	requireNearVec3(t, s.Add(upAt(s).Mul(size)), vertexAt(vb, core.BeamTrailVertexSize, 0).Position)
	requireNearVec3(t, s.Sub(upAt(s).Mul(size)), vertexAt(vb, core.BeamTrailVertexSize, 1).Position)
	requireNearVec3(t, tgt.Add(upAt(tgt).Mul(size)), vertexAt(vb, core.BeamTrailVertexSize, 2).Position)
	requireNearVec3(t, tgt.Sub(upAt(tgt).Mul(size)), vertexAt(vb, core.BeamTrailVertexSize, 3).Position)

	assert.Equal(t, mgl32.Vec2{0, 0}, vertexAt(vb, core.BeamTrailVertexSize, 0).UV)
	assert.Equal(t, mgl32.Vec2{1, 1}, vertexAt(vb, core.BeamTrailVertexSize, 3).UV)
}

func TestBeamStripsJoinWithDegenerates(t *testing.T) {
	f := newBeamFixture(nil)
	f.capture(t, []core.BeamPayload{
		straightBeam(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}),
		straightBeam(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 1, 0}),
	}, nil)
	d := NewBeam(f.src)

	nv, ni := d.Counts()
	assert.Equal(t, 8, nv)
	assert.Equal(t, 10, ni)
	_, ib, prims := fillBeam(t, d, nil)
	assert.Equal(t, 8, prims)

	got := make([]uint32, ni)
	for i := range got {
		got[i] = core.IndexAt(ib, 2, i)
	}
	assert.Equal(t, []uint32{0, 1, 2, 3, 3, 4, 4, 5, 6, 7}, got)
}

func TestBeamSheets(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.Sheets = 3
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})}, nil)
	d := NewBeam(f.src)

	nv, ni := d.Counts()
	assert.Equal(t, 12, nv)
	assert.Equal(t, 12+2*2, ni)

	vb, _, _ := fillBeam(t, d, nil)
	// without a view each sheet turns camera-up Z about the beam axis X
	v0 := vertexAt(vb, core.BeamTrailVertexSize, 0).Position
	v4 := vertexAt(vb, core.BeamTrailVertexSize, 4).Position
	requireNearVec3(t, mgl32.Vec3{0, 0, 2}, v0)
	assert.InDelta(t, 0, v4.X(), 1e-5)
	assert.InDelta(t, 2, v4.Len(), 1e-4)
	assert.False(t, core.NearlyEqualVec3(v0, v4, 1e-3))
}

func TestBeamInterpolatedPath(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.InterpolationPoints = 4
	b := core.BeamPayload{
		SourcePoint:    mgl32.Vec3{0, 0, 0},
		SourceTangent:  mgl32.Vec3{1, 0, 0},
		SourceStrength: 4,
		TargetPoint:    mgl32.Vec3{4, 0, 0},
		TargetTangent:  mgl32.Vec3{1, 0, 0},
		TargetStrength: 4,
	}
	f.capture(t, []core.BeamPayload{b}, nil)
	d := NewBeam(f.src)
	d.Tessellate()

	require.Len(t, d.points, 5)
	for k, p := range d.points {
		requireNearVec3(t, mgl32.Vec3{float32(k), 0, 0}, p.pos, "point %d", k)
	}
	assert.InDelta(t, 1, d.points[4].u, 1e-6)
}

func TestBeamInterpolatedPointsPayload(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.InterpolationPoints = 3
	f.src.InterpolatedPoints = core.ArraySlotAt[mgl32.Vec3](f.stride, 3)
	f.stride += 36
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{3, 0, 0})}, func(i int, rec []byte) {
		for k := 0; k < 3; k++ {
			f.src.InterpolatedPoints.SetAt(rec, k, mgl32.Vec3{float32(k + 1), 1, 0})
		}
	})
	d := NewBeam(f.src)
	d.Tessellate()
	require.Len(t, d.points, 4)
	assert.Equal(t, mgl32.Vec3{}, d.points[0].pos)
	assert.Equal(t, mgl32.Vec3{2, 1, 0}, d.points[2].pos)
}

func TestBeamNoisePath(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.NoiseEnabled = true
	f.withNoisePoints(4)
	b := straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})
	b.LockMaxNumNoisePoints = core.PackBeamLock(false, 0, 3)
	f.capture(t, []core.BeamPayload{b}, nil)

	d := NewBeam(f.src)
	d.Tessellate()
	// source, 3 noise knots, target
	require.Len(t, d.knots, 5)
	require.Len(t, d.points, 5)
	for k, p := range d.points {
		requireNearVec3(t, mgl32.Vec3{float32(k), 0, 0}, p.pos, "zero noise keeps the line straight, point %d", k)
	}
}

func TestBeamNoiseOffsetsAndTessellation(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.NoiseEnabled = true
	f.src.NoiseTessellation = 4
	f.src.NoiseRangeScale = 2
	f.withNoisePoints(4)
	b := straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})
	b.LockMaxNumNoisePoints = core.PackBeamLock(false, 8, 3)
	f.capture(t, []core.BeamPayload{b}, func(i int, rec []byte) {
		for k := 0; k < 4; k++ {
			f.src.TargetNoisePoints.SetAt(rec, k, mgl32.Vec3{0, 1, 0})
		}
	})

	d := NewBeam(f.src)
	d.Tessellate()
	require.Len(t, d.knots, 5)
	requireNearVec3(t, mgl32.Vec3{1, 2, 0}, d.knots[1])
	requireNearVec3(t, mgl32.Vec3{4, 0, 0}, d.knots[4], "target noise is off")
	// 4 segments of 4 sub-steps plus the final knot
	require.Len(t, d.points, 17)
	requireNearVec3(t, d.knots[2], d.points[8].pos)
	requireNearVec3(t, d.knots[4], d.points[16].pos)
}

func TestBeamNoiseMaxCapsFrequency(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.NoiseEnabled = true
	b := straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})
	b.LockMaxNumNoisePoints = core.PackBeamLock(false, 2, 9)
	f.capture(t, []core.BeamPayload{b}, nil)
	d := NewBeam(f.src)
	d.Tessellate()
	assert.Len(t, d.knots, 4)
}

func TestBeamSmoothNoiseDoesNotWriteBack(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.NoiseEnabled = true
	f.src.SmoothNoise = true
	f.src.NoiseSpeed = 1
	f.withNoisePoints(1)
	b := straightBeam(mgl32.Vec3{}, mgl32.Vec3{2, 0, 0})
	b.LockMaxNumNoisePoints = core.PackBeamLock(false, 0, 1)
	f.capture(t, []core.BeamPayload{b}, func(i int, rec []byte) {
		f.src.TargetNoisePoints.SetAt(rec, 0, mgl32.Vec3{0, 4, 0})
		f.src.NextNoisePoints.SetAt(rec, 0, mgl32.Vec3{0, 0, 0})
		f.src.NoiseDeltaTime.Set(rec, 0.25)
	})
	before := append([]byte(nil), f.src.ParticleData...)

	d := NewBeam(f.src)
	d.Tessellate()
	requireNearVec3(t, mgl32.Vec3{1, 1, 0}, d.knots[1], "a quarter of the way to the target")
	assert.Equal(t, before, f.src.ParticleData)

	// a locked beam jumps straight to the target
	locked := b
	locked.LockMaxNumNoisePoints = core.PackBeamLock(true, 0, 1)
	f.src.Beam.Set(f.src.Record(0), locked)
	d = NewBeam(f.src)
	d.Tessellate()
	requireNearVec3(t, mgl32.Vec3{1, 4, 0}, d.knots[1])
}

func TestChaseNoise(t *testing.T) {
	requireNearVec3(t, mgl32.Vec3{5, 0, 0}, ChaseNoise(mgl32.Vec3{}, mgl32.Vec3{10, 0, 0}, 1, 0.5, 0.1))
	requireNearVec3(t, mgl32.Vec3{10, 0, 0}, ChaseNoise(mgl32.Vec3{9.95, 0, 0}, mgl32.Vec3{10, 0, 0}, 1, 0.5, 0.1))
	requireNearVec3(t, mgl32.Vec3{10, 0, 0}, ChaseNoise(mgl32.Vec3{}, mgl32.Vec3{10, 0, 0}, 10, 1, 0), "speed*dt clamps to one")
	requireNearVec3(t, mgl32.Vec3{}, ChaseNoise(mgl32.Vec3{}, mgl32.Vec3{10, 0, 0}, 0, 1, 0))
}

func TestBeamTaper(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.TaperMethod = core.TaperFull
	f.src.TaperFactor = 0
	f.src.InterpolationPoints = 2
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{2, 0, 0})}, nil)
	d := NewBeam(f.src)
	d.Tessellate()
	require.Len(t, d.points, 3)
	assert.InDelta(t, 1, d.points[0].taper, 1e-6)
	assert.InDelta(t, 0.5, d.points[1].taper, 1e-6)
	assert.InDelta(t, 0, d.points[2].taper, 1e-6)

	vb, _, _ := fillBeam(t, d, nil)
	top := vertexAt(vb, core.BeamTrailVertexSize, 4).Position
	bottom := vertexAt(vb, core.BeamTrailVertexSize, 5).Position
	requireNearVec3(t, top, bottom, "fully tapered end collapses")

	f.src.TaperMethod = core.TaperPartial
	bp := f.src.Beam.Get(f.src.Record(0))
	bp.TravelRatio = 0.5
	f.src.Beam.Set(f.src.Record(0), bp)
	d = NewBeam(f.src)
	d.Tessellate()
	assert.InDelta(t, 0.5, d.points[2].taper, 1e-6)
}

func TestBeamTaperValuesPayload(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.TaperMethod = core.TaperFull
	f.src.TaperScale = 2
	f.src.InterpolationPoints = 4
	f.withTaperValues(3)
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})}, func(i int, rec []byte) {
		f.src.TaperValues.SetAt(rec, 0, 1)
		f.src.TaperValues.SetAt(rec, 1, 0.5)
		f.src.TaperValues.SetAt(rec, 2, 0)
	})
	d := NewBeam(f.src)
	d.Tessellate()
	require.Len(t, d.points, 5)
	assert.InDelta(t, 2, d.points[0].taper, 1e-6)
	assert.InDelta(t, 1.5, d.points[1].taper, 1e-6)
	assert.InDelta(t, 1, d.points[2].taper, 1e-6)
	assert.InDelta(t, 0, d.points[4].taper, 1e-6)
}

func TestBeamTextureTiling(t *testing.T) {
	f := newBeamFixture(nil)
	f.src.InterpolationPoints = 2
	f.src.TextureTileDistance = 5
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{10, 0, 0})}, nil)
	d := NewBeam(f.src)
	d.Tessellate()
	assert.InDelta(t, 1, d.points[1].u, 1e-5)
	assert.InDelta(t, 2, d.points[2].u, 1e-5)

	f.src.TextureTileDistance = 0
	f.src.TextureTile = 3
	d = NewBeam(f.src)
	d.Tessellate()
	assert.InDelta(t, 3, d.points[2].u, 1e-5)
}

func TestBeamRender(t *testing.T) {
	res := coretest.NewResources()
	rc := coretest.NewRenderContext(res)
	f := newBeamFixture(nil)
	f.src.RenderDirectLine = true
	f.src.RenderTessellation = true
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0})}, nil)
	d := NewBeam(f.src)
	require.NoError(t, d.Init(rc, false))

	pdi := coretest.NewDrawer()
	assert.Equal(t, 1, d.Render(rc, nil, nil, pdi))
	require.Len(t, pdi.Batches, 1)
	b := pdi.Batches[0]
	assert.Equal(t, core.TopologyTriangleStrip, b.Topology)
	assert.Equal(t, 4, b.NumVertices)
	assert.Equal(t, 2, b.NumPrimitives)
	// direct line plus a 7-line star on each of the two knots
	assert.Len(t, pdi.Lines, 1+2*7)

	pdi.Reset()
	f.src.RenderGeometry = false
	assert.Zero(t, d.Render(rc, nil, nil, pdi))
	assert.Empty(t, pdi.Batches)

	d.Release(rc)
	assert.EqualValues(t, 0, res.LiveFactories())
}

func TestBeamBoundsCoverTarget(t *testing.T) {
	f := newBeamFixture(nil)
	f.capture(t, []core.BeamPayload{straightBeam(mgl32.Vec3{}, mgl32.Vec3{100, 0, 0})}, nil)
	c, r := NewBeam(f.src).Bounds(mgl32.Ident4())
	assert.GreaterOrEqual(t, r, mgl32.Vec3{100, 0, 0}.Sub(c).Len())
}
