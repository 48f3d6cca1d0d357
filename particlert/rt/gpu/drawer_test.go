package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
)

func getF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func testRenderer() *Renderer {
	return &Renderer{log: core.NewNopLogger()}
}

func factory(t *testing.T, kind core.VertexFactoryKind) core.VertexFactory {
	t.Helper()
	vf, err := coretest.NewResources().CreateVertexFactory(kind)
	require.NoError(t, err)
	return vf
}

// spriteBatch builds n sprite quads with 16-bit indices.
func spriteBatch(t *testing.T, n int, mat *core.Material) *core.MeshBatch {
	t.Helper()
	vb := make([]byte, n*4*core.SpriteVertexSize)
	ib := make([]byte, n*6*2)
	for i := 0; i < n; i++ {
		for c := 0; c < 4; c++ {
			v := core.SpriteVertex{Position: mgl32.Vec3{float32(i), 0, 0}, Size: mgl32.Vec3{1, 1, 1}, Color: mgl32.Vec4{1, 1, 1, 1}}
			v.Put(vb[(i*4+c)*core.SpriteVertexSize:])
		}
		for k, idx := range []uint32{0, 2, 3, 0, 1, 2} {
			core.PutIndex(ib, 2, i*6+k, uint32(i*4)+idx)
		}
	}
	return &core.MeshBatch{
		VertexFactory: factory(t, core.VFSprite),
		VertexData:    vb,
		VertexStride:  core.SpriteVertexSize,
		NumVertices:   n * 4,
		IndexData:     ib,
		IndexStride:   2,
		NumPrimitives: n * 2,
		Topology:      core.TopologyTriangleList,
		LocalToWorld:  mgl32.Ident4(),
		Material:      mat.RenderProxy(false),
	}
}

func TestIndexCount(t *testing.T) {
	assert.Equal(t, 6, indexCount(&core.MeshBatch{NumPrimitives: 2, Topology: core.TopologyTriangleList}))
	assert.Equal(t, 4, indexCount(&core.MeshBatch{NumPrimitives: 2, Topology: core.TopologyTriangleStrip}))
	assert.Equal(t, 0, indexCount(&core.MeshBatch{Topology: core.TopologyTriangleStrip}))
}

func TestValidateBatch(t *testing.T) {
	mat := core.NewMaterial("m", core.BlendTranslucent, core.LightingUnlit)
	require.NoError(t, validateBatch(spriteBatch(t, 3, mat)))

	cases := map[string]struct {
		mutate func(b *core.MeshBatch)
		want   error
	}{
		"no factory":       {func(b *core.MeshBatch) { b.VertexFactory = nil }, ErrInvalidBatch},
		"no primitives":    {func(b *core.MeshBatch) { b.NumPrimitives = 0 }, ErrInvalidBatch},
		"stride mismatch":  {func(b *core.MeshBatch) { b.VertexStride = core.SubUVVertexSize }, ErrInvalidBatch},
		"short vertices":   {func(b *core.MeshBatch) { b.VertexData = b.VertexData[:core.SpriteVertexSize] }, core.ErrBufferTooSmall},
		"short indices":    {func(b *core.MeshBatch) { b.IndexData = b.IndexData[:4] }, core.ErrBufferTooSmall},
		"bad index stride": {func(b *core.MeshBatch) { b.IndexStride = 3 }, ErrInvalidBatch},
		"16-bit overflow": {func(b *core.MeshBatch) {
			b.NumVertices = 0x10000
			b.VertexData = make([]byte, 0x10000*core.SpriteVertexSize)
		}, core.ErrIndexRangeExceeded},
		"mesh kind dynamic": {func(b *core.MeshBatch) { b.VertexFactory = factory(t, core.VFMesh) }, ErrInvalidBatch},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := spriteBatch(t, 3, mat)
			tc.mutate(b)
			err := validateBatch(b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestValidateMeshBatch(t *testing.T) {
	mat := core.NewMaterial("m", core.BlendOpaque, core.LightingLit)
	box := core.NewBoxMesh("box", mgl32.Vec3{1, 1, 1}, mat)
	b := &core.MeshBatch{
		VertexFactory: factory(t, core.VFMesh),
		Mesh:          box,
		NumPrimitives: 12,
		Material:      mat.RenderProxy(false),
	}
	require.NoError(t, validateBatch(b))

	b.Section = 1
	assert.ErrorIs(t, validateBatch(b), ErrInvalidBatch)

	b.Section = 0
	b.NumPrimitives = 13
	assert.ErrorIs(t, validateBatch(b), core.ErrBufferTooSmall)

	b.NumPrimitives = 12
	b.VertexFactory = factory(t, core.VFMeshInstanced)
	assert.ErrorIs(t, validateBatch(b), ErrInvalidBatch)

	pool := core.NewInstanceBufferPool(1, 256)
	ib, err := pool.Acquire()
	require.NoError(t, err)
	ib.Reserve(2 * core.MeshInstanceSize)
	b.Instances, b.NumInstances = ib, 3
	assert.ErrorIs(t, validateBatch(b), core.ErrBufferTooSmall)
	b.NumInstances = 2
	assert.NoError(t, validateBatch(b))
}

func TestFrameArenaAlignment(t *testing.T) {
	var a frameArena
	assert.Equal(t, uint64(0), a.push([]byte{1, 2, 3}, 4))
	assert.Equal(t, uint64(4), a.push([]byte{4, 5}, 4))
	assert.Equal(t, uint64(256), a.push([]byte{6}, 256))
	assert.Equal(t, 257, a.len())
	assert.Equal(t, []byte{1, 2, 3, 0, 4, 5}, a.data[:6])

	a.reset()
	assert.Equal(t, 0, a.len())
}

func TestDrawerPacksBatches(t *testing.T) {
	d := NewDrawer(testRenderer())
	mat := core.NewMaterial("m", core.BlendAdditive, core.LightingUnlit)

	first := spriteBatch(t, 1, mat)
	second := spriteBatch(t, 2, mat)
	second.IndexData = append(second.IndexData, 0xff, 0xff) // trailing scratch is not copied
	assert.Equal(t, 1, d.DrawMesh(first))
	assert.Equal(t, 1, d.DrawMesh(second))

	require.Len(t, d.cmds, 2)
	c0, c1 := d.cmds[0], d.cmds[1]
	assert.Equal(t, uint64(0), c0.vertexOffset)
	assert.Equal(t, uint64(4*core.SpriteVertexSize), c0.vertexSize)
	assert.Equal(t, c0.vertexSize, c1.vertexOffset)
	assert.Equal(t, uint64(12), c0.indexSize)
	assert.Equal(t, uint64(12), c1.indexOffset)
	assert.Equal(t, uint64(24), c1.indexSize)
	assert.Equal(t, uint32(12), c1.indexCount)
	assert.Equal(t, uint32(0), c0.uniformOffset)
	assert.Equal(t, uint32(drawUniformStride), c1.uniformOffset)
	assert.Equal(t, pipelineKey{kind: core.VFSprite, blend: blendAdditive}, c0.key)

	// the arena holds a copy, so scratch reuse after DrawMesh is safe
	copy(second.VertexData, make([]byte, len(second.VertexData)))
	v := core.DecodeSpriteVertex(d.vertices.data[c1.vertexOffset+4*core.SpriteVertexSize:])
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, v.Position)

	s := d.Stats()
	assert.Equal(t, 2, s.Draws)
	assert.Equal(t, 6, s.Triangles)
	assert.Equal(t, 12, s.Vertices)

	d.Reset()
	assert.Empty(t, d.cmds)
	assert.Equal(t, DrawStats{}, d.Stats())
}

func TestDrawerRejectsInvalidBatch(t *testing.T) {
	d := NewDrawer(testRenderer())
	b := spriteBatch(t, 1, core.NewMaterial("m", core.BlendOpaque, core.LightingLit))
	b.IndexStride = 2
	b.NumVertices = 0x10000
	b.VertexData = make([]byte, 0x10000*core.SpriteVertexSize)

	assert.Equal(t, 0, d.DrawMesh(b))
	assert.Empty(t, d.cmds)
	assert.Equal(t, 1, d.Stats().Rejected)
}

func TestDrawerLines(t *testing.T) {
	d := NewDrawer(testRenderer())
	d.DrawLine(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec4{1, 0, 0, 1}, core.DPGForeground)
	d.DrawPoint(mgl32.Vec3{}, mgl32.Vec4{1, 1, 1, 1}, 2, core.DPGWorld)

	assert.Equal(t, 4, d.Stats().Lines)
	assert.Len(t, d.lines.vertices[core.DPGForeground], 2*lineVertexSize)
	assert.Len(t, d.lines.vertices[core.DPGWorld], 6*lineVertexSize)

	end := d.lines.vertices[core.DPGForeground][lineVertexSize:]
	assert.Equal(t, float32(1), getF32(end, 0))
	assert.Equal(t, float32(1), getF32(end, 12))

	d.Reset()
	assert.Equal(t, 0, d.Stats().Lines)
}

func TestDrawOrderOpaqueFirst(t *testing.T) {
	cmds := []drawCmd{
		{key: pipelineKey{blend: blendAlpha}, dpg: core.DPGWorld},
		{key: pipelineKey{blend: blendOpaque}, dpg: core.DPGWorld},
		{key: pipelineKey{blend: blendOpaque}, dpg: core.DPGForeground},
		{key: pipelineKey{blend: blendAdditive}, dpg: core.DPGWorld},
		{key: pipelineKey{blend: blendOpaque}, dpg: core.DPGWorld},
	}
	assert.Equal(t, []int{1, 4, 0, 3}, drawOrder(cmds, core.DPGWorld))
	assert.Equal(t, []int{2}, drawOrder(cmds, core.DPGForeground))
}

func TestBlendClassFor(t *testing.T) {
	assert.Equal(t, blendOpaque, blendClassFor(nil))
	for mode, want := range map[core.BlendMode]blendClass{
		core.BlendOpaque:      blendOpaque,
		core.BlendMasked:      blendOpaque,
		core.BlendTranslucent: blendAlpha,
		core.BlendAdditive:    blendAdditive,
		core.BlendModulate:    blendModulate,
	} {
		m := core.NewMaterial("m", mode, core.LightingUnlit)
		assert.Equal(t, want, blendClassFor(m.RenderProxy(false)), "mode %d", mode)
	}
}
