package core

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxMesh(t *testing.T) {
	mat := NewMaterial("box", BlendOpaque, LightingLit)
	m := NewBoxMesh("box", mgl32.Vec3{1, 2, 3}, mat)
	lod := m.LOD0()
	require.NotNil(t, lod)

	assert.Equal(t, MeshVertexSize, lod.VertexStride)
	assert.Len(t, lod.Vertices, 24*MeshVertexSize)
	assert.Len(t, lod.Indices, 36)
	require.Len(t, lod.Sections, 1)
	assert.Equal(t, 12, lod.Sections[0].NumTriangles)
	assert.Same(t, mat, lod.Sections[0].Material)

	for i := 0; i < 24; i++ {
		p := getVec3(lod.Vertices, i*MeshVertexSize)
		assert.InDelta(t, 1, math32.Abs(p.X()), 1e-6)
		assert.InDelta(t, 2, math32.Abs(p.Y()), 1e-6)
		assert.InDelta(t, 3, math32.Abs(p.Z()), 1e-6)
	}

	// every triangle winds counter-clockwise seen from outside
	for tri := 0; tri < 12; tri++ {
		var ps [3]mgl32.Vec3
		for k := 0; k < 3; k++ {
			ps[k] = getVec3(lod.Vertices, int(lod.Indices[tri*3+k])*MeshVertexSize)
		}
		n := getVec3(lod.Vertices, int(lod.Indices[tri*3])*MeshVertexSize+12)
		face := ps[1].Sub(ps[0]).Cross(ps[2].Sub(ps[0]))
		assert.Greater(t, face.Dot(n), float32(0), "triangle %d", tri)
	}
}

func TestStaticMeshLOD0(t *testing.T) {
	var m *StaticMesh
	assert.Nil(t, m.LOD0())
	assert.Nil(t, NewStaticMesh("empty").LOD0())
}
