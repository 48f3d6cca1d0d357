package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MeshSection is one draw element of a static mesh LOD.
type MeshSection struct {
	FirstIndex   int
	NumTriangles int
	MinVertex    int
	MaxVertex    int
	Material     *Material
}

// StaticMeshLOD holds interleaved vertex data (position, normal, uv) and a 16-bit index list.
type StaticMeshLOD struct {
	Vertices     []byte
	VertexStride int
	Indices      []uint16
	Sections     []MeshSection
}

// StaticMesh is the mesh drawn once per particle by mesh emitters.
type StaticMesh struct {
	ID   uuid.UUID
	Name string
	LODs []StaticMeshLOD
}

func NewStaticMesh(name string, lods ...StaticMeshLOD) *StaticMesh {
	return &StaticMesh{ID: uuid.New(), Name: name, LODs: lods}
}

// LOD0 returns the highest detail level, or nil for an empty mesh.
func (m *StaticMesh) LOD0() *StaticMeshLOD {
	if m == nil || len(m.LODs) == 0 {
		return nil
	}
	return &m.LODs[0]
}

// MeshVertexSize is the stride of StaticMeshLOD vertices the renderer accepts.
//
//	0  Position vec3
//	12 Normal   vec3
//	24 UV       vec2
const MeshVertexSize = 32

// NewBoxMesh builds a single-section box of the given half extent, 24 vertices and 12
// triangles, all drawn with mat.
func NewBoxMesh(name string, half mgl32.Vec3, mat *Material) *StaticMesh {
	lod := StaticMeshLOD{VertexStride: MeshVertexSize}
	faces := [6][3]mgl32.Vec3{
		// normal, u axis, v axis
		{AxisX, AxisZ.Mul(-1), AxisY},
		{AxisX.Mul(-1), AxisZ, AxisY},
		{AxisY, AxisX, AxisZ.Mul(-1)},
		{AxisY.Mul(-1), AxisX, AxisZ},
		{AxisZ, AxisX, AxisY},
		{AxisZ.Mul(-1), AxisX.Mul(-1), AxisY},
	}
	corners := [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	vb := make([]byte, 24*MeshVertexSize)
	for f, face := range faces {
		n, u, v := face[0], face[1], face[2]
		for c, k := range corners {
			p := n.Add(u.Mul(k[0])).Add(v.Mul(k[1]))
			p = mgl32.Vec3{p[0] * half[0], p[1] * half[1], p[2] * half[2]}
			off := (f*4 + c) * MeshVertexSize
			putVec3(vb, off, p)
			putVec3(vb, off+12, n)
			putF32(vb, off+24, (k[0]+1)*0.5)
			putF32(vb, off+28, (1-k[1])*0.5)
		}
		base := uint16(f * 4)
		lod.Indices = append(lod.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	lod.Vertices = vb
	lod.Sections = []MeshSection{{
		FirstIndex:   0,
		NumTriangles: 12,
		MinVertex:    0,
		MaxVertex:    23,
		Material:     mat,
	}}
	return NewStaticMesh(name, lod)
}
