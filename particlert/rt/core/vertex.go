package core

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex strides in bytes. Layouts must match the WGSL vertex inputs.
const (
	SpriteVertexSize                 = 64
	SpriteVertexDynamicParameterSize = SpriteVertexSize + 16
	SubUVVertexSize                  = 84
	SubUVVertexDynamicParameterSize  = SubUVVertexSize + 16
	BeamTrailVertexSize              = 64
	MeshInstanceSize                 = 48
)

// VertexStride returns the per-vertex (or per-instance) stride for kind, 0 for mesh
// factories whose vertices come from the static mesh.
func VertexStride(kind VertexFactoryKind) int {
	switch kind {
	case VFSprite:
		return SpriteVertexSize
	case VFSpriteDynamicParameter:
		return SpriteVertexDynamicParameterSize
	case VFSubUV:
		return SubUVVertexSize
	case VFSubUVDynamicParameter:
		return SubUVVertexDynamicParameterSize
	case VFBeamTrail:
		return BeamTrailVertexSize
	case VFMeshInstanced:
		return MeshInstanceSize
	}
	return 0
}

// SpriteVertex is one quad corner. Beams and trails share the layout.
//
//	0  Position     vec3
//	12 OldPosition  vec3
//	24 Size         vec3
//	36 Rotation     f32
//	40 UV           vec2
//	48 Color        vec4
type SpriteVertex struct {
	Position    mgl32.Vec3
	OldPosition mgl32.Vec3
	Size        mgl32.Vec3
	Rotation    float32
	UV          mgl32.Vec2
	Color       mgl32.Vec4
}

type BeamTrailVertex = SpriteVertex

func (v *SpriteVertex) Put(b []byte) {
	_ = b[SpriteVertexSize-1]
	putVec3(b, 0, v.Position)
	putVec3(b, 12, v.OldPosition)
	putVec3(b, 24, v.Size)
	putF32(b, 36, v.Rotation)
	putF32(b, 40, v.UV[0])
	putF32(b, 44, v.UV[1])
	putVec4(b, 48, v.Color)
}

func DecodeSpriteVertex(b []byte) SpriteVertex {
	return SpriteVertex{
		Position:    getVec3(b, 0),
		OldPosition: getVec3(b, 12),
		Size:        getVec3(b, 24),
		Rotation:    getF32(b, 36),
		UV:          mgl32.Vec2{getF32(b, 40), getF32(b, 44)},
		Color:       getVec4(b, 48),
	}
}

// SubUVVertex extends the sprite layout with two atlas frames and their blend.
//
//	64 UV0    vec2
//	72 UV1    vec2
//	80 Interp f32
type SubUVVertex struct {
	SpriteVertex
	UV0    mgl32.Vec2
	UV1    mgl32.Vec2
	Interp float32
}

func (v *SubUVVertex) Put(b []byte) {
	_ = b[SubUVVertexSize-1]
	v.SpriteVertex.Put(b)
	putF32(b, 64, v.UV0[0])
	putF32(b, 68, v.UV0[1])
	putF32(b, 72, v.UV1[0])
	putF32(b, 76, v.UV1[1])
	putF32(b, 80, v.Interp)
}

func DecodeSubUVVertex(b []byte) SubUVVertex {
	return SubUVVertex{
		SpriteVertex: DecodeSpriteVertex(b),
		UV0:          mgl32.Vec2{getF32(b, 64), getF32(b, 68)},
		UV1:          mgl32.Vec2{getF32(b, 72), getF32(b, 76)},
		Interp:       getF32(b, 80),
	}
}

// PutDynamicParameter writes the trailing dynamic parameter at off.
func PutDynamicParameter(b []byte, off int, p [4]float32) {
	for i := 0; i < 4; i++ {
		putF32(b, off+i*4, p[i])
	}
}

func DynamicParameterAt(b []byte, off int) [4]float32 {
	return [4]float32{getF32(b, off), getF32(b, off+4), getF32(b, off+8), getF32(b, off+12)}
}

// MeshInstance is the per-instance stream of the instanced mesh factory.
type MeshInstance struct {
	Location mgl32.Vec3
	AxisX    mgl32.Vec3
	AxisY    mgl32.Vec3
	AxisZ    mgl32.Vec3
}

func (m *MeshInstance) Put(b []byte) {
	_ = b[MeshInstanceSize-1]
	putVec3(b, 0, m.Location)
	putVec3(b, 12, m.AxisX)
	putVec3(b, 24, m.AxisY)
	putVec3(b, 36, m.AxisZ)
}

func DecodeMeshInstance(b []byte) MeshInstance {
	return MeshInstance{
		Location: getVec3(b, 0),
		AxisX:    getVec3(b, 12),
		AxisY:    getVec3(b, 24),
		AxisZ:    getVec3(b, 36),
	}
}

// IndexStrideFor picks 16-bit indices when every vertex is addressable, else 32-bit.
func IndexStrideFor(numVertices int) int {
	if numVertices <= 0xffff {
		return 2
	}
	return 4
}

// PutIndex writes index v at position i of an index stream with the given stride.
func PutIndex(ib []byte, stride, i int, v uint32) {
	if stride == 2 {
		binary.LittleEndian.PutUint16(ib[i*2:], uint16(v))
		return
	}
	binary.LittleEndian.PutUint32(ib[i*4:], v)
}

func IndexAt(ib []byte, stride, i int) uint32 {
	if stride == 2 {
		return uint32(binary.LittleEndian.Uint16(ib[i*2:]))
	}
	return binary.LittleEndian.Uint32(ib[i*4:])
}
