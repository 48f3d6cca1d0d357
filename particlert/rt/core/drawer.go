package core

import "github.com/go-gl/mathgl/mgl32"

// DepthPriorityGroup orders primitives into world and foreground passes.
type DepthPriorityGroup int

const (
	DPGWorld DepthPriorityGroup = iota
	DPGForeground
	NumDepthPriorityGroups
)

type PrimitiveTopology int

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
)

// MeshBatch is one draw submission handed to the renderer.
// VertexData and IndexData are scratch owned by the emitter and are only valid for the
// duration of the DrawMesh call.
type MeshBatch struct {
	VertexFactory VertexFactory

	VertexData    []byte
	VertexStride  int
	NumVertices   int
	IndexData     []byte
	IndexStride   int // 2 or 4
	NumPrimitives int
	Topology      PrimitiveTopology

	// Static-mesh draws reference a LOD0 section instead of carrying vertex data.
	Mesh    *StaticMesh
	Section int

	Instances    *InstanceBuffer
	NumInstances int

	LocalToWorld mgl32.Mat4
	Material     *MaterialProxy
	DPG          DepthPriorityGroup
	CastShadow   bool

	Params VertexFactoryParams
}

// VertexFactoryParams are the per-draw uniforms of the particle vertex factories.
type VertexFactoryParams struct {
	ScreenAlignment ScreenAlignment
	AxisLock        AxisLock
	LockAxis        mgl32.Vec3
	// SubImages is the sub-UV grid (horizontal, vertical).
	SubImages [2]int
}

// PrimitiveDrawer receives draw submissions on the render thread.
type PrimitiveDrawer interface {
	// DrawMesh submits a batch and returns the number of draw calls it produced.
	DrawMesh(batch *MeshBatch) int
	DrawLine(start, end mgl32.Vec3, color mgl32.Vec4, dpg DepthPriorityGroup)
	DrawPoint(pos mgl32.Vec3, color mgl32.Vec4, size float32, dpg DepthPriorityGroup)
}

// DrawPass describes the pass a proxy is asked to draw for.
type DrawPass struct {
	DPG DepthPriorityGroup
	// DynamicData is set for passes that accept per-frame vertex data; static-mesh
	// emitters are drawn in the other passes.
	DynamicData bool
}

// PrimitiveInfo is what an emitter needs to know about the primitive it belongs to.
type PrimitiveInfo struct {
	LocalToWorld mgl32.Mat4
	Selected     bool
	CastShadow   bool
	// ComponentMaterials are the component-level overrides for mesh sections.
	ComponentMaterials []*Material
}
