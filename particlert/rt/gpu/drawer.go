package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// frameArena packs per-frame byte streams back to back. Offsets are aligned so each
// chunk can be bound directly.
type frameArena struct {
	data []byte
}

// push appends b at the next multiple of align and returns its offset.
func (a *frameArena) push(b []byte, align int) uint64 {
	off := alignUp(len(a.data), align)
	for len(a.data) < off {
		a.data = append(a.data, 0)
	}
	a.data = append(a.data, b...)
	return uint64(off)
}

func (a *frameArena) reset()   { a.data = a.data[:0] }
func (a *frameArena) len() int { return len(a.data) }

// indexCount is the number of indices a batch reads.
func indexCount(b *core.MeshBatch) int {
	if b.NumPrimitives <= 0 {
		return 0
	}
	if b.Topology == core.TopologyTriangleStrip {
		return b.NumPrimitives + 2
	}
	return b.NumPrimitives * 3
}

// validateBatch checks that b can be drawn as submitted.
func validateBatch(b *core.MeshBatch) error {
	if b.VertexFactory == nil {
		return fmt.Errorf("no vertex factory: %w", ErrInvalidBatch)
	}
	if b.NumPrimitives <= 0 {
		return fmt.Errorf("no primitives: %w", ErrInvalidBatch)
	}
	kind := b.VertexFactory.Kind()

	if b.Mesh != nil {
		lod := b.Mesh.LOD0()
		if lod == nil || b.Section < 0 || b.Section >= len(lod.Sections) {
			return fmt.Errorf("mesh %s section %d: %w", b.Mesh.Name, b.Section, ErrInvalidBatch)
		}
		sec := lod.Sections[b.Section]
		if sec.FirstIndex+indexCount(b) > len(lod.Indices) {
			return fmt.Errorf("mesh %s section %d reads past the index list: %w", b.Mesh.Name, b.Section, core.ErrBufferTooSmall)
		}
		if kind == core.VFMeshInstanced {
			if b.Instances == nil || b.NumInstances <= 0 {
				return fmt.Errorf("instanced draw without instances: %w", ErrInvalidBatch)
			}
			if len(b.Instances.Bytes()) < b.NumInstances*core.MeshInstanceSize {
				return fmt.Errorf("%d instances: %w", b.NumInstances, core.ErrBufferTooSmall)
			}
		}
		return nil
	}

	if want := core.VertexStride(kind); want == 0 || b.VertexStride != want {
		return fmt.Errorf("%v vertex stride %d: %w", kind, b.VertexStride, ErrInvalidBatch)
	}
	if b.NumVertices <= 0 || len(b.VertexData) < b.NumVertices*b.VertexStride {
		return fmt.Errorf("%d vertices: %w", b.NumVertices, core.ErrBufferTooSmall)
	}
	switch b.IndexStride {
	case 2:
		if b.NumVertices > 0xffff {
			return fmt.Errorf("%d vertices with 16-bit indices: %w", b.NumVertices, core.ErrIndexRangeExceeded)
		}
	case 4:
	default:
		return fmt.Errorf("index stride %d: %w", b.IndexStride, ErrInvalidBatch)
	}
	if len(b.IndexData) < indexCount(b)*b.IndexStride {
		return fmt.Errorf("%d indices: %w", indexCount(b), core.ErrBufferTooSmall)
	}
	return nil
}

func indexFormat(stride int) wgpu.IndexFormat {
	if stride == 2 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

type drawCmd struct {
	key           pipelineKey
	dpg           core.DepthPriorityGroup
	uniformOffset uint32
	indexCount    uint32

	vertexOffset, vertexSize uint64
	indexOffset, indexSize   uint64
	indexStride              int

	mesh         *meshEntry
	firstIndex   uint32
	instances    *wgpu.Buffer
	numInstances uint32
}

// DrawStats counts what a Drawer recorded this frame.
type DrawStats struct {
	Draws     int
	Triangles int
	Vertices  int
	Lines     int
	Rejected  int
}

// Drawer implements core.PrimitiveDrawer on top of a Renderer. Batches are copied into
// frame arenas as they arrive, since their scratch data is only valid during DrawMesh;
// Upload then writes the arenas once and Encode records the draws.
type Drawer struct {
	r     *Renderer
	lines *LinePass

	vertices frameArena
	indices  frameArena
	uniforms frameArena
	cmds     []drawCmd

	vb *wgpu.Buffer
	ib *wgpu.Buffer

	stats DrawStats
}

func NewDrawer(r *Renderer) *Drawer {
	return &Drawer{r: r, lines: newLinePass(r)}
}

func (d *Drawer) Stats() DrawStats {
	s := d.stats
	s.Lines = d.lines.Lines()
	return s
}

// Reset drops everything recorded for the previous frame.
func (d *Drawer) Reset() {
	d.vertices.reset()
	d.indices.reset()
	d.uniforms.reset()
	d.cmds = d.cmds[:0]
	d.lines.reset()
	d.stats = DrawStats{}
}

func (d *Drawer) DrawMesh(b *core.MeshBatch) int {
	if err := validateBatch(b); err != nil {
		d.stats.Rejected++
		d.r.log.Warnf("draw rejected: %v", err)
		return 0
	}
	cmd := drawCmd{
		key:        pipelineKey{kind: b.VertexFactory.Kind(), blend: blendClassFor(b.Material)},
		dpg:        b.DPG,
		indexCount: uint32(indexCount(b)),
	}

	if b.Mesh != nil {
		entry, err := d.r.meshes.get(b.Mesh)
		if err != nil {
			d.stats.Rejected++
			d.r.log.Warnf("draw rejected: %v", err)
			return 0
		}
		cmd.mesh = entry
		cmd.firstIndex = uint32(b.Mesh.LOD0().Sections[b.Section].FirstIndex)
		cmd.numInstances = 1
		if b.Instances != nil {
			gb, ok := b.Instances.GPU().(*Buffer)
			if !ok || gb.Raw() == nil {
				d.stats.Rejected++
				d.r.log.Warnf("draw rejected: instance buffer not uploaded")
				return 0
			}
			cmd.instances = gb.Raw()
			cmd.numInstances = uint32(b.NumInstances)
		}
		d.stats.Vertices += len(b.Mesh.LOD0().Vertices) / core.MeshVertexSize * int(cmd.numInstances)
		d.stats.Triangles += b.NumPrimitives * int(cmd.numInstances)
	} else {
		vb := b.VertexData[:b.NumVertices*b.VertexStride]
		ib := b.IndexData[:int(cmd.indexCount)*b.IndexStride]
		cmd.vertexOffset = d.vertices.push(vb, 4)
		cmd.vertexSize = uint64(len(vb))
		cmd.indexOffset = d.indices.push(ib, 4)
		cmd.indexSize = uint64(len(ib))
		cmd.indexStride = b.IndexStride
		d.stats.Vertices += b.NumVertices
		d.stats.Triangles += b.NumPrimitives
	}

	var u [drawUniformSize]byte
	packDraw(u[:], b)
	cmd.uniformOffset = uint32(d.uniforms.push(u[:], drawUniformStride))

	d.cmds = append(d.cmds, cmd)
	d.stats.Draws++
	return 1
}

func (d *Drawer) DrawLine(start, end mgl32.Vec3, color mgl32.Vec4, dpg core.DepthPriorityGroup) {
	d.lines.addLine(start, end, color, dpg)
}

func (d *Drawer) DrawPoint(pos mgl32.Vec3, color mgl32.Vec4, size float32, dpg core.DepthPriorityGroup) {
	for _, l := range (core.Gizmo{Type: core.GizmoPoint, P1: pos, Size: size}).Lines() {
		d.lines.addLine(l[0], l[1], color, dpg)
	}
}

// Upload writes the frame arenas to the device.
func (d *Drawer) Upload() error {
	if d.vertices.len() > 0 {
		if _, err := ensureBuffer(d.r.Device, "ParticleVertices", &d.vb, d.vertices.data, wgpu.BufferUsageVertex, 64*1024); err != nil {
			return err
		}
	}
	if d.indices.len() > 0 {
		if _, err := ensureBuffer(d.r.Device, "ParticleIndices", &d.ib, d.indices.data, wgpu.BufferUsageIndex, 16*1024); err != nil {
			return err
		}
	}
	if err := d.r.reserveDrawUniforms(d.uniforms.data); err != nil {
		return err
	}
	return d.lines.Upload()
}

// drawOrder returns the commands of dpg, opaque first, each group in submission order.
func drawOrder(cmds []drawCmd, dpg core.DepthPriorityGroup) []int {
	var order []int
	for _, translucent := range []bool{false, true} {
		for i := range cmds {
			if cmds[i].dpg == dpg && cmds[i].key.blend.translucent() == translucent {
				order = append(order, i)
			}
		}
	}
	return order
}

// Draw records the draws of dpg into pass, followed by its debug lines.
func (d *Drawer) Draw(pass *wgpu.RenderPassEncoder, dpg core.DepthPriorityGroup) {
	for _, i := range drawOrder(d.cmds, dpg) {
		cmd := &d.cmds[i]
		pl, err := d.r.pipeline(cmd.key)
		if err != nil {
			d.r.log.Errorf("%v", err)
			continue
		}
		pass.SetPipeline(pl)
		pass.SetBindGroup(0, d.r.bindGroup, []uint32{cmd.uniformOffset})
		if cmd.mesh != nil {
			pass.SetVertexBuffer(0, cmd.mesh.vertices, 0, wgpu.WholeSize)
			if cmd.instances != nil {
				pass.SetVertexBuffer(1, cmd.instances, 0, wgpu.WholeSize)
			}
			pass.SetIndexBuffer(cmd.mesh.indices, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			pass.DrawIndexed(cmd.indexCount, cmd.numInstances, cmd.firstIndex, 0, 0)
			continue
		}
		pass.SetVertexBuffer(0, d.vb, cmd.vertexOffset, cmd.vertexSize)
		pass.SetIndexBuffer(d.ib, indexFormat(cmd.indexStride), cmd.indexOffset, cmd.indexSize)
		pass.DrawIndexed(cmd.indexCount, 1, 0, 0, 0)
	}
	d.lines.Draw(pass, dpg)
}

// Encode records one render pass into target: world draws, then foreground draws on top,
// then overlays.
func (d *Drawer) Encode(encoder *wgpu.CommandEncoder, target *wgpu.TextureView, clear wgpu.Color, overlays ...func(*wgpu.RenderPassEncoder)) error {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ParticlePass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}},
	})
	for dpg := core.DPGWorld; dpg < core.NumDepthPriorityGroups; dpg++ {
		d.Draw(pass, dpg)
	}
	for _, o := range overlays {
		o(pass)
	}
	return pass.End()
}

func (d *Drawer) Release() {
	d.lines.Release()
	for _, b := range []**wgpu.Buffer{&d.vb, &d.ib} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
}
