package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// lineVertexSize matches LineIn of line.wgsl: position vec3, color vec4.
const lineVertexSize = 28

// LinePass draws the debug lines emitted through PrimitiveDrawer.DrawLine and DrawPoint,
// one line list per depth priority group.
type LinePass struct {
	r        *Renderer
	pipeline *wgpu.RenderPipeline
	buffer   *wgpu.Buffer

	vertices [core.NumDepthPriorityGroups][]byte
	offsets  [core.NumDepthPriorityGroups]uint64
	upload   []byte
}

func newLinePass(r *Renderer) *LinePass {
	return &LinePass{r: r}
}

func (p *LinePass) addLine(start, end mgl32.Vec3, color mgl32.Vec4, dpg core.DepthPriorityGroup) {
	if dpg < 0 || dpg >= core.NumDepthPriorityGroups {
		dpg = core.DPGWorld
	}
	p.vertices[dpg] = appendLineVertex(p.vertices[dpg], start, color)
	p.vertices[dpg] = appendLineVertex(p.vertices[dpg], end, color)
}

func appendLineVertex(b []byte, pos mgl32.Vec3, color mgl32.Vec4) []byte {
	var v [lineVertexSize]byte
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(v[i*4:], math.Float32bits(pos[i]))
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(v[12+i*4:], math.Float32bits(color[i]))
	}
	return append(b, v[:]...)
}

// Lines is the number of queued line segments over all groups.
func (p *LinePass) Lines() int {
	n := 0
	for _, v := range p.vertices {
		n += len(v) / (2 * lineVertexSize)
	}
	return n
}

func (p *LinePass) reset() {
	for i := range p.vertices {
		p.vertices[i] = p.vertices[i][:0]
	}
}

// Upload packs every group into one vertex buffer.
func (p *LinePass) Upload() error {
	p.upload = p.upload[:0]
	for i, v := range p.vertices {
		p.offsets[i] = uint64(len(p.upload))
		p.upload = append(p.upload, v...)
	}
	if len(p.upload) == 0 {
		return nil
	}
	_, err := ensureBuffer(p.r.Device, "ParticleLines", &p.buffer, p.upload, wgpu.BufferUsageVertex, 128*lineVertexSize)
	return err
}

func (p *LinePass) ensurePipeline() (*wgpu.RenderPipeline, error) {
	if p.pipeline != nil {
		return p.pipeline, nil
	}
	pl, err := p.r.buildPipeline("ParticleLines", stage{
		module:   "line",
		vertex:   "vs_main",
		fragment: "fs_main",
		topology: wgpu.PrimitiveTopologyLineList,
	}, []wgpu.VertexBufferLayout{{
		ArrayStride: lineVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
		},
	}}, blendAlpha.state())
	if err != nil {
		return nil, err
	}
	p.pipeline = pl
	return pl, nil
}

// Draw records the lines of dpg into pass. Upload must have run this frame.
func (p *LinePass) Draw(pass *wgpu.RenderPassEncoder, dpg core.DepthPriorityGroup) {
	n := len(p.vertices[dpg])
	if n == 0 || p.buffer == nil {
		return
	}
	pl, err := p.ensurePipeline()
	if err != nil {
		p.r.log.Errorf("line pipeline: %v", err)
		return
	}
	pass.SetPipeline(pl)
	pass.SetBindGroup(0, p.r.bindGroup, []uint32{0})
	pass.SetVertexBuffer(0, p.buffer, p.offsets[dpg], uint64(n))
	pass.Draw(uint32(n/lineVertexSize), 1, 0, 0)
}

func (p *LinePass) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
}
