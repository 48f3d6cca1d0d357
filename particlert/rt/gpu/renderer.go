// Package gpu is the wgpu renderer behind the particle render thread: vertex factories
// become render pipelines, per-frame vertex and index data go through frame arenas, and
// static meshes are uploaded once.
package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var (
	// ErrUnknownVertexFactory reports a vertex factory kind the renderer has no pipeline for.
	ErrUnknownVertexFactory = errors.New("unknown vertex factory")
	// ErrInvalidBatch reports a mesh batch that cannot be drawn as submitted.
	ErrInvalidBatch = errors.New("invalid mesh batch")
)

// Renderer owns the device-side state shared by every particle draw. Render thread only.
type Renderer struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Format wgpu.TextureFormat

	log core.Logger

	bindLayout     *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	modules        map[string]*wgpu.ShaderModule
	pipelines      map[pipelineKey]*wgpu.RenderPipeline

	cameraBuf  *wgpu.Buffer
	drawBuf    *wgpu.Buffer
	bindGroup  *wgpu.BindGroup
	cameraData [cameraUniformSize]byte

	meshes *meshCache
	live   [core.NumVertexFactoryKinds]int
}

func NewRenderer(device *wgpu.Device, format wgpu.TextureFormat, log core.Logger) (*Renderer, error) {
	r := &Renderer{
		Device:    device,
		Queue:     device.GetQueue(),
		Format:    format,
		log:       core.LoggerOr(log),
		modules:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	r.meshes = newMeshCache(device, r.log)

	var err error
	r.bindLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   cameraUniformSize,
					HasDynamicOffset: false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   drawUniformSize,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout: %w", err)
	}
	r.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ParticlePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	if _, err := ensureBuffer(device, "ParticleCamera", &r.cameraBuf, r.cameraData[:], wgpu.BufferUsageUniform, 0); err != nil {
		return nil, err
	}
	if err := r.reserveDrawUniforms(nil); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateVertexFactory validates kind and counts the factory as live. Pipelines are built
// lazily per blend class on first draw.
func (r *Renderer) CreateVertexFactory(kind core.VertexFactoryKind) (core.VertexFactory, error) {
	if _, err := stageFor(kind); err != nil {
		return nil, err
	}
	r.live[kind]++
	return &vertexFactory{r: r, kind: kind}, nil
}

func (r *Renderer) CreateInstanceBuffer(size int) (core.GPUBuffer, error) {
	return newBuffer(r.Device, "ParticleInstances", size, wgpu.BufferUsageVertex)
}

// LiveFactories is the number of unreleased vertex factories of kind.
func (r *Renderer) LiveFactories(kind core.VertexFactoryKind) int { return r.live[kind] }

// UpdateCamera uploads the view the next frame is drawn from.
func (r *Renderer) UpdateCamera(view *core.SceneView) error {
	packCamera(r.cameraData[:], view)
	_, err := ensureBuffer(r.Device, "ParticleCamera", &r.cameraBuf, r.cameraData[:], wgpu.BufferUsageUniform, 0)
	return err
}

// reserveDrawUniforms uploads the per-draw uniform arena, recreating the bind group when
// the buffer had to grow.
func (r *Renderer) reserveDrawUniforms(data []byte) error {
	recreated, err := ensureBuffer(r.Device, "ParticleDraws", &r.drawBuf, data, wgpu.BufferUsageUniform, drawUniformStride)
	if err != nil {
		return err
	}
	if !recreated && r.bindGroup != nil {
		return nil
	}
	if r.bindGroup != nil {
		r.bindGroup.Release()
	}
	r.bindGroup, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleBG",
		Layout: r.bindLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.cameraBuf, Size: cameraUniformSize},
			{Binding: 1, Buffer: r.drawBuf, Size: drawUniformSize},
		},
	})
	if err != nil {
		return fmt.Errorf("particle bind group: %w", err)
	}
	return nil
}

// Release frees every device object the renderer created.
func (r *Renderer) Release() {
	r.meshes.Release()
	for k, p := range r.pipelines {
		p.Release()
		delete(r.pipelines, k)
	}
	for k, m := range r.modules {
		m.Release()
		delete(r.modules, k)
	}
	if r.bindGroup != nil {
		r.bindGroup.Release()
		r.bindGroup = nil
	}
	for _, b := range []**wgpu.Buffer{&r.cameraBuf, &r.drawBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Release()
		r.pipelineLayout = nil
	}
	if r.bindLayout != nil {
		r.bindLayout.Release()
		r.bindLayout = nil
	}
}

type vertexFactory struct {
	r        *Renderer
	kind     core.VertexFactoryKind
	released bool
}

func (f *vertexFactory) Kind() core.VertexFactoryKind { return f.kind }

func (f *vertexFactory) Release() {
	if f.released {
		return
	}
	f.released = true
	f.r.live[f.kind]--
}
