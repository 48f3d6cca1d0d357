package gpu

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/particles/particlert/rt/shaders"
)

// TextVertexSize matches TextIn of text.wgsl: position vec2, uv vec2, color vec4.
const TextVertexSize = 32

// TextPass draws overlay text from an R8 glyph atlas.
type TextPass struct {
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.RenderPipeline
	atlas    *wgpu.Texture
	view     *wgpu.TextureView
	sampler  *wgpu.Sampler
	group    *wgpu.BindGroup
	buffer   *wgpu.Buffer
	count    uint32
}

func NewTextPass(r *Renderer, atlas *image.Alpha) (*TextPass, error) {
	p := &TextPass{device: r.Device, queue: r.Queue}
	w, h := atlas.Bounds().Dx(), atlas.Bounds().Dy()

	var err error
	p.atlas, err = r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("text atlas: %w", err)
	}
	err = r.Queue.WriteTexture(p.atlas.AsImageCopy(), atlas.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(atlas.Stride),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("text atlas upload: %w", err)
	}
	if p.view, err = p.atlas.CreateView(nil); err != nil {
		p.Release()
		return nil, fmt.Errorf("text atlas view: %w", err)
	}
	p.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("text sampler: %w", err)
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("text shader: %w", err)
	}
	defer module.Release()

	p.pipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: TextVertexSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.Format,
				Blend:     blendAlpha.state(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("text pipeline: %w", err)
	}

	p.group, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.view},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("text bind group: %w", err)
	}
	return p, nil
}

// Update uploads the vertices drawn by the next Draw.
func (p *TextPass) Update(vertices []byte) error {
	p.count = uint32(len(vertices) / TextVertexSize)
	if p.count == 0 {
		return nil
	}
	_, err := ensureBuffer(p.device, "Text VB", &p.buffer, vertices, wgpu.BufferUsageVertex, 0)
	return err
}

func (p *TextPass) Draw(pass *wgpu.RenderPassEncoder) {
	if p.count == 0 || p.buffer == nil {
		return
	}
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.group, nil)
	pass.SetVertexBuffer(0, p.buffer, 0, wgpu.WholeSize)
	pass.Draw(p.count, 1, 0, 0)
}

func (p *TextPass) Release() {
	if p.group != nil {
		p.group.Release()
	}
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.sampler != nil {
		p.sampler.Release()
	}
	if p.view != nil {
		p.view.Release()
	}
	if p.atlas != nil {
		p.atlas.Release()
	}
	if p.buffer != nil {
		p.buffer.Release()
	}
	*p = TextPass{}
}
