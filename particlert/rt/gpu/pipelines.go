package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/shaders"
)

// blendClass groups material blend modes by the fixed-function blend state they need.
type blendClass int

const (
	blendOpaque blendClass = iota
	blendAlpha
	blendAdditive
	blendModulate
	numBlendClasses
)

var blendClassNames = [...]string{"opaque", "alpha", "additive", "modulate"}

func (c blendClass) String() string {
	if c >= 0 && int(c) < len(blendClassNames) {
		return blendClassNames[c]
	}
	return fmt.Sprintf("blendClass(%d)", int(c))
}

func (c blendClass) translucent() bool { return c != blendOpaque }

func blendClassFor(mp *core.MaterialProxy) blendClass {
	if mp == nil || mp.Material == nil {
		return blendOpaque
	}
	switch mp.Material.BlendMode {
	case core.BlendTranslucent:
		return blendAlpha
	case core.BlendAdditive:
		return blendAdditive
	case core.BlendModulate:
		return blendModulate
	}
	return blendOpaque
}

func (c blendClass) state() *wgpu.BlendState {
	switch c {
	case blendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	case blendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	case blendModulate:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorDst,
				DstFactor: wgpu.BlendFactorZero,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	}
	return &wgpu.BlendStateReplace
}

// stage names the shader module and entry points of a vertex factory.
type stage struct {
	module   string
	vertex   string
	fragment string
	topology wgpu.PrimitiveTopology
}

var moduleSources = map[string]string{
	"sprite":     shaders.SpriteModule,
	"subuv":      shaders.SubUVModule,
	"beam_trail": shaders.BeamTrailModule,
	"mesh":       shaders.MeshModule,
	"line":       shaders.LineModule,
}

func stageFor(kind core.VertexFactoryKind) (stage, error) {
	list := wgpu.PrimitiveTopologyTriangleList
	switch kind {
	case core.VFSprite:
		return stage{"sprite", "vs_main", "fs_main", list}, nil
	case core.VFSpriteDynamicParameter:
		return stage{"sprite", "vs_dynamic", "fs_main", list}, nil
	case core.VFSubUV:
		return stage{"subuv", "vs_subuv", "fs_subuv", list}, nil
	case core.VFSubUVDynamicParameter:
		return stage{"subuv", "vs_subuv_dynamic", "fs_subuv", list}, nil
	case core.VFBeamTrail:
		return stage{"beam_trail", "vs_main", "fs_main", wgpu.PrimitiveTopologyTriangleStrip}, nil
	case core.VFMesh:
		return stage{"mesh", "vs_main", "fs_main", list}, nil
	case core.VFMeshInstanced:
		return stage{"mesh", "vs_instanced", "fs_main", list}, nil
	}
	return stage{}, fmt.Errorf("vertex factory %v: %w", kind, ErrUnknownVertexFactory)
}

func spriteAttributes() []wgpu.VertexAttribute {
	return []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 24, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32, Offset: 36, ShaderLocation: 3},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 40, ShaderLocation: 4},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 5},
	}
}

func subUVAttributes() []wgpu.VertexAttribute {
	return append(spriteAttributes(),
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 64, ShaderLocation: 7},
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 72, ShaderLocation: 8},
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32, Offset: 80, ShaderLocation: 9},
	)
}

func dynamicParameter(offset int) wgpu.VertexAttribute {
	return wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x4, Offset: uint64(offset), ShaderLocation: 6}
}

// vertexLayouts returns the vertex buffer layouts of kind. Strides follow core's vertex
// layouts; the static mesh stream is core.MeshVertexSize.
func vertexLayouts(kind core.VertexFactoryKind) []wgpu.VertexBufferLayout {
	perVertex := func(stride int, attrs []wgpu.VertexAttribute) wgpu.VertexBufferLayout {
		return wgpu.VertexBufferLayout{
			ArrayStride: uint64(stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}
	mesh := perVertex(core.MeshVertexSize, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	})

	switch kind {
	case core.VFSprite:
		return []wgpu.VertexBufferLayout{perVertex(core.SpriteVertexSize, spriteAttributes())}
	case core.VFSpriteDynamicParameter:
		attrs := append(spriteAttributes(), dynamicParameter(core.SpriteVertexSize))
		return []wgpu.VertexBufferLayout{perVertex(core.SpriteVertexDynamicParameterSize, attrs)}
	case core.VFSubUV:
		return []wgpu.VertexBufferLayout{perVertex(core.SubUVVertexSize, subUVAttributes())}
	case core.VFSubUVDynamicParameter:
		attrs := append(subUVAttributes(), dynamicParameter(core.SubUVVertexSize))
		return []wgpu.VertexBufferLayout{perVertex(core.SubUVVertexDynamicParameterSize, attrs)}
	case core.VFBeamTrail:
		return []wgpu.VertexBufferLayout{perVertex(core.BeamTrailVertexSize, spriteAttributes())}
	case core.VFMesh:
		return []wgpu.VertexBufferLayout{mesh}
	case core.VFMeshInstanced:
		return []wgpu.VertexBufferLayout{mesh, {
			ArrayStride: core.MeshInstanceSize,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 3},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 4},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 24, ShaderLocation: 5},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 36, ShaderLocation: 6},
			},
		}}
	}
	return nil
}

type pipelineKey struct {
	kind  core.VertexFactoryKind
	blend blendClass
}

func (r *Renderer) shaderModule(name string) (*wgpu.ShaderModule, error) {
	if m, ok := r.modules[name]; ok {
		return m, nil
	}
	src, ok := moduleSources[name]
	if !ok {
		return nil, fmt.Errorf("shader module %q: %w", name, ErrUnknownVertexFactory)
	}
	m, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Particle " + name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %q: %w", name, err)
	}
	r.modules[name] = m
	return m, nil
}

// pipeline returns the cached render pipeline for key, building it on first use.
func (r *Renderer) pipeline(key pipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := r.pipelines[key]; ok {
		return p, nil
	}
	st, err := stageFor(key.kind)
	if err != nil {
		return nil, err
	}
	p, err := r.buildPipeline(fmt.Sprintf("Particle %v %v", key.kind, key.blend), st, vertexLayouts(key.kind), key.blend.state())
	if err != nil {
		return nil, err
	}
	r.pipelines[key] = p
	r.log.Debugf("built pipeline %v/%v", key.kind, key.blend)
	return p, nil
}

func (r *Renderer) buildPipeline(label string, st stage, layouts []wgpu.VertexBufferLayout, blend *wgpu.BlendState) (*wgpu.RenderPipeline, error) {
	module, err := r.shaderModule(st.module)
	if err != nil {
		return nil, err
	}
	p, err := r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: r.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: st.vertex,
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: st.fragment,
			Targets: []wgpu.ColorTargetState{{
				Format:    r.Format,
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  st.topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", label, err)
	}
	return p, nil
}
