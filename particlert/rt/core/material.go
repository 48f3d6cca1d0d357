package core

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type BlendMode int

const (
	BlendOpaque BlendMode = iota
	BlendMasked
	BlendTranslucent
	BlendAdditive
	BlendModulate
)

type LightingModel int

const (
	LightingLit LightingModel = iota
	LightingUnlit
)

// Material is the CPU-side material asset referenced by Source snapshots.
type Material struct {
	ID        uuid.UUID
	Name      string
	BlendMode BlendMode
	Lighting  LightingModel

	// Distortion marks refraction materials, which are drawn sorted like translucency.
	Distortion bool
	// DynamicParameter marks materials that read the per-particle dynamic parameter.
	DynamicParameter bool
	// InstancedMeshParticles opts the material into the hardware-instanced mesh path.
	InstancedMeshParticles bool

	BaseColor mgl32.Vec4

	proxyOnce sync.Once
	proxies   [2]*MaterialProxy
}

func NewMaterial(name string, blend BlendMode, lighting LightingModel) *Material {
	return &Material{
		ID:        uuid.New(),
		Name:      name,
		BlendMode: blend,
		Lighting:  lighting,
		BaseColor: mgl32.Vec4{1, 1, 1, 1},
	}
}

// MaterialProxy is the render-side handle of a material for one selection state.
type MaterialProxy struct {
	Material *Material
	Selected bool
}

// RenderProxy returns the proxy for the selected or unselected state. The proxies live as
// long as the material, so emitters may drop their Source reference once resolved.
func (m *Material) RenderProxy(selected bool) *MaterialProxy {
	if m == nil {
		return nil
	}
	m.proxyOnce.Do(func() {
		m.proxies[0] = &MaterialProxy{Material: m}
		m.proxies[1] = &MaterialProxy{Material: m, Selected: true}
	})
	if selected {
		return m.proxies[1]
	}
	return m.proxies[0]
}

func (m *Material) IsTranslucent() bool {
	switch m.BlendMode {
	case BlendTranslucent, BlendAdditive, BlendModulate:
		return true
	}
	return false
}

// NeedsSorting reports whether particles drawn with m must be ordered back to front.
func (m *Material) NeedsSorting() bool {
	if m == nil {
		return false
	}
	return (m.IsTranslucent() && m.Lighting == LightingUnlit) || m.Distortion
}

func (m *Material) Relevance() MaterialRelevance {
	if m == nil {
		return MaterialRelevance{}
	}
	return MaterialRelevance{
		Opaque:      m.BlendMode == BlendOpaque,
		Masked:      m.BlendMode == BlendMasked,
		Translucent: m.IsTranslucent(),
		Distortion:  m.Distortion,
		Lit:         m.Lighting == LightingLit,
	}
}

// MaterialRelevance summarises which passes a primitive's materials touch.
type MaterialRelevance struct {
	Opaque      bool
	Masked      bool
	Translucent bool
	Distortion  bool
	Lit         bool
}

func (r MaterialRelevance) Merge(o MaterialRelevance) MaterialRelevance {
	return MaterialRelevance{
		Opaque:      r.Opaque || o.Opaque,
		Masked:      r.Masked || o.Masked,
		Translucent: r.Translucent || o.Translucent,
		Distortion:  r.Distortion || o.Distortion,
		Lit:         r.Lit || o.Lit,
	}
}
