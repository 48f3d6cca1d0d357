// Package emitter turns per-frame emitter snapshots into vertex and index streams.
//
// Each variant wraps one core.Source. Construction happens on the game thread and only
// reads the snapshot; everything that touches renderer resources takes a
// *core.RenderContext and runs on the render thread.
package emitter

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// EmitterData is one emitter's frame state as seen by the render thread.
type EmitterData interface {
	Kind() core.EmitterKind
	Source() core.Source

	// Init resolves the material proxy and creates the vertex factory. Render thread.
	Init(rc *core.RenderContext, selected bool) error
	Valid() bool
	DPG() core.DepthPriorityGroup
	// UsesDynamicMeshElementData is false for emitters drawing static mesh data.
	UsesDynamicMeshElementData() bool
	MaterialRelevance() core.MaterialRelevance
	// Bounds is a world-space bounding sphere of the active particles.
	Bounds(localToWorld mgl32.Mat4) (mgl32.Vec3, float32)

	// Render submits this emitter's draws and returns the number of draw calls.
	Render(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) int
	// Release frees renderer resources. Render thread.
	Release(rc *core.RenderContext)
}

// New wraps src in the matching EmitterData variant.
func New(src core.Source) (EmitterData, error) {
	switch s := src.(type) {
	case *core.SubUVSource:
		return NewSubUV(s), nil
	case *core.SpriteSource:
		return NewSprite(s), nil
	case *core.MeshSource:
		return NewMesh(s), nil
	case *core.BeamSource:
		return NewBeam(s), nil
	case *core.TrailSource:
		return NewTrail(s), nil
	case nil:
		return nil, fmt.Errorf("emitter: nil source")
	}
	return nil, fmt.Errorf("emitter: unsupported source %T", src)
}

type base struct {
	src core.Source
	sb  *core.SourceBase

	// material is kept after Init clears the snapshot reference, for relevance queries.
	material  *core.Material
	relevance core.MaterialRelevance
	proxy     *core.MaterialProxy

	vfKind core.VertexFactoryKind
	vf     core.VertexFactory

	valid    bool
	released bool
	dpg      core.DepthPriorityGroup
	local    bool

	boundsCenter mgl32.Vec3
	boundsRadius float32

	// scratch, render thread only
	vertices []byte
	indices  []byte
}

func newBase(src core.Source, vfKind core.VertexFactoryKind, local bool) base {
	sb := src.Base()
	b := base{
		src:      src,
		sb:       sb,
		material: sb.Material,
		vfKind:   vfKind,
		valid:    true,
		local:    local,
	}
	b.relevance = b.material.Relevance()
	b.boundsCenter, b.boundsRadius = particleBounds(sb)
	return b
}

func (b *base) Kind() core.EmitterKind             { return b.src.Kind() }
func (b *base) Source() core.Source                { return b.src }
func (b *base) Valid() bool                        { return b.valid && !b.released }
func (b *base) DPG() core.DepthPriorityGroup       { return b.dpg }
func (b *base) SetDPG(dpg core.DepthPriorityGroup) { b.dpg = dpg }
func (b *base) UsesDynamicMeshElementData() bool   { return true }

func (b *base) MaterialRelevance() core.MaterialRelevance { return b.relevance }

// MaterialProxy is the proxy resolved by Init, nil before.
func (b *base) MaterialProxy() *core.MaterialProxy { return b.proxy }

func (b *base) VertexFactory() core.VertexFactory { return b.vf }

func (b *base) activeCount() int {
	if b.sb == nil || len(b.sb.ParticleData) == 0 {
		return 0
	}
	return b.sb.ActiveParticleCount
}

func (b *base) Bounds(localToWorld mgl32.Mat4) (mgl32.Vec3, float32) {
	if !b.local {
		return b.boundsCenter, b.boundsRadius
	}
	c := core.TransformPosition(localToWorld, b.boundsCenter)
	s := math32.Max(localToWorld.Col(0).Vec3().Len(), math32.Max(localToWorld.Col(1).Vec3().Len(), localToWorld.Col(2).Vec3().Len()))
	return c, b.boundsRadius * s
}

// Init resolves the material for the selection state and drops the snapshot's reference.
func (b *base) Init(rc *core.RenderContext, selected bool) error {
	b.initMaterial(rc, selected)
	return b.ensureVertexFactory(rc)
}

func (b *base) initMaterial(rc *core.RenderContext, selected bool) {
	mat := b.material
	if mat == nil && rc != nil {
		mat = rc.DefaultMaterial
		b.relevance = mat.Relevance()
	}
	b.proxy = mat.RenderProxy(selected)
	b.sb.Material = nil
}

func (b *base) ensureVertexFactory(rc *core.RenderContext) error {
	if b.vf != nil {
		return nil
	}
	if rc == nil || rc.Resources == nil {
		return fmt.Errorf("emitter %s: no resource factory", b.Kind())
	}
	vf, err := rc.Resources.CreateVertexFactory(b.vfKind)
	if err != nil {
		return fmt.Errorf("emitter %s: create %s vertex factory: %w", b.Kind(), b.vfKind, err)
	}
	b.vf = vf
	return nil
}

func (b *base) Release(rc *core.RenderContext) {
	if b.vf != nil {
		b.vf.Release()
		b.vf = nil
	}
	b.vertices = nil
	b.indices = nil
	b.released = true
}

// worldTransform is what positions are multiplied by in the vertex shader.
func (b *base) worldTransform(localToWorld mgl32.Mat4) mgl32.Mat4 {
	if b.local {
		return localToWorld
	}
	return mgl32.Ident4()
}

// toWorld maps a particle-space position into world space.
func (b *base) toWorld(localToWorld mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	if b.local {
		return core.TransformPosition(localToWorld, p)
	}
	return p
}

func particleBounds(sb *core.SourceBase) (mgl32.Vec3, float32) {
	if sb == nil || sb.ActiveParticleCount == 0 || len(sb.ParticleData) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo := core.ParticleLocation(sb.Record(0))
	hi := lo
	var maxSize float32
	for i := 0; i < sb.ActiveParticleCount; i++ {
		rec := sb.Record(i)
		p := core.ParticleLocation(rec)
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
		sz := core.ReadParticle(rec).Size
		maxSize = math32.Max(maxSize, math32.Max(math32.Abs(sz.X()), math32.Max(math32.Abs(sz.Y()), math32.Abs(sz.Z()))))
	}
	scale := math32.Max(math32.Abs(sb.Scale.X()), math32.Max(math32.Abs(sb.Scale.Y()), math32.Abs(sb.Scale.Z())))
	center := lo.Add(hi).Mul(0.5)
	return center, hi.Sub(center).Len() + maxSize*scale
}

// extendBounds grows a sphere to include p.
func extendBounds(center mgl32.Vec3, radius float32, p mgl32.Vec3) float32 {
	return math32.Max(radius, p.Sub(center).Len())
}

func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

func scaleSize(size, scale mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{size.X() * scale.X(), size.Y() * scale.Y(), size.Z() * scale.Z()}
}

var identityPrimitive = core.PrimitiveInfo{LocalToWorld: mgl32.Ident4()}

func primOrDefault(prim *core.PrimitiveInfo) *core.PrimitiveInfo {
	if prim == nil {
		p := identityPrimitive
		return &p
	}
	return prim
}

// drawMarkers is the Point and Cross debug stand-in for the first n particles.
func (b *base) drawMarkers(prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer, mode core.RenderMode, n int) {
	for i := 0; i < n; i++ {
		p := b.sb.Particle(i)
		pos := b.toWorld(prim.LocalToWorld, p.Location)
		size := p.Size.X() * b.sb.Scale.X()
		if mode == core.RenderPoint {
			pdi.DrawPoint(pos, p.Color, size, b.dpg)
		} else {
			core.DrawCross(pdi, pos, size*0.5, p.Color, b.dpg)
		}
	}
}
