package proxy

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// State is the lifecycle of a SceneProxy. It is advisory outside the render thread.
type State int32

const (
	StateUninitialized State = iota
	StateHasCurrentData
	StatePendingUpdate
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHasCurrentData:
		return "current"
	case StatePendingUpdate:
		return "pending"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ProxyDesc is the component state snapshotted when the proxy is created.
type ProxyDesc struct {
	LocalToWorld mgl32.Mat4
	Selected     bool
	CastShadow   bool
	// MaxDrawDistance culls the system beyond this distance; 0 disables.
	MaxDrawDistance    float32
	ComponentMaterials []*core.Material
	Buffering          core.BufferingStrategy
}

// ViewRelevance answers what a view needs to do with a proxy.
type ViewRelevance struct {
	Visible bool
	// Dynamic is set when the proxy has per-frame vertex data to draw.
	Dynamic bool
	// Static is set when some emitter draws static mesh data.
	Static     bool
	CastShadow bool
	Material   core.MaterialRelevance
}

type lodState struct {
	frame    uint64
	valid    bool
	distance float32
	origin   mgl32.Vec3
}

// SceneProxy is the render thread's stand-in for one particle system component. The game
// thread talks to it only through UpdateData, SetTransform and Release, which enqueue
// commands; everything else runs on the render thread.
type SceneProxy struct {
	ID uuid.UUID

	rt *RenderThread

	state   atomic.Int32
	pending atomic.Int32
	// lodBits publishes the pending LOD distance to the game thread.
	lodBits atomic.Uint32

	// render thread only
	prim            core.PrimitiveInfo
	maxDrawDistance float32
	buffers         frameBuffers
	relevance       core.MaterialRelevance
	hasStatic       bool
	hasDynamic      bool
	lod             lodState
	released        bool
}

func NewSceneProxy(rt *RenderThread, desc ProxyDesc) *SceneProxy {
	p := &SceneProxy{
		ID: uuid.New(),
		rt: rt,
		prim: core.PrimitiveInfo{
			LocalToWorld:       desc.LocalToWorld,
			Selected:           desc.Selected,
			CastShadow:         desc.CastShadow,
			ComponentMaterials: desc.ComponentMaterials,
		},
		maxDrawDistance: desc.MaxDrawDistance,
		buffers:         newFrameBuffers(desc.Buffering),
	}
	if p.prim.LocalToWorld == (mgl32.Mat4{}) {
		p.prim.LocalToWorld = mgl32.Ident4()
	}
	p.lodBits.Store(math.Float32bits(-1))
	return p
}

func (p *SceneProxy) State() State { return State(p.state.Load()) }

// UpdateData hands data to the render thread, which installs it as current. Ownership
// of data moves with the call. Updates apply in call order.
func (p *SceneProxy) UpdateData(data *DynamicParticleData) error {
	if p.State() == StateReleased {
		return core.ErrProxyReleased
	}
	p.pending.Add(1)
	p.state.CompareAndSwap(int32(StateHasCurrentData), int32(StatePendingUpdate))
	err := p.rt.Enqueue("particle proxy update", func(rc *core.RenderContext) {
		p.applyUpdate(rc, data)
	})
	if err != nil {
		p.pending.Add(-1)
		return fmt.Errorf("proxy %s update: %w", p.ID, err)
	}
	return nil
}

func (p *SceneProxy) applyUpdate(rc *core.RenderContext, data *DynamicParticleData) {
	remaining := p.pending.Add(-1)
	if p.released {
		data.Release(rc)
		return
	}
	if err := data.Init(rc, p.prim.Selected); err != nil {
		rc.Logger().Warnf("proxy %s: %v", p.ID, err)
	}
	p.buffers.Swap(rc, data)

	p.relevance = data.Relevance()
	p.hasStatic, p.hasDynamic = false, false
	if data.Valid() {
		for _, e := range data.Emitters {
			if e.UsesDynamicMeshElementData() {
				p.hasDynamic = true
			} else {
				p.hasStatic = true
			}
		}
		if data.NeedsLODDistanceUpdate {
			p.lod.valid = false
		}
	}

	next := StateHasCurrentData
	if remaining > 0 {
		next = StatePendingUpdate
	}
	for {
		cur := p.state.Load()
		if State(cur) == StateReleased || p.state.CompareAndSwap(cur, int32(next)) {
			break
		}
	}
}

// SetTransform updates the component transform seen by the render thread.
func (p *SceneProxy) SetTransform(localToWorld mgl32.Mat4) error {
	if p.State() == StateReleased {
		return core.ErrProxyReleased
	}
	return p.rt.Enqueue("particle proxy transform", func(*core.RenderContext) {
		p.prim.LocalToWorld = localToWorld
	})
}

// Release enqueues the teardown of every resource the proxy holds. The proxy is unusable
// afterwards.
func (p *SceneProxy) Release() error {
	if State(p.state.Swap(int32(StateReleased))) == StateReleased {
		return core.ErrProxyReleased
	}
	return p.rt.Enqueue("particle proxy release", func(rc *core.RenderContext) {
		p.buffers.Release(rc)
		p.released = true
	})
}

// Current is the data drawn this frame. Render thread.
func (p *SceneProxy) Current() *DynamicParticleData { return p.buffers.Current() }

// Previous is the data kept by double buffering, nil otherwise. Render thread.
func (p *SceneProxy) Previous() *DynamicParticleData { return p.buffers.Previous() }

// DetermineLODDistance records the camera distance for frame. The first view of a frame
// sets it; further views of the same frame keep the minimum. Render thread.
func (p *SceneProxy) DetermineLODDistance(view *core.SceneView, frame uint64) {
	origin := p.prim.LocalToWorld.Col(3).Vec3()
	factor := view.LODDistanceFactor
	if factor <= 0 {
		factor = 1
	}
	dist := view.ViewOrigin.Sub(origin).Len() * factor
	if !p.lod.valid || p.lod.frame != frame {
		p.lod = lodState{frame: frame, valid: true, distance: dist, origin: origin}
	} else if dist < p.lod.distance {
		p.lod.distance = dist
		p.lod.origin = origin
	}
	p.lodBits.Store(math.Float32bits(p.lod.distance))
}

// LODDistance is the last distance published by DetermineLODDistance, safe to read from
// the game thread. ok is false before the first one.
func (p *SceneProxy) LODDistance() (float32, bool) {
	d := math.Float32frombits(p.lodBits.Load())
	return d, d >= 0
}

// PreRenderView runs once per frame before drawing, with every view of the frame.
// Render thread.
func (p *SceneProxy) PreRenderView(views []*core.SceneView, frame uint64) {
	data := p.buffers.Current()
	if !data.Valid() || !data.NeedsLODDistanceUpdate {
		return
	}
	for _, v := range views {
		if v != nil {
			p.DetermineLODDistance(v, frame)
		}
	}
}

// GetViewRelevance reports whether view should draw the proxy. Render thread.
func (p *SceneProxy) GetViewRelevance(view *core.SceneView) ViewRelevance {
	data := p.buffers.Current()
	if p.released || !data.Valid() {
		return ViewRelevance{}
	}
	r := ViewRelevance{
		Dynamic:    p.hasDynamic,
		Static:     p.hasStatic,
		CastShadow: p.prim.CastShadow,
		Material:   p.relevance,
	}
	center, radius, ok := data.Bounds(p.prim.LocalToWorld)
	if !ok {
		return r
	}
	if view == nil {
		r.Visible = true
		return r
	}
	if p.maxDrawDistance > 0 && view.ViewOrigin.Sub(center).Len()-radius > p.maxDrawDistance {
		return r
	}
	r.Visible = view.IntersectsSphere(center, radius)
	return r
}

// DrawDynamicElements draws every valid emitter that belongs to pass and returns the
// number of draw calls. Missing or released data draws nothing. Render thread.
func (p *SceneProxy) DrawDynamicElements(rc *core.RenderContext, view *core.SceneView, pass core.DrawPass, pdi core.PrimitiveDrawer) int {
	data := p.buffers.Current()
	if p.released || !data.Valid() {
		return 0
	}
	draws := 0
	for _, e := range data.Emitters {
		if e == nil || !e.Valid() || e.DPG() != pass.DPG {
			continue
		}
		if e.UsesDynamicMeshElementData() != pass.DynamicData {
			continue
		}
		draws += e.Render(rc, view, &p.prim, pdi)
	}
	return draws
}
