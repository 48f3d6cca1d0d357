// Package coretest provides GPU-free stand-ins for the renderer collaborators.
package coretest

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var (
	_ core.ResourceFactory = (*Resources)(nil)
	_ core.PrimitiveDrawer = (*Drawer)(nil)
)

// Resources is a ResourceFactory that counts creations and releases.
type Resources struct {
	FactoriesCreated  atomic.Int64
	FactoriesReleased atomic.Int64
	BuffersCreated    atomic.Int64
	BuffersReleased   atomic.Int64
	BufferWrites      atomic.Int64

	// FailFactories makes CreateVertexFactory return an error.
	FailFactories bool
}

func NewResources() *Resources { return &Resources{} }

type vertexFactory struct {
	owner    *Resources
	kind     core.VertexFactoryKind
	released atomic.Bool
}

func (f *vertexFactory) Kind() core.VertexFactoryKind { return f.kind }

func (f *vertexFactory) Release() {
	if f.released.CompareAndSwap(false, true) {
		f.owner.FactoriesReleased.Add(1)
	}
}

type buffer struct {
	owner    *Resources
	data     []byte
	released atomic.Bool
}

func (b *buffer) Size() int { return len(b.data) }

func (b *buffer) Write(data []byte) error {
	if len(data) > len(b.data) {
		return core.ErrBufferTooSmall
	}
	copy(b.data, data)
	b.owner.BufferWrites.Add(1)
	return nil
}

func (b *buffer) Release() {
	if b.released.CompareAndSwap(false, true) {
		b.owner.BuffersReleased.Add(1)
	}
}

func (r *Resources) CreateVertexFactory(kind core.VertexFactoryKind) (core.VertexFactory, error) {
	if r.FailFactories {
		return nil, core.ErrPoolExhausted
	}
	r.FactoriesCreated.Add(1)
	return &vertexFactory{owner: r, kind: kind}, nil
}

func (r *Resources) CreateInstanceBuffer(size int) (core.GPUBuffer, error) {
	r.BuffersCreated.Add(1)
	return &buffer{owner: r, data: make([]byte, size)}, nil
}

// LiveFactories is created minus released.
func (r *Resources) LiveFactories() int64 {
	return r.FactoriesCreated.Load() - r.FactoriesReleased.Load()
}

// NewRenderContext builds a RenderContext over r with a nop logger.
func NewRenderContext(r *Resources) *core.RenderContext {
	return &core.RenderContext{
		Resources:       r,
		DefaultMaterial: core.NewMaterial("default", core.BlendOpaque, core.LightingLit),
		Garbage:         core.NewReleaseQueue(0),
		Log:             core.NewNopLogger(),
	}
}

// Batch is a recorded draw with its scratch data copied out.
type Batch struct {
	core.MeshBatch
	Vertices []byte
	Indices  []byte
}

type Line struct {
	Start, End mgl32.Vec3
	Color      mgl32.Vec4
	DPG        core.DepthPriorityGroup
}

type Point struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec4
	Size  float32
	DPG   core.DepthPriorityGroup
}

// Drawer records everything submitted to it.
type Drawer struct {
	mu      sync.Mutex
	Batches []Batch
	Lines   []Line
	Points  []Point
}

func NewDrawer() *Drawer { return &Drawer{} }

func (d *Drawer) DrawMesh(b *core.MeshBatch) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Batches = append(d.Batches, Batch{
		MeshBatch: *b,
		Vertices:  bytes.Clone(b.VertexData),
		Indices:   bytes.Clone(b.IndexData),
	})
	return 1
}

func (d *Drawer) DrawLine(start, end mgl32.Vec3, color mgl32.Vec4, dpg core.DepthPriorityGroup) {
	d.mu.Lock()
	d.Lines = append(d.Lines, Line{Start: start, End: end, Color: color, DPG: dpg})
	d.mu.Unlock()
}

func (d *Drawer) DrawPoint(pos mgl32.Vec3, color mgl32.Vec4, size float32, dpg core.DepthPriorityGroup) {
	d.mu.Lock()
	d.Points = append(d.Points, Point{Pos: pos, Color: color, Size: size, DPG: dpg})
	d.mu.Unlock()
}

func (d *Drawer) Reset() {
	d.mu.Lock()
	d.Batches, d.Lines, d.Points = nil, nil, nil
	d.mu.Unlock()
}

// Releasable counts Release calls.
type Releasable struct {
	Count atomic.Int64
}

func (r *Releasable) Release() { r.Count.Add(1) }
