package core

import (
	"fmt"
	"sync"
)

// VertexFactoryKind names a vertex layout understood by the renderer.
type VertexFactoryKind int

const (
	VFSprite VertexFactoryKind = iota
	VFSpriteDynamicParameter
	VFSubUV
	VFSubUVDynamicParameter
	VFBeamTrail
	VFMesh
	VFMeshInstanced
	NumVertexFactoryKinds
)

var vertexFactoryNames = [...]string{
	VFSprite:                 "Sprite",
	VFSpriteDynamicParameter: "SpriteDynamicParameter",
	VFSubUV:                  "SubUV",
	VFSubUVDynamicParameter:  "SubUVDynamicParameter",
	VFBeamTrail:              "BeamTrail",
	VFMesh:                   "Mesh",
	VFMeshInstanced:          "MeshInstanced",
}

func (k VertexFactoryKind) String() string {
	if k >= 0 && int(k) < len(vertexFactoryNames) {
		return vertexFactoryNames[k]
	}
	return fmt.Sprintf("VertexFactoryKind(%d)", int(k))
}

// VertexFactory is a renderer-side vertex layout handle. Render thread only.
type VertexFactory interface {
	Kind() VertexFactoryKind
	Release()
}

// GPUBuffer is a renderer-side buffer. Write locks, copies and unlocks; render thread only.
type GPUBuffer interface {
	Size() int
	Write(data []byte) error
	Release()
}

// ResourceFactory creates renderer resources. Only reachable through a RenderContext.
type ResourceFactory interface {
	CreateVertexFactory(kind VertexFactoryKind) (VertexFactory, error)
	CreateInstanceBuffer(size int) (GPUBuffer, error)
}

// Releasable is anything the release queue can free.
type Releasable interface {
	Release()
}

type deferredRelease struct {
	fence uint64
	res   Releasable
}

// ReleaseQueue defers releases until the GPU is done with a resource: an item tagged with
// fence f is released once a frame >= f+lag has completed.
type ReleaseQueue struct {
	mu      sync.Mutex
	lag     uint64
	pending []deferredRelease
}

func NewReleaseQueue(lag int) *ReleaseQueue {
	if lag < 0 {
		lag = 0
	}
	return &ReleaseQueue{lag: uint64(lag)}
}

// Defer schedules res for release after fence.
func (q *ReleaseQueue) Defer(res Releasable, fence uint64) {
	if res == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, deferredRelease{fence: fence, res: res})
	q.mu.Unlock()
}

// Drain releases every item whose fence has passed and returns how many were released.
func (q *ReleaseQueue) Drain(completed uint64) int {
	q.mu.Lock()
	var ready []Releasable
	kept := q.pending[:0]
	for _, d := range q.pending {
		if completed >= d.fence+q.lag {
			ready = append(ready, d.res)
		} else {
			kept = append(kept, d)
		}
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	q.mu.Unlock()

	for _, r := range ready {
		r.Release()
	}
	return len(ready)
}

// Flush releases everything regardless of fences. Shutdown only.
func (q *ReleaseQueue) Flush() int {
	q.mu.Lock()
	items := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, d := range items {
		d.res.Release()
	}
	return len(items)
}

func (q *ReleaseQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// InstanceBuffer is a pooled CPU staging area plus its lazily created GPU buffer.
type InstanceBuffer struct {
	pool *InstanceBufferPool
	data []byte
	used int
	gpu  GPUBuffer
}

// Reserve sizes the staging area to n bytes and returns it for filling.
func (b *InstanceBuffer) Reserve(n int) []byte {
	if cap(b.data) < n {
		b.data = make([]byte, n)
	}
	b.data = b.data[:n]
	b.used = n
	return b.data
}

func (b *InstanceBuffer) Bytes() []byte  { return b.data[:b.used] }
func (b *InstanceBuffer) GPU() GPUBuffer { return b.gpu }

// Upload copies the staging bytes into the GPU buffer, creating or growing it first.
func (b *InstanceBuffer) Upload(rc *RenderContext) error {
	if b.used == 0 {
		return nil
	}
	if b.gpu == nil || b.gpu.Size() < b.used {
		if b.gpu != nil {
			b.gpu.Release()
			b.gpu = nil
		}
		size := b.used
		if b.pool != nil && b.pool.bufferBytes > size {
			size = b.pool.bufferBytes
		}
		g, err := rc.Resources.CreateInstanceBuffer(size)
		if err != nil {
			return fmt.Errorf("create instance buffer: %w", err)
		}
		b.gpu = g
	}
	return b.gpu.Write(b.Bytes())
}

// Release hands the buffer back to its pool. Called by the release queue once the fence
// guarding the in-flight draw has passed.
func (b *InstanceBuffer) Release() {
	b.used = 0
	if b.pool != nil {
		b.pool.recycle(b)
	}
}

// InstanceBufferPool is a fixed set of instance buffers behind a mutex-guarded free list,
// so the game thread can claim one to fill without waiting on the render thread.
type InstanceBufferPool struct {
	mu          sync.Mutex
	bufferBytes int
	free        []*InstanceBuffer
	all         []*InstanceBuffer
}

func NewInstanceBufferPool(count, bufferBytes int) *InstanceBufferPool {
	p := &InstanceBufferPool{bufferBytes: bufferBytes}
	for i := 0; i < count; i++ {
		b := &InstanceBuffer{pool: p, data: make([]byte, 0, bufferBytes)}
		p.all = append(p.all, b)
		p.free = append(p.free, b)
	}
	return p
}

func (p *InstanceBufferPool) Acquire() (*InstanceBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return nil, ErrPoolExhausted
	}
	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	return b, nil
}

func (p *InstanceBufferPool) recycle(b *InstanceBuffer) {
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
}

func (p *InstanceBufferPool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Destroy releases every GPU buffer in the pool. Render thread, at shutdown.
func (p *InstanceBufferPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.all {
		if b.gpu != nil {
			b.gpu.Release()
			b.gpu = nil
		}
	}
}

// RenderContext carries everything the render thread needs. Holding one is what makes a
// call site render-thread code: it is only handed out to render commands.
type RenderContext struct {
	Resources       ResourceFactory
	DefaultMaterial *Material
	Instancing      bool
	InstancePool    *InstanceBufferPool
	Garbage         *ReleaseQueue
	Frame           uint64
	Log             Logger
}

func (rc *RenderContext) Logger() Logger {
	if rc == nil {
		return NewNopLogger()
	}
	return LoggerOr(rc.Log)
}
