package proxy

import "github.com/gekko3d/particles/particlert/rt/core"

// frameBuffers holds a proxy's frame data on the render thread.
type frameBuffers interface {
	// Swap installs next as current, releasing whatever falls out of the buffer.
	Swap(rc *core.RenderContext, next *DynamicParticleData)
	Current() *DynamicParticleData
	Previous() *DynamicParticleData
	Release(rc *core.RenderContext)
}

func newFrameBuffers(s core.BufferingStrategy) frameBuffers {
	if s == core.BufferDouble {
		return &doubleBuffer{}
	}
	return &singleBuffer{}
}

// singleBuffer replaces the current data, releasing it first.
type singleBuffer struct {
	current *DynamicParticleData
}

func (b *singleBuffer) Swap(rc *core.RenderContext, next *DynamicParticleData) {
	if b.current != next {
		b.current.Release(rc)
	}
	b.current = next
}

func (b *singleBuffer) Current() *DynamicParticleData  { return b.current }
func (b *singleBuffer) Previous() *DynamicParticleData { return nil }

func (b *singleBuffer) Release(rc *core.RenderContext) {
	b.current.Release(rc)
	b.current = nil
}

// doubleBuffer keeps the previous frame alive until the next swap.
type doubleBuffer struct {
	current  *DynamicParticleData
	previous *DynamicParticleData
}

func (b *doubleBuffer) Swap(rc *core.RenderContext, next *DynamicParticleData) {
	if b.previous != b.current && b.previous != next {
		b.previous.Release(rc)
	}
	b.previous = b.current
	b.current = next
}

func (b *doubleBuffer) Current() *DynamicParticleData  { return b.current }
func (b *doubleBuffer) Previous() *DynamicParticleData { return b.previous }

func (b *doubleBuffer) Release(rc *core.RenderContext) {
	b.previous.Release(rc)
	b.current.Release(rc)
	b.previous, b.current = nil, nil
}
