// Package proxy hands emitter frame data from the game thread to the render thread and
// draws it there.
package proxy

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"
)

// DynamicParticleData is one frame of a particle system: its emitters in system order.
// It is built on the game thread and owned by the render thread once handed to a proxy.
type DynamicParticleData struct {
	Emitters []emitter.EmitterData
	// NeedsLODDistanceUpdate asks the proxy to recompute the LOD distance this frame.
	NeedsLODDistanceUpdate bool

	released bool
}

func NewDynamicParticleData(emitters ...emitter.EmitterData) *DynamicParticleData {
	return &DynamicParticleData{Emitters: emitters}
}

// FromSources wraps each captured source in its emitter variant. Nil sources are skipped.
func FromSources(sources ...core.Source) (*DynamicParticleData, error) {
	d := &DynamicParticleData{Emitters: make([]emitter.EmitterData, 0, len(sources))}
	for i, src := range sources {
		if src == nil {
			continue
		}
		e, err := emitter.New(src)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
		d.Emitters = append(d.Emitters, e)
	}
	return d, nil
}

// Valid is false for nil or released data; such data draws nothing.
func (d *DynamicParticleData) Valid() bool { return d != nil && !d.released }

// Init resolves materials and vertex factories of every emitter. An emitter that fails
// stays in the list and simply draws nothing; the errors are returned joined.
func (d *DynamicParticleData) Init(rc *core.RenderContext, selected bool) error {
	if !d.Valid() {
		return nil
	}
	var errs []error
	for _, e := range d.Emitters {
		if err := e.Init(rc, selected); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *DynamicParticleData) Relevance() core.MaterialRelevance {
	var r core.MaterialRelevance
	if !d.Valid() {
		return r
	}
	for _, e := range d.Emitters {
		r = r.Merge(e.MaterialRelevance())
	}
	return r
}

// ParticleCount is the number of active particles over all emitters.
func (d *DynamicParticleData) ParticleCount() int {
	if !d.Valid() {
		return 0
	}
	n := 0
	for _, e := range d.Emitters {
		n += e.Source().Base().ActiveParticleCount
	}
	return n
}

// Bounds is a world-space sphere enclosing every emitter. ok is false when there is
// nothing to bound.
func (d *DynamicParticleData) Bounds(localToWorld mgl32.Mat4) (center mgl32.Vec3, radius float32, ok bool) {
	if !d.Valid() {
		return center, 0, false
	}
	for _, e := range d.Emitters {
		if e.Source().Base().ActiveParticleCount == 0 {
			continue
		}
		c, r := e.Bounds(localToWorld)
		if !ok {
			center, radius, ok = c, r, true
			continue
		}
		center, radius = mergeSpheres(center, radius, c, r)
	}
	return center, radius, ok
}

func mergeSpheres(c0 mgl32.Vec3, r0 float32, c1 mgl32.Vec3, r1 float32) (mgl32.Vec3, float32) {
	d := c1.Sub(c0).Len()
	if d+r1 <= r0 {
		return c0, r0
	}
	if d+r0 <= r1 {
		return c1, r1
	}
	r := (d + r0 + r1) * 0.5
	center := c0.Add(c1.Sub(c0).Mul((r - r0) / d))
	return center, math32.Max(r, math32.Max(r0, r1))
}

// Release frees every emitter's render resources. Render thread; the data must not be
// drawn afterwards.
func (d *DynamicParticleData) Release(rc *core.RenderContext) {
	if d == nil || d.released {
		return
	}
	for _, e := range d.Emitters {
		e.Release(rc)
	}
	d.released = true
}
