// Package particles is the game-thread side of the particle renderer: components own live
// emitters, and a Scene ticks them and hands their frame snapshots to scene proxies on
// the render thread.
package particles

import (
	"errors"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

// ParticleSystemComponent is one particle system placed in the world.
type ParticleSystemComponent struct {
	ID      uuid.UUID
	Enabled bool

	LocalToWorld mgl32.Mat4
	Selected     bool
	CastShadow   bool
	// MaxDrawDistance overrides the scene default when positive.
	MaxDrawDistance float32
	// Materials override mesh section materials by section index.
	Materials []*core.Material
	// LODDistances are ascending camera distances; the LOD level is the number of them
	// the system is beyond.
	LODDistances []float32

	Emitters []*EmitterInstance

	lodLevel int
}

func NewParticleSystemComponent(emitters ...*EmitterInstance) *ParticleSystemComponent {
	return &ParticleSystemComponent{
		ID:           uuid.New(),
		Enabled:      true,
		LocalToWorld: mgl32.Ident4(),
		Emitters:     emitters,
	}
}

// LODLevel is the level applied at the last tick.
func (c *ParticleSystemComponent) LODLevel() int { return c.lodLevel }

// lodLevelFor counts the LOD distances at or below distance.
func (c *ParticleSystemComponent) lodLevelFor(distance float32) int {
	return sort.Search(len(c.LODDistances), func(i int) bool { return c.LODDistances[i] > distance })
}

// Tick advances every emitter by dt.
func (c *ParticleSystemComponent) Tick(dt float32) {
	if !c.Enabled {
		return
	}
	for _, e := range c.Emitters {
		e.LOD = c.lodLevel
		e.LocalToWorld = c.LocalToWorld
		e.Tick(dt)
	}
}

// Capture builds the frame data for the render thread. Emitters whose snapshot fails
// are left out; their errors are returned joined alongside the data.
func (c *ParticleSystemComponent) Capture(limits core.Limits, log core.Logger) (*proxy.DynamicParticleData, error) {
	var errs []error
	sources := make([]core.Source, 0, len(c.Emitters))
	for _, e := range c.Emitters {
		if !e.Enabled {
			continue
		}
		src, err := e.Capture(limits, log)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	data, err := proxy.FromSources(sources...)
	if err != nil {
		errs = append(errs, err)
		return nil, errors.Join(errs...)
	}
	data.NeedsLODDistanceUpdate = len(c.LODDistances) > 0
	return data, errors.Join(errs...)
}

// ParticleCount is the number of live particles over all emitters.
func (c *ParticleSystemComponent) ParticleCount() int {
	n := 0
	for _, e := range c.Emitters {
		n += e.Active()
	}
	return n
}
