package particles

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// Simulator advances one emitter's particles. It runs on the game thread.
type Simulator interface {
	Simulate(e *EmitterInstance, dt float32)
}

// SimulatorFunc adapts a function to Simulator.
type SimulatorFunc func(e *EmitterInstance, dt float32)

func (f SimulatorFunc) Simulate(e *EmitterInstance, dt float32) { f(e, dt) }

// EmitterInstance is the live, game-thread side of one emitter: its particle storage and
// the template its snapshots are cut from.
type EmitterInstance struct {
	Name string
	// Template carries the emitter settings and payload slots. Its particle buffers stay
	// empty; every Capture works on a copy.
	Template core.Source
	Storage  *core.ParticleStorage
	Sim      Simulator

	Enabled bool
	// Time is the emitter age in seconds.
	Time float32
	// LOD is the level chosen from the owning component's LOD distances.
	LOD int
	// LocalToWorld is the owning component transform at the last tick.
	LocalToWorld mgl32.Mat4
}

// NewEmitterInstance allocates storage for capacity records of stride bytes.
func NewEmitterInstance(name string, template core.Source, stride, capacity int, sim Simulator) (*EmitterInstance, error) {
	if template == nil {
		return nil, fmt.Errorf("emitter %q: nil template", name)
	}
	storage, err := core.NewParticleStorage(stride, capacity)
	if err != nil {
		return nil, fmt.Errorf("emitter %q: %w", name, err)
	}
	return &EmitterInstance{
		Name:         name,
		Template:     template,
		Storage:      storage,
		Sim:          sim,
		Enabled:      true,
		LocalToWorld: mgl32.Ident4(),
	}, nil
}

// Active is the number of live particles.
func (e *EmitterInstance) Active() int { return e.Storage.Active }

// Tick advances the emitter by dt.
func (e *EmitterInstance) Tick(dt float32) {
	if !e.Enabled {
		return
	}
	e.Time += dt
	if e.Sim != nil {
		e.Sim.Simulate(e, dt)
	}
}

// Capture snapshots the storage into a fresh copy of the template. The result is safe
// to hand to the render thread.
func (e *EmitterInstance) Capture(limits core.Limits, log core.Logger) (core.Source, error) {
	src, err := cloneSource(e.Template)
	if err != nil {
		return nil, err
	}
	if err := core.Capture(e.Storage, src, limits, log); err != nil {
		return nil, fmt.Errorf("emitter %q: %w", e.Name, err)
	}
	return src, nil
}

func cloneSource(src core.Source) (core.Source, error) {
	switch s := src.(type) {
	case *core.SpriteSource:
		c := *s
		return &c, nil
	case *core.SubUVSource:
		c := *s
		return &c, nil
	case *core.MeshSource:
		c := *s
		return &c, nil
	case *core.BeamSource:
		c := *s
		return &c, nil
	case *core.TrailSource:
		c := *s
		return &c, nil
	}
	return nil, fmt.Errorf("unsupported emitter template %T", src)
}
