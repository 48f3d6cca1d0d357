package particles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

// SceneDef defines the initial particle systems of a scene.
type SceneDef struct {
	Systems []ParticleSystemDef
}

// ParticleSystemDef places a component in the world.
type ParticleSystemDef struct {
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	Scale     mgl32.Vec3
	Component *ParticleSystemComponent
}

func (d ParticleSystemDef) transform() mgl32.Mat4 {
	scale := d.Scale
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	rot := d.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(d.Position.X(), d.Position.Y(), d.Position.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// LoadScene registers every system of def.
func LoadScene(s *Scene, def *SceneDef) error {
	for i, sys := range def.Systems {
		if sys.Component == nil {
			return fmt.Errorf("scene system %d: nil component", i)
		}
		sys.Component.LocalToWorld = sys.transform()
		if _, err := s.Register(sys.Component); err != nil {
			return fmt.Errorf("scene system %d: %w", i, err)
		}
	}
	return nil
}

// TickStats summarises one game-thread tick.
type TickStats struct {
	Systems   int
	Emitters  int
	Particles int
	Updates   int
}

// FrameStats summarises one render-thread frame.
type FrameStats struct {
	Proxies int
	Visible int
	Draws   int
}

type registration struct {
	comp  *ParticleSystemComponent
	proxy *proxy.SceneProxy
}

// Scene owns the registered particle systems. Register, Unregister, SetTransform and Tick
// belong to the game thread; DrawFrame belongs to the render thread.
type Scene struct {
	cfg    *config.Config
	log    core.Logger
	rt     *proxy.RenderThread
	limits core.Limits

	mu      sync.Mutex
	systems map[uuid.UUID]*registration
	order   []uuid.UUID

	// render thread only
	renderProxies []*proxy.SceneProxy
}

func NewScene(cfg *config.Config, rt *proxy.RenderThread, log core.Logger) *Scene {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Scene{
		cfg:     cfg,
		log:     core.LoggerOr(log),
		rt:      rt,
		limits:  cfg.Limits(),
		systems: make(map[uuid.UUID]*registration),
	}
}

func (s *Scene) Config() *config.Config            { return s.cfg }
func (s *Scene) Logger() core.Logger               { return s.log }
func (s *Scene) RenderThread() *proxy.RenderThread { return s.rt }

// Register creates the component's scene proxy and adds it to the render thread's draw
// list. A component without an ID gets one.
func (s *Scene) Register(c *ParticleSystemComponent) (*proxy.SceneProxy, error) {
	if c == nil {
		return nil, errors.New("register: nil component")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.LocalToWorld == (mgl32.Mat4{}) {
		c.LocalToWorld = mgl32.Ident4()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.systems[c.ID]; dup {
		return nil, fmt.Errorf("register %s: already registered", c.ID)
	}
	maxDist := c.MaxDrawDistance
	if maxDist <= 0 {
		maxDist = s.cfg.Render.MaxDrawDistance
	}
	p := proxy.NewSceneProxy(s.rt, proxy.ProxyDesc{
		LocalToWorld:       c.LocalToWorld,
		Selected:           c.Selected,
		CastShadow:         c.CastShadow,
		MaxDrawDistance:    maxDist,
		ComponentMaterials: c.Materials,
		Buffering:          s.cfg.Strategy(),
	})
	err := s.rt.Enqueue("add particle proxy", func(*core.RenderContext) {
		s.renderProxies = append(s.renderProxies, p)
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", c.ID, err)
	}
	s.systems[c.ID] = &registration{comp: c, proxy: p}
	s.order = append(s.order, c.ID)
	s.log.Debugf("registered particle system %s with %d emitters", c.ID, len(c.Emitters))
	return p, nil
}

// Unregister releases the component's proxy and drops it from the draw list.
func (s *Scene) Unregister(id uuid.UUID) error {
	s.mu.Lock()
	reg, ok := s.systems[id]
	if ok {
		delete(s.systems, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unregister %s: not registered", id)
	}
	return s.retire(reg.proxy)
}

func (s *Scene) retire(p *proxy.SceneProxy) error {
	err := p.Release()
	if qerr := s.rt.Enqueue("remove particle proxy", func(*core.RenderContext) {
		for i, rp := range s.renderProxies {
			if rp == p {
				s.renderProxies = append(s.renderProxies[:i], s.renderProxies[i+1:]...)
				break
			}
		}
	}); qerr != nil {
		err = errors.Join(err, qerr)
	}
	return err
}

// SetTransform moves a registered component.
func (s *Scene) SetTransform(id uuid.UUID, localToWorld mgl32.Mat4) error {
	s.mu.Lock()
	reg, ok := s.systems[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("set transform %s: not registered", id)
	}
	reg.comp.LocalToWorld = localToWorld
	return reg.proxy.SetTransform(localToWorld)
}

// Proxy returns the scene proxy of a registered component.
func (s *Scene) Proxy(id uuid.UUID) (*proxy.SceneProxy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.systems[id]
	if !ok {
		return nil, false
	}
	return reg.proxy, true
}

// Len is the number of registered systems.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Scene) registrations() []*registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs := make([]*registration, 0, len(s.order))
	for _, id := range s.order {
		regs = append(regs, s.systems[id])
	}
	return regs
}

// Tick simulates every enabled system by dt and sends the resulting frame data to its
// proxy. Snapshot failures are logged and returned joined; the other systems still
// update.
func (s *Scene) Tick(dt float32) (TickStats, error) {
	var stats TickStats
	var errs []error
	for _, reg := range s.registrations() {
		c := reg.comp
		if !c.Enabled {
			continue
		}
		if d, ok := reg.proxy.LODDistance(); ok {
			c.lodLevel = c.lodLevelFor(d)
		}
		c.Tick(dt)

		data, err := c.Capture(s.limits, s.log)
		if err != nil {
			s.log.Warnf("particle system %s: %v", c.ID, err)
			errs = append(errs, err)
		}
		if data == nil {
			continue
		}
		if err := reg.proxy.UpdateData(data); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Systems++
		stats.Emitters += len(data.Emitters)
		stats.Particles += data.ParticleCount()
		stats.Updates++
	}
	return stats, errors.Join(errs...)
}

var drawPasses = []core.DrawPass{
	{DPG: core.DPGWorld, DynamicData: true},
	{DPG: core.DPGWorld, DynamicData: false},
	{DPG: core.DPGForeground, DynamicData: true},
	{DPG: core.DPGForeground, DynamicData: false},
}

// DrawFrame draws every proxy for every view. Render thread.
func (s *Scene) DrawFrame(rc *core.RenderContext, views []*core.SceneView, pdi core.PrimitiveDrawer) FrameStats {
	stats := FrameStats{Proxies: len(s.renderProxies)}
	for _, p := range s.renderProxies {
		p.PreRenderView(views, rc.Frame)
		for _, view := range views {
			rel := p.GetViewRelevance(view)
			if !rel.Visible {
				continue
			}
			stats.Visible++
			for _, pass := range drawPasses {
				if pass.DynamicData && !rel.Dynamic || !pass.DynamicData && !rel.Static {
					continue
				}
				stats.Draws += p.DrawDynamicElements(rc, view, pass, pdi)
			}
		}
	}
	return stats
}

// Close releases every registered system. Queued commands still have to run on the
// render thread before the resources are actually freed.
func (s *Scene) Close() error {
	s.mu.Lock()
	regs := make([]*registration, 0, len(s.systems))
	for _, id := range s.order {
		regs = append(regs, s.systems[id])
	}
	s.systems = make(map[uuid.UUID]*registration)
	s.order = nil
	s.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if err := s.retire(reg.proxy); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
