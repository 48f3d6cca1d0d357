package particles

import (
	"errors"
	"fmt"

	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

// Module installs particle systems or other setup into a freshly built scene.
type Module interface {
	Install(s *Scene) error
}

type SceneBuilder struct {
	cfg     *config.Config
	log     core.Logger
	rt      *proxy.RenderThread
	modules []Module
}

func NewSceneBuilder() *SceneBuilder {
	return &SceneBuilder{}
}

func (b *SceneBuilder) UseConfig(cfg *config.Config) *SceneBuilder {
	b.cfg = cfg
	return b
}

func (b *SceneBuilder) UseLogger(log core.Logger) *SceneBuilder {
	b.log = log
	return b
}

func (b *SceneBuilder) UseRenderThread(rt *proxy.RenderThread) *SceneBuilder {
	b.rt = rt
	return b
}

func (b *SceneBuilder) UseModule(modules ...Module) *SceneBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build creates the scene and installs the modules in order. The logger defaults to the
// one described by the configuration.
func (b *SceneBuilder) Build() (*Scene, error) {
	if b.rt == nil {
		return nil, errors.New("scene builder: no render thread")
	}
	cfg := b.cfg
	if cfg == nil {
		cfg = config.Default()
	}
	log := b.log
	if log == nil {
		log = cfg.NewLogger()
	}
	s := NewScene(cfg, b.rt, log)
	for i, m := range b.modules {
		if err := m.Install(s); err != nil {
			return nil, fmt.Errorf("scene builder: module %d (%T): %w", i, m, err)
		}
	}
	return s, nil
}
