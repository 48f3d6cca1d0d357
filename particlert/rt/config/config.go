// Package config loads the particle renderer configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/particles/particlert/rt/core"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all renderer configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Strict     bool             `yaml:"strict"`
	Buffering  string           `yaml:"buffering"`
	Capacity   CapacityConfig   `yaml:"capacity"`
	Instancing InstancingConfig `yaml:"instancing"`
	Render     RenderConfig     `yaml:"render"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Demo       DemoConfig       `yaml:"demo"`
	Stats      StatsConfig      `yaml:"stats"`
}

type LoggingConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

// CapacityConfig bounds each emitter snapshot.
type CapacityConfig struct {
	Policy        string `yaml:"policy"` // reject | clamp
	MaxParticles  int    `yaml:"max_particles"`
	MaxStride     int    `yaml:"max_stride"`
	MaxBeams      int    `yaml:"max_beams"`
	MaxBeamStride int    `yaml:"max_beam_stride"`
}

// InstancingConfig drives the mesh-instance buffer pool.
type InstancingConfig struct {
	Enabled     bool `yaml:"enabled"`
	PoolSize    int  `yaml:"pool_size"`
	BufferBytes int  `yaml:"buffer_bytes"`
	FenceLag    int  `yaml:"fence_lag"` // frames a released buffer waits before reuse
}

type RenderConfig struct {
	MaxDrawDistance   float32 `yaml:"max_draw_distance"`
	LODDistanceFactor float32 `yaml:"lod_distance_factor"`
}

type ViewerConfig struct {
	Title  string  `yaml:"title"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	VSync  bool    `yaml:"vsync"`
	HUD    bool    `yaml:"hud"`
	FOV    float32 `yaml:"fov"`
}

// DemoConfig sizes the synthetic emitters the viewer feeds.
type DemoConfig struct {
	Seed        int64 `yaml:"seed"`
	Sprites     int   `yaml:"sprites"`
	SubUV       int   `yaml:"subuv"`
	Meshes      int   `yaml:"meshes"`
	Beams       int   `yaml:"beams"`
	Trails      int   `yaml:"trails"`
	TrailLength int   `yaml:"trail_length"`
}

type StatsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	IntervalFrames int    `yaml:"interval_frames"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the embedded defaults and overlays the file at path, if any.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the runtime cannot honour.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Buffering) {
	case "single", "double":
	default:
		return fmt.Errorf("config: buffering %q: want single or double", c.Buffering)
	}
	switch strings.ToLower(c.Capacity.Policy) {
	case "reject", "clamp":
	default:
		return fmt.Errorf("config: capacity.policy %q: want reject or clamp", c.Capacity.Policy)
	}
	if c.Capacity.MaxParticles <= 0 || c.Capacity.MaxParticles > core.MaxIndexableParticles {
		return fmt.Errorf("config: capacity.max_particles %d out of range", c.Capacity.MaxParticles)
	}
	if c.Capacity.MaxBeams <= 1 {
		return fmt.Errorf("config: capacity.max_beams %d out of range", c.Capacity.MaxBeams)
	}
	if c.Capacity.MaxStride < core.BaseParticleSize || c.Capacity.MaxBeamStride < core.BaseParticleSize {
		return fmt.Errorf("config: strides must be at least %d bytes", core.BaseParticleSize)
	}
	if c.Instancing.PoolSize < 0 || c.Instancing.BufferBytes < 0 || c.Instancing.FenceLag < 0 {
		return fmt.Errorf("config: instancing values must not be negative")
	}
	return nil
}

// Limits converts the capacity section to runtime limits.
func (c *Config) Limits() core.Limits {
	policy := core.CapacityReject
	if strings.EqualFold(c.Capacity.Policy, "clamp") {
		policy = core.CapacityClamp
	}
	return core.Limits{
		MaxParticles:  c.Capacity.MaxParticles,
		MaxStride:     c.Capacity.MaxStride,
		MaxBeams:      c.Capacity.MaxBeams,
		MaxBeamStride: c.Capacity.MaxBeamStride,
		Policy:        policy,
		Strict:        c.Strict,
	}
}

// Strategy is the scene proxy buffering strategy, chosen once at startup.
func (c *Config) Strategy() core.BufferingStrategy {
	if strings.EqualFold(c.Buffering, "single") {
		return core.BufferSingle
	}
	return core.BufferDouble
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger() core.Logger {
	return core.NewDefaultLogger(c.Logging.Prefix, c.Logging.Debug)
}

// NewRenderContext builds the render thread context over res: default material, instance
// pool and release queue sized by the instancing section.
func (c *Config) NewRenderContext(res core.ResourceFactory, log core.Logger) *core.RenderContext {
	rc := &core.RenderContext{
		Resources:       res,
		DefaultMaterial: core.NewMaterial("default", core.BlendOpaque, core.LightingLit),
		Instancing:      c.Instancing.Enabled,
		Garbage:         core.NewReleaseQueue(c.Instancing.FenceLag),
		Log:             core.LoggerOr(log),
	}
	if c.Instancing.Enabled {
		rc.InstancePool = core.NewInstanceBufferPool(c.Instancing.PoolSize, c.Instancing.BufferBytes)
	}
	return rc
}

// WriteYAML saves the effective configuration.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
