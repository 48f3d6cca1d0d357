// Package app is the windowed viewer: it owns the wgpu device and surface, runs the
// render thread on the locked main thread and draws a HUD over the particles.
package app

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/gpu"
	"github.com/gekko3d/particles/particlert/rt/proxy"
)

type Viewer struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Settings *config.Config
	Log      core.Logger

	Renderer *gpu.Renderer
	Drawer   *gpu.Drawer
	Text     *gpu.TextPass
	RC       *core.RenderContext
	RT       *proxy.RenderThread

	Camera   *OrbitCamera
	Profiler *Profiler
	HUD      *HUD
	Stats    *StatsWriter
	Game     *GameLoop

	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
	frames         uint64
}

func NewViewer(window *glfw.Window, cfg *config.Config, log core.Logger) *Viewer {
	return &Viewer{
		Window:   window,
		Settings: cfg,
		Log:      core.LoggerOr(log),
		Camera:   NewOrbitCamera(),
		Profiler: NewProfiler(),
	}
}

// Init creates the device, surface and renderer, then the render thread that executes on
// whichever goroutine calls Frame.
func (v *Viewer) Init() error {
	v.Instance = wgpu.CreateInstance(nil)
	v.Surface = v.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(v.Window))

	adapter, err := v.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: v.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	v.Adapter = adapter

	v.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	v.Queue = v.Device.GetQueue()

	width, height := v.Window.GetFramebufferSize()
	caps := v.Surface.GetCapabilities(adapter)
	present := wgpu.PresentModeFifo
	if !v.Settings.Viewer.VSync && slices.Contains(caps.PresentModes, wgpu.PresentModeImmediate) {
		present = wgpu.PresentModeImmediate
	}
	v.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: present,
		AlphaMode:   caps.AlphaModes[0],
	}
	v.Surface.Configure(adapter, v.Device, v.Config)

	v.Renderer, err = gpu.NewRenderer(v.Device, v.Config.Format, v.Log)
	if err != nil {
		return err
	}
	v.Drawer = gpu.NewDrawer(v.Renderer)
	v.RC = v.Settings.NewRenderContext(v.Renderer, v.Log)
	v.RT = proxy.NewRenderThread(v.RC)

	if v.Settings.Viewer.HUD {
		v.HUD = NewHUD(nil)
		v.Text, err = gpu.NewTextPass(v.Renderer, v.HUD.AtlasImage)
		if err != nil {
			v.Log.Warnf("HUD disabled: %v", err)
			v.HUD = nil
		}
	}
	if v.Settings.Stats.Enabled {
		v.Stats, err = NewStatsWriter(v.Settings.Stats.Path)
		if err != nil {
			v.Log.Warnf("stats disabled: %v", err)
		}
	}
	v.Log.Infof("viewer ready: %dx%d %v", width, height, v.Config.Format)
	return nil
}

func (v *Viewer) Resize(w, h int) {
	if w > 0 && h > 0 {
		v.Config.Width = uint32(w)
		v.Config.Height = uint32(h)
		v.Surface.Configure(v.Adapter, v.Device, v.Config)
	}
}

func (v *Viewer) aspect() float32 {
	if v.Config.Height == 0 {
		return 1
	}
	return float32(v.Config.Width) / float32(v.Config.Height)
}

// Frame runs one render-thread frame: it drains queued commands, draws the scene and
// presents. Call from the thread that owns the window.
func (v *Viewer) Frame(scene *particles.Scene, dt float32) {
	p := v.Profiler
	p.BeginScope("Frame")

	var commands int
	p.Scope("Commands", func() { commands = v.RT.Drain() })

	v.Camera.Update(dt)
	view := v.Camera.View(v.Settings.Viewer.FOV, v.aspect(), v.Settings.Render.LODDistanceFactor)
	if err := v.Renderer.UpdateCamera(view); err != nil {
		v.Log.Errorf("camera upload: %v", err)
	}

	v.Drawer.Reset()
	var fs particles.FrameStats
	p.Scope("Draw", func() {
		fs = scene.DrawFrame(v.RC, []*core.SceneView{view}, v.Drawer)
	})
	ds := v.Drawer.Stats()

	p.Scope("Upload", func() {
		if err := v.Drawer.Upload(); err != nil {
			v.Log.Errorf("upload: %v", err)
		}
		v.updateHUD()
	})

	p.Scope("Submit", v.submit)
	if err := v.RT.EndFrame(); err != nil {
		v.Log.Errorf("end frame: %v", err)
	}
	p.EndScope("Frame")

	var tick particles.TickStats
	if v.Game != nil {
		tick = v.Game.Stats()
	}
	p.SetCount("Systems", tick.Systems)
	p.SetCount("Particles", tick.Particles)
	p.SetCount("Proxies", fs.Proxies)
	p.SetCount("Visible", fs.Visible)
	p.SetCount("Draws", ds.Draws)
	p.SetCount("Triangles", ds.Triangles)
	p.SetCount("Lines", ds.Lines)
	p.SetCount("Commands", commands)

	v.frames++
	v.updateFPS()
	if v.Stats != nil && v.Settings.Stats.IntervalFrames > 0 && v.frames%uint64(v.Settings.Stats.IntervalFrames) == 0 {
		rec := StatsRecord{
			Frame:     v.frames,
			TimeSec:   glfw.GetTime(),
			FPS:       v.FPS,
			Systems:   tick.Systems,
			Emitters:  tick.Emitters,
			Particles: tick.Particles,
			Proxies:   fs.Proxies,
			Visible:   fs.Visible,
			Draws:     ds.Draws,
			Triangles: ds.Triangles,
			Vertices:  ds.Vertices,
			Lines:     ds.Lines,
			Rejected:  ds.Rejected,
			Commands:  commands,
			DrawMS:    p.Millis("Draw"),
			FrameMS:   p.Millis("Frame"),
		}
		if err := v.Stats.Write(rec); err != nil {
			v.Log.Warnf("%v", err)
		}
	}
}

func (v *Viewer) updateHUD() {
	if v.HUD == nil {
		return
	}
	v.HUD.Clear()
	v.HUD.Print(fmt.Sprintf("FPS: %.1f", v.FPS), 10, 10, 1, [4]float32{1, 1, 0, 1})
	v.HUD.Print(v.Profiler.GetStatsString(), 10, 30, 1, [4]float32{0.9, 0.9, 0.9, 1})
	if v.Game != nil && v.Game.Paused.Load() {
		v.HUD.Print("PAUSED", 10, float32(v.Config.Height)-24, 1, [4]float32{1, 0.4, 0.2, 1})
	}
	vertices := v.HUD.BuildVertices(int(v.Config.Width), int(v.Config.Height))
	var data []byte
	if len(vertices) > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(TextVertex{})))
	}
	if err := v.Text.Update(data); err != nil {
		v.Log.Errorf("HUD upload: %v", err)
	}
}

func (v *Viewer) submit() {
	next, err := v.Surface.GetCurrentTexture()
	if err != nil {
		v.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer next.Release()

	target, err := next.CreateView(nil)
	if err != nil {
		v.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer target.Release()

	encoder, err := v.Device.CreateCommandEncoder(nil)
	if err != nil {
		v.Log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	var overlays []func(*wgpu.RenderPassEncoder)
	if v.Text != nil {
		overlays = append(overlays, v.Text.Draw)
	}
	if err := v.Drawer.Encode(encoder, target, wgpu.Color{R: 0.02, G: 0.02, B: 0.04, A: 1}, overlays...); err != nil {
		v.Log.Errorf("particle pass End failed: %v", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		v.Log.Errorf("encoder Finish failed: %v", err)
		return
	}
	v.Queue.Submit(cmd)
	v.Surface.Present()
}

func (v *Viewer) updateFPS() {
	now := glfw.GetTime()
	if v.LastRenderTime > 0 {
		v.FrameCount++
		v.FPSTime += now - v.LastRenderTime
		if v.FPSTime >= 1.0 {
			v.FPS = float64(v.FrameCount) / v.FPSTime
			v.FrameCount = 0
			v.FPSTime = 0
		}
	}
	v.LastRenderTime = now
}

// Shutdown drains the render thread and frees device resources. The scene must already be
// closed so its release commands are queued.
func (v *Viewer) Shutdown() {
	if v.RT != nil {
		v.RT.Close()
		v.RT.Drain()
	}
	if v.RC != nil {
		if n := v.RC.Garbage.Flush(); n > 0 {
			v.Log.Debugf("flushed %d deferred releases", n)
		}
		if v.RC.InstancePool != nil {
			v.RC.InstancePool.Destroy()
		}
	}
	if err := v.Stats.Close(); err != nil {
		v.Log.Warnf("stats: %v", err)
	}
	if v.Text != nil {
		v.Text.Release()
	}
	if v.Drawer != nil {
		v.Drawer.Release()
	}
	if v.Renderer != nil {
		v.Renderer.Release()
	}
	if v.Device != nil {
		v.Device.Release()
	}
	if v.Surface != nil {
		v.Surface.Release()
	}
	if v.Adapter != nil {
		v.Adapter.Release()
	}
	if v.Instance != nil {
		v.Instance.Release()
	}
}

// BindInput installs the window callbacks: space pauses the game loop, arrows orbit,
// +/- zoom, R toggles auto-rotation and Escape closes the window.
func (v *Viewer) BindInput() {
	v.Window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		v.Resize(w, h)
	})
	v.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		const step = 0.05
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			if v.Game != nil && action == glfw.Press {
				v.Game.Paused.Store(!v.Game.Paused.Load())
			}
		case glfw.KeyR:
			if action == glfw.Press {
				v.Camera.AutoRotate = !v.Camera.AutoRotate
			}
		case glfw.KeyLeft:
			v.Camera.Orbit(-step, 0)
		case glfw.KeyRight:
			v.Camera.Orbit(step, 0)
		case glfw.KeyUp:
			v.Camera.Orbit(0, step)
		case glfw.KeyDown:
			v.Camera.Orbit(0, -step)
		case glfw.KeyEqual, glfw.KeyKPAdd:
			v.Camera.Zoom(0.95)
		case glfw.KeyMinus, glfw.KeyKPSubtract:
			v.Camera.Zoom(1.05)
		}
	})
}
