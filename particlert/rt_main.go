package main

import (
	"context"
	"flag"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/app"
	"github.com/gekko3d/particles/particlert/rt/config"
	"github.com/gekko3d/particles/particlert/rt/demo"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML file overriding the built-in defaults")
	writeConfig := flag.String("write-config", "", "write the effective configuration to this path and exit")
	debug := flag.Bool("debug", false, "Enable debug logging of render commands")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if *writeConfig != "" {
		if err := cfg.WriteYAML(*writeConfig); err != nil {
			panic(err)
		}
		return
	}
	log := cfg.NewLogger()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Viewer.Width, cfg.Viewer.Height, cfg.Viewer.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	viewer := app.NewViewer(window, cfg, log)
	if err := viewer.Init(); err != nil {
		panic(err)
	}
	defer viewer.Shutdown()

	scene, err := particles.NewSceneBuilder().
		UseConfig(cfg).
		UseLogger(log).
		UseRenderThread(viewer.RT).
		UseModule(demo.Modules(cfg.Demo)...).
		Build()
	if err != nil {
		panic(err)
	}
	log.Infof("scene ready: %d particle systems", scene.Len())

	viewer.Game = app.NewGameLoop(scene, 60)
	viewer.BindInput()
	window.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		viewer.Camera.Zoom(1 - float32(dy)*0.1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		viewer.Game.Run(ctx)
	}()

	last := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()
		now := glfw.GetTime()
		viewer.Frame(scene, float32(now-last))
		last = now
	}

	cancel()
	<-stopped
	if err := scene.Close(); err != nil {
		log.Warnf("closing scene: %v", err)
	}
}
