package app

import (
	"context"
	"sync/atomic"
	"time"

	particles "github.com/gekko3d/particles"
)

// GameLoop ticks a scene at a fixed rate on its own goroutine. The render thread reads
// the latest tick stats through Stats.
type GameLoop struct {
	Scene  *particles.Scene
	Rate   time.Duration
	Paused atomic.Bool

	last  atomic.Pointer[particles.TickStats]
	ticks atomic.Uint64
}

func NewGameLoop(scene *particles.Scene, hz int) *GameLoop {
	if hz <= 0 {
		hz = 60
	}
	return &GameLoop{Scene: scene, Rate: time.Second / time.Duration(hz)}
}

// Stats is the result of the most recent tick.
func (g *GameLoop) Stats() particles.TickStats {
	if s := g.last.Load(); s != nil {
		return *s
	}
	return particles.TickStats{}
}

func (g *GameLoop) Ticks() uint64 { return g.ticks.Load() }

// Step runs one tick of dt seconds.
func (g *GameLoop) Step(dt float32) {
	stats, err := g.Scene.Tick(dt)
	if err != nil {
		g.Scene.Logger().Debugf("tick: %v", err)
	}
	g.last.Store(&stats)
	g.ticks.Add(1)
}

// Run ticks until ctx is cancelled.
func (g *GameLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.Rate)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if g.Paused.Load() {
				continue
			}
			// long stalls tick at most 100ms
			g.Step(min(dt, 0.1))
		}
	}
}
