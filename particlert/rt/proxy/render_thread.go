package proxy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// ErrRenderThreadClosed is returned when enqueuing onto a closed render thread.
var ErrRenderThreadClosed = errors.New("render thread closed")

// Command runs on the render thread. The context it receives must not escape it.
type Command func(rc *core.RenderContext)

type queuedCommand struct {
	name string
	run  Command
}

// RenderThread is the ordered command queue between the game thread and the render
// thread. Enqueue never blocks. Commands run in submission order, either from Run on a
// dedicated goroutine or from Drain on a thread the host owns (the locked main thread
// when rendering with a window).
type RenderThread struct {
	rc  *core.RenderContext
	log core.Logger

	mu     sync.Mutex
	queue  []queuedCommand
	closed bool
	wake   chan struct{}

	executed atomic.Uint64
	frames   atomic.Uint64
}

func NewRenderThread(rc *core.RenderContext) *RenderThread {
	return &RenderThread{
		rc:   rc,
		log:  core.Scoped(rc.Logger(), "render"),
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends a command. It fails only after Close.
func (t *RenderThread) Enqueue(name string, cmd Command) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrRenderThreadClosed
	}
	t.queue = append(t.queue, queuedCommand{name: name, run: cmd})
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

// Drain runs every queued command on the calling goroutine, including commands enqueued
// while draining, and returns how many ran.
func (t *RenderThread) Drain() int {
	n := 0
	for {
		t.mu.Lock()
		batch := t.queue
		t.queue = nil
		t.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, c := range batch {
			if t.log.DebugEnabled() {
				t.log.Debugf("render command %s", c.name)
			}
			c.run(t.rc)
			t.executed.Add(1)
			n++
		}
	}
}

// Run drains commands until ctx is cancelled or the thread is closed and empty.
func (t *RenderThread) Run(ctx context.Context) error {
	for {
		t.Drain()
		t.mu.Lock()
		done := t.closed && len(t.queue) == 0
		t.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		}
	}
}

// Flush blocks until every command enqueued before it has run. It must not be called
// from the render thread itself.
func (t *RenderThread) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := t.Enqueue("flush", func(*core.RenderContext) { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndFrame enqueues the frame boundary: it advances the frame counter and releases the
// deferred resources whose fence the finished frame passed.
func (t *RenderThread) EndFrame() error {
	return t.Enqueue("end frame", func(rc *core.RenderContext) {
		completed := rc.Frame
		rc.Frame++
		t.frames.Store(rc.Frame)
		if rc.Garbage != nil {
			if n := rc.Garbage.Drain(completed); n > 0 {
				t.log.Debugf("frame %d: released %d deferred resources", completed, n)
			}
		}
	})
}

// Frame is the number of completed frames.
func (t *RenderThread) Frame() uint64 { return t.frames.Load() }

// Executed is the number of commands run so far.
func (t *RenderThread) Executed() uint64 { return t.executed.Load() }

func (t *RenderThread) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Close rejects further commands. Queued commands still run.
func (t *RenderThread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
