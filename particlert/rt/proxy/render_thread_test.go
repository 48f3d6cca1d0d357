package proxy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/core/coretest"
)

func TestRenderThreadRunsInOrder(t *testing.T) {
	rt := NewRenderThread(coretest.NewRenderContext(coretest.NewResources()))

	var got []int
	for i := 0; i < 5; i++ {
		require.NoError(t, rt.Enqueue("append", func(*core.RenderContext) { got = append(got, i) }))
	}
	assert.Equal(t, 5, rt.Pending())
	assert.Equal(t, 5, rt.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, uint64(5), rt.Executed())
	assert.Zero(t, rt.Pending())
}

func TestRenderThreadDrainRunsNestedCommands(t *testing.T) {
	rt := NewRenderThread(coretest.NewRenderContext(coretest.NewResources()))

	var got []string
	require.NoError(t, rt.Enqueue("outer", func(*core.RenderContext) {
		got = append(got, "outer")
		require.NoError(t, rt.Enqueue("inner", func(*core.RenderContext) { got = append(got, "inner") }))
	}))
	assert.Equal(t, 2, rt.Drain())
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestRenderThreadRunAndFlush(t *testing.T) {
	rt := NewRenderThread(coretest.NewRenderContext(coretest.NewResources()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.ErrorIs(t, rt.Run(ctx), context.Canceled)
	}()

	var mu sync.Mutex
	n := 0
	for i := 0; i < 100; i++ {
		require.NoError(t, rt.Enqueue("count", func(*core.RenderContext) {
			mu.Lock()
			n++
			mu.Unlock()
		}))
	}
	flushCtx, flushCancel := context.WithTimeout(ctx, 5*time.Second)
	defer flushCancel()
	require.NoError(t, rt.Flush(flushCtx))

	mu.Lock()
	assert.Equal(t, 100, n)
	mu.Unlock()

	cancel()
	wg.Wait()
}

func TestRenderThreadClose(t *testing.T) {
	rt := NewRenderThread(coretest.NewRenderContext(coretest.NewResources()))

	ran := false
	require.NoError(t, rt.Enqueue("before close", func(*core.RenderContext) { ran = true }))
	rt.Close()
	assert.ErrorIs(t, rt.Enqueue("after close", func(*core.RenderContext) {}), ErrRenderThreadClosed)

	require.NoError(t, rt.Run(context.Background()))
	assert.True(t, ran)
}

func TestEndFrameDrainsGarbage(t *testing.T) {
	rc := coretest.NewRenderContext(coretest.NewResources())
	rc.Garbage = core.NewReleaseQueue(1)
	rt := NewRenderThread(rc)

	res := &coretest.Releasable{}
	rc.Garbage.Defer(res, 0)

	require.NoError(t, rt.EndFrame())
	rt.Drain()
	assert.Equal(t, uint64(1), rt.Frame())
	assert.Zero(t, res.Count.Load())

	require.NoError(t, rt.EndFrame())
	rt.Drain()
	assert.Equal(t, uint64(2), rt.Frame())
	assert.Equal(t, int64(1), res.Count.Load())
	assert.Zero(t, rc.Garbage.Pending())
}
