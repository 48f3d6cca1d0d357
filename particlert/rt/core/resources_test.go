package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRelease struct{ n int }

func (c *countingRelease) Release() { c.n++ }

func TestReleaseQueueWaitsForFence(t *testing.T) {
	q := NewReleaseQueue(2)
	a, b := &countingRelease{}, &countingRelease{}
	q.Defer(a, 10)
	q.Defer(b, 11)
	q.Defer(nil, 11)

	assert.Equal(t, 0, q.Drain(11))
	assert.Equal(t, 1, q.Drain(12))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 0, b.n)
	assert.Equal(t, 1, q.Pending())

	assert.Equal(t, 1, q.Flush())
	assert.Equal(t, 1, b.n)
	assert.Equal(t, 0, q.Pending())
}

type fakeBuffer struct {
	size     int
	writes   int
	released bool
}

func (f *fakeBuffer) Size() int               { return f.size }
func (f *fakeBuffer) Write(data []byte) error { f.writes++; return nil }
func (f *fakeBuffer) Release()                { f.released = true }

type fakeFactory struct{ buffers []*fakeBuffer }

func (f *fakeFactory) CreateVertexFactory(kind VertexFactoryKind) (VertexFactory, error) {
	return nil, nil
}

func (f *fakeFactory) CreateInstanceBuffer(size int) (GPUBuffer, error) {
	b := &fakeBuffer{size: size}
	f.buffers = append(f.buffers, b)
	return b, nil
}

func TestInstanceBufferPool(t *testing.T) {
	pool := NewInstanceBufferPool(2, 96)
	rc := &RenderContext{Resources: &fakeFactory{}}

	b1, err := pool.Acquire()
	require.NoError(t, err)
	b2, err := pool.Acquire()
	require.NoError(t, err)
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	copy(b1.Reserve(48), make([]byte, 48))
	require.NoError(t, b1.Upload(rc))
	f := rc.Resources.(*fakeFactory)
	require.Len(t, f.buffers, 1)
	assert.Equal(t, 96, f.buffers[0].size, "pool buffers are created at pool size")

	// growing past the pool size reallocates
	b1.Reserve(200)
	require.NoError(t, b1.Upload(rc))
	require.Len(t, f.buffers, 2)
	assert.True(t, f.buffers[0].released)

	q := NewReleaseQueue(1)
	q.Defer(b1, 5)
	q.Defer(b2, 5)
	assert.Equal(t, 0, pool.Free())
	q.Drain(6)
	assert.Equal(t, 2, pool.Free())

	pool.Destroy()
	assert.True(t, f.buffers[1].released)
}

func TestInstanceBufferPoolConcurrentAcquire(t *testing.T) {
	pool := NewInstanceBufferPool(8, 16)
	var wg sync.WaitGroup
	got := make(chan *InstanceBuffer, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b, err := pool.Acquire(); err == nil {
				got <- b
			}
		}()
	}
	wg.Wait()
	close(got)
	seen := map[*InstanceBuffer]bool{}
	for b := range got {
		assert.False(t, seen[b], "buffer handed out twice")
		seen[b] = true
	}
	assert.Len(t, seen, 8)
}

func TestVertexCodecs(t *testing.T) {
	b := make([]byte, SubUVVertexDynamicParameterSize)
	v := SubUVVertex{Interp: 0.5}
	v.Size = [3]float32{2, 2, 1}
	v.UV0 = [2]float32{0.25, 0}
	v.Put(b)
	PutDynamicParameter(b, SubUVVertexSize, [4]float32{1, 2, 3, 4})

	got := DecodeSubUVVertex(b)
	assert.Equal(t, v, got)
	assert.Equal(t, [4]float32{1, 2, 3, 4}, DynamicParameterAt(b, SubUVVertexSize))

	assert.Equal(t, 2, IndexStrideFor(65535))
	assert.Equal(t, 4, IndexStrideFor(65536))
	ib := make([]byte, 8)
	PutIndex(ib, 4, 1, 70000)
	assert.Equal(t, uint32(70000), IndexAt(ib, 4, 1))
}
