package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// Buffer is a fixed-size GPU buffer. It backs the instance buffers handed out through
// core.ResourceFactory.
type Buffer struct {
	device *wgpu.Device
	buf    *wgpu.Buffer
	size   int
}

func newBuffer(device *wgpu.Device, label string, size int, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(alignUp(size, 4)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return &Buffer{device: device, buf: buf, size: size}, nil
}

func (b *Buffer) Size() int { return b.size }

// Write copies data to the start of the buffer.
func (b *Buffer) Write(data []byte) error {
	if len(data) > b.size {
		return fmt.Errorf("write %d bytes into %d: %w", len(data), b.size, core.ErrBufferTooSmall)
	}
	if len(data) == 0 {
		return nil
	}
	return b.device.GetQueue().WriteBuffer(b.buf, 0, padded(data))
}

func (b *Buffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// Raw is the underlying wgpu buffer, nil once released.
func (b *Buffer) Raw() *wgpu.Buffer { return b.buf }

// ensureBuffer grows *buf to hold data plus headroom and uploads data. It reports whether
// the buffer was recreated, in which case bind groups referencing it are stale.
func ensureBuffer(device *wgpu.Device, name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	needed := uint64(alignUp(len(data)+headroom, 4))
	if needed == 0 {
		needed = 4
	}

	recreated := false
	current := *buf
	if current == nil || current.GetSize() < needed {
		if current != nil {
			current.Release()
		}
		nb, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            name,
			Size:             needed,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			*buf = nil
			return false, fmt.Errorf("create %s: %w", name, err)
		}
		*buf = nb
		recreated = true
	}
	if len(data) > 0 {
		if err := device.GetQueue().WriteBuffer(*buf, 0, padded(data)); err != nil {
			return recreated, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return recreated, nil
}

func alignUp(n, align int) int {
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}

// padded extends data to a multiple of 4 bytes, the copy granularity of WriteBuffer.
func padded(data []byte) []byte {
	n := alignUp(len(data), 4)
	if n == len(data) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}
