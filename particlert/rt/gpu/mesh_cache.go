package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/gekko3d/particles/particlert/rt/core"
)

type meshEntry struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount int
}

// meshCache holds LOD0 of every static mesh drawn so far, keyed by mesh ID.
type meshCache struct {
	device  *wgpu.Device
	log     core.Logger
	entries map[uuid.UUID]*meshEntry
}

func newMeshCache(device *wgpu.Device, log core.Logger) *meshCache {
	return &meshCache{device: device, log: log, entries: make(map[uuid.UUID]*meshEntry)}
}

func (c *meshCache) get(m *core.StaticMesh) (*meshEntry, error) {
	if e, ok := c.entries[m.ID]; ok {
		return e, nil
	}
	lod := m.LOD0()
	if err := checkMeshLOD(lod); err != nil {
		return nil, fmt.Errorf("mesh %s: %w", m.Name, err)
	}
	e := &meshEntry{indexCount: len(lod.Indices)}
	if _, err := ensureBuffer(c.device, "Mesh "+m.Name+" VB", &e.vertices, lod.Vertices, wgpu.BufferUsageVertex, 0); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(c.device, "Mesh "+m.Name+" IB", &e.indices, indexBytes(lod.Indices), wgpu.BufferUsageIndex, 0); err != nil {
		e.vertices.Release()
		return nil, err
	}
	c.entries[m.ID] = e
	c.log.Debugf("uploaded mesh %s: %d vertices, %d indices", m.Name, len(lod.Vertices)/lod.VertexStride, len(lod.Indices))
	return e, nil
}

func (c *meshCache) Len() int { return len(c.entries) }

func (c *meshCache) Release() {
	for id, e := range c.entries {
		e.vertices.Release()
		e.indices.Release()
		delete(c.entries, id)
	}
}

func checkMeshLOD(lod *core.StaticMeshLOD) error {
	switch {
	case lod == nil:
		return fmt.Errorf("no LOD: %w", ErrInvalidBatch)
	case lod.VertexStride != core.MeshVertexSize:
		return fmt.Errorf("vertex stride %d, want %d: %w", lod.VertexStride, core.MeshVertexSize, ErrInvalidBatch)
	case len(lod.Vertices) == 0 || len(lod.Indices) == 0:
		return fmt.Errorf("empty LOD: %w", ErrInvalidBatch)
	}
	return nil
}

func indexBytes(idx []uint16) []byte {
	out := make([]byte, alignUp(len(idx)*2, 4))
	for i, v := range idx {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
