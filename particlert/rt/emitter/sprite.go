package emitter

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var (
	quadUVs = [4]mgl32.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	// two triangles per quad
	quadIndices = [6]uint32{0, 2, 3, 0, 1, 2}

	defaultDynamicParameter = core.DynamicParameterPayload{Value: [4]float32{1, 1, 1, 1}}
)

const (
	verticesPerSprite = 4
	indicesPerSprite  = 6
)

// SpriteData draws camera-facing quads. Sub-UV emitters share it through SubUVData.
type SpriteData struct {
	base
	src   *core.SpriteSource
	subUV *core.SubUVSource

	dynamicParameter bool
	stride           int
	order            []ParticleOrder
}

func NewSprite(src *core.SpriteSource) *SpriteData {
	return newSpriteData(src, src, nil)
}

func newSpriteData(s core.Source, src *core.SpriteSource, sub *core.SubUVSource) *SpriteData {
	dyn := src.Material != nil && src.Material.DynamicParameter
	kind := core.VFSprite
	switch {
	case sub != nil && dyn:
		kind = core.VFSubUVDynamicParameter
	case sub != nil:
		kind = core.VFSubUV
	case dyn:
		kind = core.VFSpriteDynamicParameter
	}
	return &SpriteData{
		base:             newBase(s, kind, src.UseLocalSpace),
		src:              src,
		subUV:            sub,
		dynamicParameter: dyn,
		stride:           core.VertexStride(kind),
	}
}

// VertexStride is the byte size of one emitted vertex.
func (d *SpriteData) VertexStride() int { return d.stride }

// DrawCount is the number of quads drawn after the MaxDrawCount clamp.
func (d *SpriteData) DrawCount() int {
	n := d.activeCount()
	if d.src.MaxDrawCount >= 0 && n > d.src.MaxDrawCount {
		n = d.src.MaxDrawCount
	}
	return n
}

func (d *SpriteData) VertexBytes() int { return d.DrawCount() * verticesPerSprite * d.stride }

func (d *SpriteData) IndexStride() int { return core.IndexStrideFor(d.DrawCount() * verticesPerSprite) }

func (d *SpriteData) IndexBytes() int {
	return d.DrawCount() * indicesPerSprite * d.IndexStride()
}

// SortOrder returns the draw order for view, or nil when the material does not need one.
func (d *SpriteData) SortOrder(view *core.SceneView, localToWorld mgl32.Mat4) []ParticleOrder {
	mat := d.material
	if d.proxy != nil {
		mat = d.proxy.Material
	}
	if !needsSort(mat, d.sb.SortMode, view) {
		return nil
	}
	d.order = BuildSortOrder(d.order, d.sb, d.sb.SortMode, view, d.worldTransform(localToWorld))
	return d.order
}

// FillVertexAndIndexData writes 4 vertices and 6 indices per drawn particle and returns
// the triangle count. Quad N takes the particle at order[N] when order is given, else
// active slot N; only the first DrawCount entries are drawn. Indices follow quad order.
func (d *SpriteData) FillVertexAndIndexData(vb, ib []byte, order []ParticleOrder, localToWorld mgl32.Mat4) (int, error) {
	n := d.DrawCount()
	if n == 0 {
		return 0, nil
	}
	if order != nil && len(order) < n {
		return 0, fmt.Errorf("sprite sort order has %d entries for %d particles", len(order), n)
	}
	if len(vb) < d.VertexBytes() {
		return 0, fmt.Errorf("sprite vertices need %d bytes have %d: %w", d.VertexBytes(), len(vb), core.ErrBufferTooSmall)
	}
	if len(ib) < d.IndexBytes() {
		return 0, fmt.Errorf("sprite indices need %d bytes have %d: %w", d.IndexBytes(), len(ib), core.ErrBufferTooSmall)
	}

	for i := 0; i < n; i++ {
		slot := i
		if order != nil {
			slot = order[i].Slot
		}
		d.fillParticle(vb[i*verticesPerSprite*d.stride:], d.sb.Record(slot), localToWorld)
	}

	istride := d.IndexStride()
	for i := 0; i < n; i++ {
		first := uint32(i * verticesPerSprite)
		for k, idx := range quadIndices {
			core.PutIndex(ib, istride, i*indicesPerSprite+k, first+idx)
		}
	}
	return n * 2, nil
}

func (d *SpriteData) fillParticle(out []byte, rec []byte, localToWorld mgl32.Mat4) {
	p := core.ReadParticle(rec)
	pos, old := p.Location, p.OldLocation
	if d.src.Orbit.Valid() {
		orbit := d.src.Orbit.Get(rec)
		off, prev := orbit.Offset, orbit.PreviousOffset
		if !d.local {
			off = core.TransformVector(localToWorld, off)
			prev = core.TransformVector(localToWorld, prev)
		}
		pos = pos.Add(off)
		old = old.Add(prev)
	}

	size := scaleSize(p.Size, d.sb.Scale)
	if d.src.ScreenAlignment == core.AlignSquare {
		size[1] = size[0]
	}

	dyn := defaultDynamicParameter
	if d.dynamicParameter {
		dyn = d.src.DynamicParameter.GetOr(rec, defaultDynamicParameter)
	}

	var frames subUVFrames
	if d.subUV != nil {
		frames = d.subUVFramesFor(rec, p.RelativeTime)
	}

	for c := 0; c < verticesPerSprite; c++ {
		v := core.SpriteVertex{
			Position:    pos,
			OldPosition: old,
			Size:        size,
			Rotation:    p.Rotation,
			UV:          quadUVs[c],
			Color:       p.Color,
		}
		b := out[c*d.stride:]
		if d.subUV == nil {
			v.Put(b)
			if d.dynamicParameter {
				core.PutDynamicParameter(b, core.SpriteVertexSize, dyn.Value)
			}
			continue
		}
		sv := core.SubUVVertex{
			SpriteVertex: v,
			UV0:          frames.offset0.Add(mulVec2(quadUVs[c], frames.size0)),
			UV1:          frames.offset1.Add(mulVec2(quadUVs[c], frames.size1)),
			Interp:       frames.interp,
		}
		sv.Put(b)
		if d.dynamicParameter {
			core.PutDynamicParameter(b, core.SubUVVertexSize, dyn.Value)
		}
	}
}

// Render draws the emitter. Point and Cross modes emit debug primitives instead of quads.
func (d *SpriteData) Render(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) int {
	if !d.Valid() || pdi == nil || d.DrawCount() == 0 {
		return 0
	}
	log := rc.Logger()
	prim = primOrDefault(prim)
	switch d.src.RenderMode {
	case core.RenderNone:
		return 0
	case core.RenderPoint, core.RenderCross:
		d.drawMarkers(prim, pdi, d.src.RenderMode, d.DrawCount())
		return 0
	}
	if d.proxy == nil {
		log.Debugf("%s emitter skipped: material not resolved", d.Kind())
		return 0
	}
	if err := d.ensureVertexFactory(rc); err != nil {
		log.Errorf("%v", err)
		return 0
	}

	order := d.SortOrder(view, prim.LocalToWorld)
	d.vertices = grow(d.vertices, d.VertexBytes())
	d.indices = grow(d.indices, d.IndexBytes())
	tris, err := d.FillVertexAndIndexData(d.vertices, d.indices, order, prim.LocalToWorld)
	if err != nil {
		log.Errorf("%s emitter fill: %v", d.Kind(), err)
		return 0
	}
	if tris == 0 {
		return 0
	}

	batch := core.MeshBatch{
		VertexFactory: d.vf,
		VertexData:    d.vertices,
		VertexStride:  d.stride,
		NumVertices:   d.DrawCount() * verticesPerSprite,
		IndexData:     d.indices,
		IndexStride:   d.IndexStride(),
		NumPrimitives: tris,
		Topology:      core.TopologyTriangleList,
		LocalToWorld:  d.worldTransform(prim.LocalToWorld),
		Material:      d.proxy,
		DPG:           d.dpg,
		CastShadow:    prim.CastShadow,
		Params:        d.params(),
	}
	return pdi.DrawMesh(&batch)
}

func (d *SpriteData) params() core.VertexFactoryParams {
	p := core.VertexFactoryParams{ScreenAlignment: d.src.ScreenAlignment, AxisLock: d.src.LockAxis}
	p.LockAxis, _ = d.src.LockAxis.Axis()
	if d.subUV != nil {
		p.SubImages = [2]int{d.subUV.SubImagesHorizontal, d.subUV.SubImagesVertical}
	}
	return p
}

// SubUVData is a sprite emitter sampling frames from a sub-image grid.
type SubUVData struct {
	*SpriteData
}

func NewSubUV(src *core.SubUVSource) *SubUVData {
	return &SubUVData{SpriteData: newSpriteData(src, &src.SpriteSource, src)}
}

type subUVFrames struct {
	offset0, size0 mgl32.Vec2
	offset1, size1 mgl32.Vec2
	interp         float32
}

// subUVFramesFor picks the two atlas frames for one particle. Without a sub-UV payload
// the frame advances linearly over the particle's life.
func (d *SpriteData) subUVFramesFor(rec []byte, relativeTime float32) subUVFrames {
	s := d.subUV
	h := max(s.SubImagesHorizontal, 1)
	v := max(s.SubImagesVertical, 1)
	total := h * v
	cell := mgl32.Vec2{1 / float32(h), 1 / float32(v)}

	if s.DirectUV && s.SubUV.Valid() {
		pl := s.SubUV.Get(rec)
		off := mgl32.Vec2{pl.UVOffset[0], pl.UVOffset[1]}
		size := mgl32.Vec2{pl.UVSize[0], pl.UVSize[1]}
		return subUVFrames{offset0: off, size0: size, offset1: off, size1: size}
	}

	image := relativeTime * float32(total)
	if s.SubUV.Valid() {
		image = s.SubUV.Get(rec).ImageIndex
	}
	image = math32.Max(image, 0)
	frame0 := math32.Floor(image)
	interp := image - frame0
	i0 := min(int(frame0), total-1)
	i1 := min(i0+1, total-1)
	if s.Interpolation == core.SubUVNone {
		i0 = 0
		i1 = 0
	}
	if !s.Interpolation.Blends() {
		interp = 0
		i1 = i0
	}
	return subUVFrames{
		offset0: frameOffset(i0, h, cell),
		size0:   cell,
		offset1: frameOffset(i1, h, cell),
		size1:   cell,
		interp:  interp,
	}
}

func frameOffset(index, horizontal int, cell mgl32.Vec2) mgl32.Vec2 {
	col := index % horizontal
	row := index / horizontal
	return mgl32.Vec2{float32(col) * cell.X(), float32(row) * cell.Y()}
}

func mulVec2(a, b mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{a.X() * b.X(), a.Y() * b.Y()} }
