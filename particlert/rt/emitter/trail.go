package emitter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var (
	trailSpawnPointColor   = mgl32.Vec4{1, 0, 0, 1}
	trailTangentColor      = mgl32.Vec4{0, 1, 0, 1}
	trailTessellationColor = mgl32.Vec4{0, 1, 1, 1}
)

type trailRun struct {
	first, count     int
	knotFirst, knots int
}

// TrailData renders ribbons along linked chains of particles, each chain running from a
// Start marker through Middle links to an End marker.
type TrailData struct {
	base
	src *core.TrailSource

	tessellated bool
	walkErr     error
	runs        []trailRun
	points      []ribbonPoint
	chain       []trailKnot
	knots       []trailKnot
	line        []mgl32.Vec3
	strips      []strip
}

type trailKnot struct {
	pos, tangent mgl32.Vec3
	size         float32
	color        mgl32.Vec4
}

func NewTrail(src *core.TrailSource) *TrailData {
	return &TrailData{
		base: newBase(src, core.VFBeamTrail, src.UseLocalSpace),
		src:  src,
	}
}

func (d *TrailData) sheets() int { return max(d.src.Sheets, 1) }

func (d *TrailData) tessellation() int { return max(d.src.TessellationFactor, 1) }

// walk collects the chain starting at active slot start. The walk follows Next links as
// record indices and stops at the End marker; a chain that leaves the record range, hits
// a null link or outgrows the active count is truncated and reported.
func (d *TrailData) walk(dst []trailKnot, start int) ([]trailKnot, error) {
	sb := d.sb
	records := len(sb.ParticleData) / sb.ParticleStride
	rec := sb.Record(start)
	for steps := 0; ; steps++ {
		p := core.ReadParticle(rec)
		tp := d.src.Trail.Get(rec)
		dst = append(dst, trailKnot{
			pos:     p.Location,
			tangent: tp.Tangent,
			size:    p.Size.X() * sb.Scale.X(),
			color:   p.Color,
		})
		if tp.IsEnd() {
			return dst, nil
		}
		next := tp.Next()
		switch {
		case next == core.TrailNullNext || next >= records:
			return dst, fmt.Errorf("trail from slot %d: link %d after %d segments: %w", start, next, steps+1, core.ErrMalformedTrail)
		case steps+1 >= d.activeCount():
			return dst, fmt.Errorf("trail from slot %d: no end within %d segments: %w", start, d.activeCount(), core.ErrMalformedTrail)
		}
		rec = sb.RecordAt(next)
	}
}

// Tessellate walks every chain and builds its interpolated centre line. The result is
// cached for the snapshot; the returned error reports malformed chains, which are drawn
// up to the point the walk stopped.
func (d *TrailData) Tessellate() error {
	if d.tessellated {
		return d.walkErr
	}
	d.tessellated = true
	d.runs = d.runs[:0]
	d.points = d.points[:0]
	d.knots = d.knots[:0]

	n := d.activeCount()
	tess := d.tessellation()
	step := 1 / float32(tess*n+1)
	if d.src.TextureTile > 1 {
		step *= float32(d.src.TextureTile)
	}

	var malformed int
	for i := 0; i < n; i++ {
		tp := d.src.Trail.Get(d.sb.Record(i))
		if !tp.IsStart() {
			continue
		}
		var err error
		d.chain, err = d.walk(d.chain[:0], i)
		if err != nil {
			if malformed == 0 {
				d.walkErr = err
			}
			malformed++
		}
		if len(d.chain) < 2 {
			continue
		}

		run := trailRun{first: len(d.points), knotFirst: len(d.knots), knots: len(d.chain)}
		d.knots = append(d.knots, d.chain...)
		var u float32
		for k := 0; k < len(d.chain)-1; k++ {
			a, b := d.chain[k], d.chain[k+1]
			for j := 0; j < tess; j++ {
				t := float32(j) / float32(tess)
				d.points = append(d.points, ribbonPoint{
					pos:   core.CubicInterp(a.pos, a.tangent, b.pos, b.tangent, t),
					size:  core.Lerp(a.size, b.size, t),
					taper: 1,
					color: core.LerpVec4(a.color, b.color, t),
					u:     u,
				})
				u += step
			}
		}
		last := d.chain[len(d.chain)-1]
		d.points = append(d.points, ribbonPoint{pos: last.pos, size: last.size, taper: 1, color: last.color, u: u})
		run.count = len(d.points) - run.first
		d.runs = append(d.runs, run)
	}
	if malformed > 1 {
		d.walkErr = fmt.Errorf("%d malformed trails, first: %w", malformed, d.walkErr)
	}

	d.strips = d.strips[:0]
	v := 0
	for _, r := range d.runs {
		for s := 0; s < d.sheets(); s++ {
			d.strips = append(d.strips, strip{first: v, count: r.count * 2})
			v += r.count * 2
		}
	}
	return d.walkErr
}

// Counts returns the vertex and index counts of the trail geometry.
func (d *TrailData) Counts() (vertices, indices int) {
	_ = d.Tessellate()
	for _, s := range d.strips {
		vertices += s.count
	}
	return vertices, stripIndexCount(d.strips)
}

func (d *TrailData) IndexStride() int {
	v, _ := d.Counts()
	return core.IndexStrideFor(v)
}

// FillVertexAndIndexData writes every sheet of every trail as a triangle strip and
// returns the strip primitive count.
func (d *TrailData) FillVertexAndIndexData(vb, ib []byte, view *core.SceneView, localToWorld mgl32.Mat4) (int, error) {
	nv, ni := d.Counts()
	if nv == 0 {
		return 0, nil
	}
	if len(vb) < nv*core.BeamTrailVertexSize {
		return 0, fmt.Errorf("trail vertices need %d bytes have %d: %w", nv*core.BeamTrailVertexSize, len(vb), core.ErrBufferTooSmall)
	}
	cam := cameraFor(view, d.local, localToWorld)
	v := 0
	for _, r := range d.runs {
		pts := d.points[r.first : r.first+r.count]
		for s := 0; s < d.sheets(); s++ {
			v += emitRibbon(vb, v, pts, sheetAngle(s, d.sheets()), 1, cam, 0)
		}
	}
	if _, err := fillStripIndices(ib, core.IndexStrideFor(nv), d.strips); err != nil {
		return 0, err
	}
	return stripPrimitives(ni), nil
}

func (d *TrailData) Render(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) int {
	if !d.Valid() || pdi == nil || d.activeCount() == 0 {
		return 0
	}
	log := rc.Logger()
	prim = primOrDefault(prim)
	switch d.src.RenderMode {
	case core.RenderNone:
		return 0
	case core.RenderPoint, core.RenderCross:
		d.drawMarkers(prim, pdi, d.src.RenderMode, d.activeCount())
		return 0
	}

	if err := d.Tessellate(); err != nil {
		log.Warnf("trail emitter: %v", err)
	}
	d.drawOverlays(prim, pdi)
	if !d.src.RenderGeometry {
		return 0
	}
	if d.proxy == nil {
		log.Debugf("trail emitter skipped: material not resolved")
		return 0
	}
	if err := d.ensureVertexFactory(rc); err != nil {
		log.Errorf("%v", err)
		return 0
	}

	nv, ni := d.Counts()
	if nv == 0 {
		return 0
	}
	istride := core.IndexStrideFor(nv)
	d.vertices = grow(d.vertices, nv*core.BeamTrailVertexSize)
	d.indices = grow(d.indices, ni*istride)
	prims, err := d.FillVertexAndIndexData(d.vertices, d.indices, view, prim.LocalToWorld)
	if err != nil {
		log.Errorf("trail emitter fill: %v", err)
		return 0
	}
	if prims == 0 {
		return 0
	}
	return pdi.DrawMesh(&core.MeshBatch{
		VertexFactory: d.vf,
		VertexData:    d.vertices,
		VertexStride:  core.BeamTrailVertexSize,
		NumVertices:   nv,
		IndexData:     d.indices,
		IndexStride:   istride,
		NumPrimitives: prims,
		Topology:      core.TopologyTriangleStrip,
		LocalToWorld:  d.worldTransform(prim.LocalToWorld),
		Material:      d.proxy,
		DPG:           d.dpg,
		CastShadow:    prim.CastShadow,
	})
}

func (d *TrailData) drawOverlays(prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) {
	if !d.src.RenderSpawnPoints && !d.src.RenderTangents && !d.src.RenderTessellation {
		return
	}
	for _, r := range d.runs {
		knots := d.knots[r.knotFirst : r.knotFirst+r.knots]
		for _, k := range knots {
			pos := d.toWorld(prim.LocalToWorld, k.pos)
			if d.src.RenderSpawnPoints {
				core.DrawWireStar(pdi, pos, 2, trailSpawnPointColor, d.dpg)
			}
			if d.src.RenderTangents {
				pdi.DrawLine(pos, d.toWorld(prim.LocalToWorld, k.pos.Add(k.tangent)), trailTangentColor, d.dpg)
			}
		}
		if d.src.RenderTessellation {
			d.line = d.line[:0]
			for _, p := range d.points[r.first : r.first+r.count] {
				d.line = append(d.line, d.toWorld(prim.LocalToWorld, p.pos))
			}
			drawPolyline(pdi, d.line, trailTessellationColor, d.dpg)
		}
	}
}
