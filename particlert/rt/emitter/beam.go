package emitter

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var (
	beamDirectLineColor = mgl32.Vec4{1, 1, 0, 1}
	beamLineColor       = mgl32.Vec4{0, 1, 0, 1}
	beamKnotColor       = mgl32.Vec4{1, 0, 0, 1}
)

// beamRun is one beam's tessellated centre line inside BeamData.points.
type beamRun struct {
	first, count         int
	knotFirst, knotCount int
	source, target       mgl32.Vec3
	rotation             float32
}

// BeamData renders poly-strip beams between a source and a target, optionally perturbed
// by noise, tapered, and repeated over rotated sheets.
type BeamData struct {
	base
	src *core.BeamSource

	tessellated bool
	runs        []beamRun
	points      []ribbonPoint
	knots       []mgl32.Vec3
	line        []mgl32.Vec3
	tangents    []mgl32.Vec3
	strips      []strip
}

func NewBeam(src *core.BeamSource) *BeamData {
	d := &BeamData{
		base: newBase(src, core.VFBeamTrail, src.UseLocalSpace),
		src:  src,
	}
	for i := 0; i < d.activeCount(); i++ {
		bp := src.Beam.Get(d.sb.Record(i))
		d.boundsRadius = extendBounds(d.boundsCenter, d.boundsRadius, bp.SourcePoint)
		d.boundsRadius = extendBounds(d.boundsCenter, d.boundsRadius, bp.TargetPoint)
	}
	return d
}

func (d *BeamData) sheets() int { return max(d.src.Sheets, 1) }

// Tessellate builds the centre line of every active beam. The snapshot is immutable so
// the result is computed once and reused across views and frames.
func (d *BeamData) Tessellate() {
	if d.tessellated {
		return
	}
	d.tessellated = true
	d.runs = d.runs[:0]
	d.points = d.points[:0]
	d.knots = d.knots[:0]

	for i := 0; i < d.activeCount(); i++ {
		rec := d.sb.Record(i)
		p := core.ReadParticle(rec)
		bp := d.src.Beam.Get(rec)

		knotFirst := len(d.knots)
		d.line = d.line[:0]
		if d.noiseActive(&bp) {
			d.line = d.noisePath(d.line, rec, &bp)
		} else {
			d.line = d.interpolatedPath(d.line, rec, &bp)
			d.knots = append(d.knots, bp.SourcePoint, bp.TargetPoint)
		}
		if len(d.line) < 2 {
			continue
		}

		run := beamRun{
			first:     len(d.points),
			count:     len(d.line),
			knotFirst: knotFirst,
			knotCount: len(d.knots) - knotFirst,
			source:    bp.SourcePoint,
			target:    bp.TargetPoint,
			rotation:  p.Rotation,
		}
		size := p.Size.X() * d.sb.Scale.X()
		us := d.texCoords(d.line)
		for k, pos := range d.line {
			d.points = append(d.points, ribbonPoint{
				pos:   pos,
				size:  size,
				taper: d.taperAt(rec, &bp, k, len(d.line)),
				color: p.Color,
				u:     us[k],
			})
		}
		d.runs = append(d.runs, run)
	}

	d.strips = d.strips[:0]
	v := 0
	for _, r := range d.runs {
		for s := 0; s < d.sheets(); s++ {
			d.strips = append(d.strips, strip{first: v, count: r.count * 2})
			v += r.count * 2
		}
	}
}

// Counts returns the vertex and index counts of the beam geometry.
func (d *BeamData) Counts() (vertices, indices int) {
	d.Tessellate()
	for _, s := range d.strips {
		vertices += s.count
	}
	return vertices, stripIndexCount(d.strips)
}

func (d *BeamData) IndexStride() int {
	v, _ := d.Counts()
	return core.IndexStrideFor(v)
}

// FillVertexAndIndexData writes every sheet of every beam as a triangle strip, joined with
// degenerate indices, and returns the strip primitive count.
func (d *BeamData) FillVertexAndIndexData(vb, ib []byte, view *core.SceneView, localToWorld mgl32.Mat4) (int, error) {
	nv, ni := d.Counts()
	if nv == 0 {
		return 0, nil
	}
	if len(vb) < nv*core.BeamTrailVertexSize {
		return 0, fmt.Errorf("beam vertices need %d bytes have %d: %w", nv*core.BeamTrailVertexSize, len(vb), core.ErrBufferTooSmall)
	}
	cam := cameraFor(view, d.local, localToWorld)
	v := 0
	for _, r := range d.runs {
		pts := d.points[r.first : r.first+r.count]
		for s := 0; s < d.sheets(); s++ {
			v += emitRibbon(vb, v, pts, sheetAngle(s, d.sheets()), d.src.UpVectorStepSize, cam, r.rotation)
		}
	}
	written, err := fillStripIndices(ib, core.IndexStrideFor(nv), d.strips)
	if err != nil {
		return 0, err
	}
	if written != ni {
		return 0, fmt.Errorf("beam wrote %d indices, expected %d", written, ni)
	}
	return stripPrimitives(ni), nil
}

func (d *BeamData) Render(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) int {
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

	d.Tessellate()
	d.drawOverlays(prim, pdi)
	if !d.src.RenderGeometry {
		return 0
	}
	if d.proxy == nil {
		log.Debugf("beam emitter skipped: material not resolved")
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
		log.Errorf("beam emitter fill: %v", err)
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

// drawOverlays draws the diagnostic source-target line, the tessellated centre line and
// star markers on the noise knots.
func (d *BeamData) drawOverlays(prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) {
	if !d.src.RenderDirectLine && !d.src.RenderLines && !d.src.RenderTessellation {
		return
	}
	for _, r := range d.runs {
		if d.src.RenderDirectLine {
			pdi.DrawLine(d.toWorld(prim.LocalToWorld, r.source), d.toWorld(prim.LocalToWorld, r.target), beamDirectLineColor, d.dpg)
		}
		if d.src.RenderLines {
			d.line = d.line[:0]
			for _, p := range d.points[r.first : r.first+r.count] {
				d.line = append(d.line, d.toWorld(prim.LocalToWorld, p.pos))
			}
			drawPolyline(pdi, d.line, beamLineColor, d.dpg)
		}
		if d.src.RenderTessellation {
			for _, k := range d.knots[r.knotFirst : r.knotFirst+r.knotCount] {
				core.DrawWireStar(pdi, d.toWorld(prim.LocalToWorld, k), 2, beamKnotColor, d.dpg)
			}
		}
	}
}

// interpolatedPath is the no-noise centre line: source to target in InterpolationPoints
// steps, or one straight segment when there are one or fewer.
func (d *BeamData) interpolatedPath(dst []mgl32.Vec3, rec []byte, bp *core.BeamPayload) []mgl32.Vec3 {
	steps := d.src.InterpolationPoints
	dst = append(dst, bp.SourcePoint)
	if steps <= 1 {
		return append(dst, bp.TargetPoint)
	}
	if d.src.InterpolatedPoints.Valid() {
		n := min(steps, d.src.InterpolatedPoints.Len())
		if bp.InterpolationSteps > 0 {
			n = min(n, int(bp.InterpolationSteps))
		}
		for k := 0; k < n; k++ {
			dst = append(dst, d.src.InterpolatedPoints.At(rec, k))
		}
		return dst
	}
	t0 := bp.SourceTangent.Mul(bp.SourceStrength)
	t1 := bp.TargetTangent.Mul(bp.TargetStrength)
	for k := 1; k <= steps; k++ {
		dst = append(dst, core.CubicInterp(bp.SourcePoint, t0, bp.TargetPoint, t1, float32(k)/float32(steps)))
	}
	return dst
}

func (d *BeamData) noiseActive(bp *core.BeamPayload) bool {
	return d.src.NoiseEnabled && bp.Frequency() > 0
}

// noisePath places Frequency noise knots along the straight source-target line, offsets
// them by the (possibly smoothed) noise points and tessellates a cubic Hermite curve
// through them. Tangents are cardinal: (next - prev)/2 scaled by (1 - tension).
func (d *BeamData) noisePath(dst []mgl32.Vec3, rec []byte, bp *core.BeamPayload) []mgl32.Vec3 {
	freq := bp.Frequency()
	if nm := bp.NoiseMax(); nm > 0 && freq > nm {
		freq = nm
	}
	src, dstPt := bp.SourcePoint, bp.TargetPoint
	dir, step := bp.Direction, bp.StepSize
	if step <= 0 || dir.LenSqr() == 0 {
		span := dstPt.Sub(src)
		n, ok := core.SafeNormalize(span)
		if !ok {
			return append(dst, src, dstPt)
		}
		dir = n
		step = span.Len() / float32(freq+1)
	}

	scale := d.src.NoiseRangeScale * d.src.NoiseDistanceScale.GetOr(rec, 1)
	knotFirst := len(d.knots)
	d.knots = append(d.knots, src)
	for k := 1; k <= freq; k++ {
		p := src.Add(dir.Mul(step * float32(k)))
		d.knots = append(d.knots, p.Add(d.noiseOffset(rec, bp, k-1).Mul(scale)))
	}
	end := dstPt
	if d.src.TargetNoise {
		end = end.Add(d.noiseOffset(rec, bp, freq).Mul(scale))
	}
	d.knots = append(d.knots, end)
	knots := d.knots[knotFirst:]

	n := len(knots)
	d.tangents = d.tangents[:0]
	strength := d.src.NoiseTangentStrength * (1 - d.src.NoiseTension)
	for k := 0; k < n; k++ {
		var t mgl32.Vec3
		switch {
		case k == 0:
			t = knots[1].Sub(knots[0])
		case k == n-1:
			t = knots[n-1].Sub(knots[n-2])
		default:
			t = knots[k+1].Sub(knots[k-1]).Mul(0.5)
		}
		d.tangents = append(d.tangents, t.Mul(strength))
	}

	tess := max(d.src.NoiseTessellation, 1)
	for k := 0; k < n-1; k++ {
		for j := 0; j < tess; j++ {
			a := float32(j) / float32(tess)
			dst = append(dst, core.CubicInterp(knots[k], d.tangents[k], knots[k+1], d.tangents[k+1], a))
		}
	}
	return append(dst, knots[n-1])
}

// noiseOffset is noise point i. With smooth noise the point chases its target from the
// previous position; the chase is evaluated here and never written back.
func (d *BeamData) noiseOffset(rec []byte, bp *core.BeamPayload, i int) mgl32.Vec3 {
	tgt := d.src.TargetNoisePoints
	if !tgt.Valid() || i >= tgt.Len() {
		return mgl32.Vec3{}
	}
	target := tgt.At(rec, i)
	next := d.src.NextNoisePoints
	if !d.src.SmoothNoise || bp.Locked() || !next.Valid() || i >= next.Len() {
		return target
	}
	dt := d.src.NoiseDeltaTime.GetOr(rec, 0)
	return ChaseNoise(next.At(rec, i), target, d.src.NoiseSpeed, dt, d.src.NoiseLockRadius)
}

// ChaseNoise moves current towards target by the fraction speed*dt of the remaining
// distance, snapping onto target once within lockRadius.
func ChaseNoise(current, target mgl32.Vec3, speed, dt, lockRadius float32) mgl32.Vec3 {
	delta := target.Sub(current)
	if delta.Len() <= lockRadius {
		return target
	}
	f := math32.Min(math32.Max(speed*dt, 0), 1)
	moved := current.Add(delta.Mul(f))
	if target.Sub(moved).Len() <= lockRadius {
		return target
	}
	return moved
}

// taperAt is the width scale of centre-line point k of m. A taper payload, when present,
// is sampled along the beam; otherwise the taper runs from 1 at the source to TaperFactor
// at the target, over the travelled part only for TaperPartial.
func (d *BeamData) taperAt(rec []byte, bp *core.BeamPayload, k, m int) float32 {
	if d.src.TaperMethod == core.TaperNone {
		return 1
	}
	var t float32
	if m > 1 {
		t = float32(k) / float32(m-1)
	}
	if vals := d.src.TaperValues; vals.Valid() {
		pos := t * float32(vals.Len()-1)
		i0 := int(math32.Floor(pos))
		i1 := min(i0+1, vals.Len()-1)
		return core.Lerp(vals.At(rec, i0), vals.At(rec, i1), pos-float32(i0)) * d.src.TaperScale
	}
	if d.src.TaperMethod == core.TaperPartial {
		ratio := bp.TravelRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 1
		}
		t *= ratio
	}
	return core.Lerp(1, d.src.TaperFactor, t) * d.src.TaperScale
}

// texCoords returns U per centre-line point: distance over TextureTileDistance when set,
// else uniform steps scaled by TextureTile.
func (d *BeamData) texCoords(line []mgl32.Vec3) []float32 {
	us := make([]float32, len(line))
	if d.src.TextureTileDistance > 0 {
		var dist float32
		for k := 1; k < len(line); k++ {
			dist += line[k].Sub(line[k-1]).Len()
			us[k] = dist / d.src.TextureTileDistance
		}
		return us
	}
	tile := float32(max(d.src.TextureTile, 1))
	for k := range us {
		us[k] = float32(k) / float32(len(line)-1) * tile
	}
	return us
}
