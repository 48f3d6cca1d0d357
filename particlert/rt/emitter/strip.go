package emitter

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// strip is a run of vertices drawn as one triangle strip. Counts are always even, so
// joining strips with two degenerate indices keeps the winding parity.
type strip struct {
	first int
	count int
}

// stripIndexCount is the index count for strips joined with degenerate triangles.
func stripIndexCount(strips []strip) int {
	n := 0
	for i, s := range strips {
		n += s.count
		if i > 0 {
			n += 2
		}
	}
	return n
}

// fillStripIndices writes the joined index stream and returns how many indices it wrote.
// Between strips it repeats the previous strip's last index and the next strip's first,
// producing zero-area triangles that the rasterizer drops.
func fillStripIndices(ib []byte, stride int, strips []strip) (int, error) {
	need := stripIndexCount(strips)
	if len(ib) < need*stride {
		return 0, fmt.Errorf("strip indices need %d bytes have %d: %w", need*stride, len(ib), core.ErrBufferTooSmall)
	}
	n := 0
	for i, s := range strips {
		if i > 0 {
			prev := strips[i-1]
			core.PutIndex(ib, stride, n, uint32(prev.first+prev.count-1))
			n++
			core.PutIndex(ib, stride, n, uint32(s.first))
			n++
		}
		for v := 0; v < s.count; v++ {
			core.PutIndex(ib, stride, n, uint32(s.first+v))
			n++
		}
	}
	return n, nil
}

// stripPrimitives is the triangle count of a strip index stream, degenerates included.
func stripPrimitives(numIndices int) int {
	if numIndices < 3 {
		return 0
	}
	return numIndices - 2
}

// camera is the view position and up vector in the emitter's particle space.
type camera struct {
	pos, up mgl32.Vec3
	ok      bool
}

func cameraFor(view *core.SceneView, local bool, localToWorld mgl32.Mat4) camera {
	if view == nil {
		return camera{up: core.AxisZ}
	}
	c := camera{pos: view.ViewOrigin, up: view.CameraUp(), ok: true}
	if local {
		inv := localToWorld.Inv()
		c.pos = core.TransformPosition(inv, c.pos)
		c.up = core.TransformVector(inv, c.up)
	}
	return c
}

// facingUp is the camera-facing offset direction for a ribbon segment running along
// right at point: right x (point to camera). Degenerate cases fall back to camera up.
func facingUp(right, point mgl32.Vec3, cam camera) mgl32.Vec3 {
	if cam.ok {
		if up, ok := core.SafeNormalize(right.Cross(cam.pos.Sub(point))); ok {
			return up
		}
	}
	return cam.up
}

// ribbonPoint is one sample of a beam or trail centre line.
type ribbonPoint struct {
	pos   mgl32.Vec3
	size  float32
	taper float32
	color mgl32.Vec4
	u     float32
}

// emitRibbon writes two vertices per point starting at vertex first, offset along the
// camera-facing up vector rotated by angle about the segment direction. upStep > 0
// recomputes up every upStep points, 0 computes it once. Returns the vertices written.
func emitRibbon(vb []byte, first int, pts []ribbonPoint, angle float32, upStep int, cam camera, rotation float32) int {
	var up mgl32.Vec3
	n := len(pts)
	for k := range pts {
		var right mgl32.Vec3
		if k+1 < n {
			right = pts[k+1].pos.Sub(pts[k].pos)
		} else if k > 0 {
			right = pts[k].pos.Sub(pts[k-1].pos)
		}
		if k == 0 || (upStep > 0 && k%upStep == 0) {
			up = facingUp(right, pts[k].pos, cam)
			if angle != 0 {
				if axis, ok := core.SafeNormalize(right); ok {
					up = core.AxisAngle(axis, angle).Rotate(up)
				}
			}
		}
		off := up.Mul(pts[k].size * pts[k].taper)
		size := mgl32.Vec3{pts[k].size, pts[k].size, pts[k].size}
		top := core.BeamTrailVertex{
			Position:    pts[k].pos.Add(off),
			OldPosition: pts[k].pos.Add(off),
			Size:        size,
			Rotation:    rotation,
			UV:          mgl32.Vec2{pts[k].u, 0},
			Color:       pts[k].color,
		}
		bottom := top
		bottom.Position = pts[k].pos.Sub(off)
		bottom.OldPosition = bottom.Position
		bottom.UV = mgl32.Vec2{pts[k].u, 1}

		v := first + k*2
		top.Put(vb[v*core.BeamTrailVertexSize:])
		bottom.Put(vb[(v+1)*core.BeamTrailVertexSize:])
	}
	return n * 2
}

// sheetAngle is the rotation of sheet i of n about the ribbon direction.
func sheetAngle(i, n int) float32 {
	if n <= 1 {
		return 0
	}
	return math32.Pi / float32(n) * float32(i)
}

// drawPolyline draws consecutive points as debug lines.
func drawPolyline(pdi core.PrimitiveDrawer, pts []mgl32.Vec3, color mgl32.Vec4, dpg core.DepthPriorityGroup) {
	for i := 1; i < len(pts); i++ {
		pdi.DrawLine(pts[i-1], pts[i], color, dpg)
	}
}
