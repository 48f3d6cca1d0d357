package core

import "github.com/go-gl/mathgl/mgl32"

// GizmoType is the kind of diagnostic shape drawn by the debug overlay.
type GizmoType int

const (
	GizmoLine GizmoType = iota
	GizmoPoint
	GizmoCross
	GizmoStar
)

// Gizmo is one diagnostic shape. Lines use P1 and P2; the other shapes are centred on P1
// and extend Size in each direction.
type Gizmo struct {
	Type   GizmoType
	Color  mgl32.Vec4
	P1, P2 mgl32.Vec3
	Size   float32
	DPG    DepthPriorityGroup
}

// Lines expands the gizmo into line segments.
func (g Gizmo) Lines() [][2]mgl32.Vec3 {
	switch g.Type {
	case GizmoLine:
		return [][2]mgl32.Vec3{{g.P1, g.P2}}
	case GizmoCross, GizmoPoint:
		s := g.Size
		if g.Type == GizmoPoint {
			s *= 0.5
		}
		return axisLines(g.P1, s)
	case GizmoStar:
		lines := axisLines(g.P1, g.Size)
		d := g.Size * 0.57735
		for _, dir := range []mgl32.Vec3{{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {-1, 1, 1}} {
			o := dir.Mul(d)
			lines = append(lines, [2]mgl32.Vec3{g.P1.Sub(o), g.P1.Add(o)})
		}
		return lines
	}
	return nil
}

func axisLines(c mgl32.Vec3, s float32) [][2]mgl32.Vec3 {
	return [][2]mgl32.Vec3{
		{c.Sub(AxisX.Mul(s)), c.Add(AxisX.Mul(s))},
		{c.Sub(AxisY.Mul(s)), c.Add(AxisY.Mul(s))},
		{c.Sub(AxisZ.Mul(s)), c.Add(AxisZ.Mul(s))},
	}
}

// DrawCross draws an axis cross of half-extent size.
func DrawCross(pdi PrimitiveDrawer, pos mgl32.Vec3, size float32, color mgl32.Vec4, dpg DepthPriorityGroup) {
	for _, l := range (Gizmo{Type: GizmoCross, P1: pos, Size: size}).Lines() {
		pdi.DrawLine(l[0], l[1], color, dpg)
	}
}

// DrawWireStar draws an axis cross plus the four body diagonals.
func DrawWireStar(pdi PrimitiveDrawer, pos mgl32.Vec3, size float32, color mgl32.Vec4, dpg DepthPriorityGroup) {
	for _, l := range (Gizmo{Type: GizmoStar, P1: pos, Size: size}).Lines() {
		pdi.DrawLine(l[0], l[1], color, dpg)
	}
}
