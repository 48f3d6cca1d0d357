package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCubicInterpEndpoints(t *testing.T) {
	p0 := mgl32.Vec3{0, 0, 0}
	p1 := mgl32.Vec3{10, 0, 0}
	t0 := mgl32.Vec3{0, 5, 0}
	t1 := mgl32.Vec3{0, -5, 0}

	assert.True(t, NearlyEqualVec3(CubicInterp(p0, t0, p1, t1, 0), p0, 1e-6))
	assert.True(t, NearlyEqualVec3(CubicInterp(p0, t0, p1, t1, 1), p1, 1e-6))

	// zero tangents stay on the segment
	mid := CubicInterp(p0, mgl32.Vec3{}, p1, mgl32.Vec3{}, 0.5)
	assert.True(t, NearlyEqualVec3(mid, mgl32.Vec3{5, 0, 0}, 1e-5))
}

func TestFindBetween(t *testing.T) {
	cases := []struct {
		name     string
		from, to mgl32.Vec3
	}{
		{"x to y", AxisX, AxisY},
		{"same", AxisZ, AxisZ},
		{"opposite x", AxisX, AxisX.Mul(-1)},
		{"opposite z", AxisZ, AxisZ.Mul(-1)},
		{"skew", mgl32.Vec3{1, 2, 3}, mgl32.Vec3{-3, 1, 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := FindBetween(tc.from, tc.to)
			got := q.Rotate(tc.from.Normalize())
			assert.True(t, NearlyEqualVec3(got, tc.to.Normalize(), 1e-4), "got %v", got)
		})
	}
}

func TestSafeNormalize(t *testing.T) {
	_, ok := SafeNormalize(mgl32.Vec3{1e-6, 0, 0})
	assert.False(t, ok)
	n, ok := SafeNormalize(mgl32.Vec3{0, 3, 4})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, float64(n.Len()), 1e-6)
}

func TestEulerDegreesYaw(t *testing.T) {
	q := EulerDegrees(mgl32.Vec3{0, 0, 90})
	assert.True(t, NearlyEqualVec3(q.Rotate(AxisX), AxisY, 1e-5))
}

func TestViewDepthAndFrustum(t *testing.T) {
	v := LookAtView(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, AxisY, 90, 1, 1, 100)

	assert.InDelta(t, 10.0, float64(v.ViewDepth(mgl32.Vec3{0, 0, -10})), 1e-4)
	assert.Greater(t, v.ViewDepth(mgl32.Vec3{0, 0, -20}), v.ViewDepth(mgl32.Vec3{0, 0, -5}))

	assert.True(t, v.IntersectsSphere(mgl32.Vec3{0, 0, -10}, 1))
	assert.False(t, v.IntersectsSphere(mgl32.Vec3{0, 0, 10}, 1))
	assert.True(t, NearlyEqualVec3(v.CameraForward(), mgl32.Vec3{0, 0, -1}, 1e-5))
	assert.True(t, NearlyEqualVec3(v.ViewOrigin, mgl32.Vec3{}, 1e-5))
}

func TestGizmoLines(t *testing.T) {
	assert.Len(t, Gizmo{Type: GizmoLine}.Lines(), 1)
	assert.Len(t, Gizmo{Type: GizmoCross, Size: 1}.Lines(), 3)
	assert.Len(t, Gizmo{Type: GizmoStar, Size: 1}.Lines(), 7)
}
