package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	smallNumber = 1e-8
	kindaSmall  = 1e-4
)

var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// CubicInterp evaluates the cubic Hermite curve through (p0,t0) and (p1,t1) at a in [0,1].
func CubicInterp(p0, t0, p1, t1 mgl32.Vec3, a float32) mgl32.Vec3 {
	a2 := a * a
	a3 := a2 * a
	h00 := 2*a3 - 3*a2 + 1
	h10 := a3 - 2*a2 + a
	h01 := -2*a3 + 3*a2
	h11 := a3 - a2
	return p0.Mul(h00).Add(t0.Mul(h10)).Add(p1.Mul(h01)).Add(t1.Mul(h11))
}

// SafeNormalize returns the unit vector of v, or false when v is too short to normalize.
func SafeNormalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	l2 := v.LenSqr()
	if l2 < smallNumber {
		return mgl32.Vec3{}, false
	}
	return v.Mul(1 / math32.Sqrt(l2)), true
}

// FindBetween returns the shortest rotation taking direction from onto direction to.
// Opposite directions rotate by pi about an axis perpendicular to from, chosen against
// +X first and +Y when from is parallel to X.
func FindBetween(from, to mgl32.Vec3) mgl32.Quat {
	a, okA := SafeNormalize(from)
	b, okB := SafeNormalize(to)
	if !okA || !okB {
		return mgl32.QuatIdent()
	}
	d := a.Dot(b)
	if d >= 1-kindaSmall*kindaSmall {
		return mgl32.QuatIdent()
	}
	if d <= -1+kindaSmall*kindaSmall {
		axis, ok := SafeNormalize(AxisX.Cross(a))
		if !ok {
			axis, _ = SafeNormalize(AxisY.Cross(a))
		}
		return mgl32.QuatRotate(math32.Pi, axis)
	}
	q := mgl32.Quat{W: 1 + d, V: a.Cross(b)}
	return q.Normalize()
}

// AxisAngle builds a rotation of angle radians about axis.
func AxisAngle(axis mgl32.Vec3, angle float32) mgl32.Quat {
	n, ok := SafeNormalize(axis)
	if !ok {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(angle, n)
}

// EulerDegrees converts (roll about X, pitch about Y, yaw about Z) in degrees to a rotation
// applying roll first and yaw last.
func EulerDegrees(e mgl32.Vec3) mgl32.Quat {
	roll := mgl32.DegToRad(e.X())
	pitch := mgl32.DegToRad(e.Y())
	yaw := mgl32.DegToRad(e.Z())
	return mgl32.QuatRotate(yaw, AxisZ).Mul(mgl32.QuatRotate(pitch, AxisY)).Mul(mgl32.QuatRotate(roll, AxisX))
}

func TransformPosition(m mgl32.Mat4, v mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(v.Vec4(1)).Vec3()
}

func TransformVector(m mgl32.Mat4, v mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}

func Lerp(a, b, t float32) float32 { return a + (b-a)*t }

func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func LerpVec4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

// NearlyEqualVec3 compares component-wise within tol.
func NearlyEqualVec3(a, b mgl32.Vec3, tol float32) bool {
	return math32.Abs(a.X()-b.X()) <= tol && math32.Abs(a.Y()-b.Y()) <= tol && math32.Abs(a.Z()-b.Z()) <= tol
}

// RotationAbout returns the rotation about axis taking from onto to. Both vectors are
// expected to be perpendicular to axis; opposite vectors turn by pi.
func RotationAbout(axis, from, to mgl32.Vec3) mgl32.Quat {
	angle := math32.Atan2(axis.Dot(from.Cross(to)), from.Dot(to))
	return AxisAngle(axis, angle)
}
