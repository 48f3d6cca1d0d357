package emitter

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// ParticleOrder maps output quad N to an active slot.
type ParticleOrder struct {
	Slot int
	Key  float32
}

// BuildSortOrder orders the active particles for drawing. Depth and distance modes put the
// farthest particle first. The sort is stable so equal keys keep their active order.
func BuildSortOrder(dst []ParticleOrder, sb *core.SourceBase, mode core.SortMode, view *core.SceneView, toWorld mgl32.Mat4) []ParticleOrder {
	n := sb.ActiveParticleCount
	dst = slices.Grow(dst[:0], n)
	for i := 0; i < n; i++ {
		rec := sb.Record(i)
		var key float32
		switch mode {
		case core.SortViewProjDepth:
			key = view.ViewDepth(core.TransformPosition(toWorld, core.ParticleLocation(rec)))
		case core.SortDistanceToView:
			key = core.TransformPosition(toWorld, core.ParticleLocation(rec)).Sub(view.ViewOrigin).LenSqr()
		case core.SortAgeOldestFirst, core.SortAgeNewestFirst:
			key = core.ParticleRelativeTime(rec)
		}
		dst = append(dst, ParticleOrder{Slot: i, Key: key})
	}

	switch mode {
	case core.SortViewProjDepth, core.SortDistanceToView, core.SortAgeOldestFirst:
		slices.SortStableFunc(dst, func(a, b ParticleOrder) int { return cmp.Compare(b.Key, a.Key) })
	case core.SortAgeNewestFirst:
		slices.SortStableFunc(dst, func(a, b ParticleOrder) int { return cmp.Compare(a.Key, b.Key) })
	}
	return dst
}

// needsSort reports whether draw order matters for mat under mode.
func needsSort(mat *core.Material, mode core.SortMode, view *core.SceneView) bool {
	if mode == core.SortNone || !mat.NeedsSorting() {
		return false
	}
	if view == nil && (mode == core.SortViewProjDepth || mode == core.SortDistanceToView) {
		return false
	}
	return true
}
