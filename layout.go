package particles

import "github.com/gekko3d/particles/particlert/rt/core"

// RecordLayout hands out payload offsets behind the record head. An emitter template
// reserves its module payloads once, then sizes its storage with Stride.
type RecordLayout struct {
	stride int
}

func NewRecordLayout() *RecordLayout {
	return &RecordLayout{stride: core.BaseParticleSize}
}

// Stride is the record size covering every payload reserved so far.
func (l *RecordLayout) Stride() int { return l.stride }

func (l *RecordLayout) reserve(size int) int {
	off := l.stride
	l.stride += size
	return off
}

// AddSlot reserves one T.
func AddSlot[T any](l *RecordLayout) core.PayloadSlot[T] {
	s := core.SlotAt[T](l.stride)
	l.reserve(s.Size())
	return s
}

// AddArraySlot reserves n consecutive Ts.
func AddArraySlot[T any](l *RecordLayout, n int) core.PayloadArraySlot[T] {
	s := core.ArraySlotAt[T](l.stride, n)
	if s.Valid() {
		l.reserve(core.SlotAt[T](0).Size() * n)
	}
	return s
}
