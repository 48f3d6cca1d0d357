package core

// CapacityPolicy decides what Capture does with an over-capacity emitter.
type CapacityPolicy int

const (
	// CapacityReject refuses the snapshot and returns ErrCapacityExceeded.
	CapacityReject CapacityPolicy = iota
	// CapacityClamp truncates the active count to the limit and logs a warning.
	CapacityClamp
)

func (p CapacityPolicy) String() string {
	if p == CapacityClamp {
		return "clamp"
	}
	return "reject"
}

// Limits bounds what one Source snapshot may hold.
type Limits struct {
	MaxParticles  int // per emitter, all kinds
	MaxStride     int // bytes per record for non-beam kinds
	MaxBeams      int // active beams must stay strictly below this
	MaxBeamStride int // bytes per beam record
	Policy        CapacityPolicy
	// Strict panics on capacity violations instead of applying Policy.
	Strict bool
}

// DefaultLimits mirrors the 16-bit indexed common path.
func DefaultLimits() Limits {
	return Limits{
		MaxParticles:  16 * 1024,
		MaxStride:     2 * 1024,
		MaxBeams:      2048,
		MaxBeamStride: 10 * 1024,
		Policy:        CapacityReject,
	}
}

// particleCap is the largest active count allowed for kind.
func (l Limits) particleCap(kind EmitterKind) int {
	switch kind {
	case EmitterBeam:
		return l.MaxBeams - 1
	case EmitterTrail:
		return min(l.MaxParticles, TrailNullNext)
	}
	return l.MaxParticles
}

// recordCap is the number of records a snapshot of kind can address, 0 for no bound.
// Trail links pack record indices into 14 bits with the top value reserved as null.
func recordCap(kind EmitterKind) int {
	if kind == EmitterTrail {
		return TrailNullNext
	}
	return 0
}

func (l Limits) strideCap(kind EmitterKind) int {
	if kind == EmitterBeam {
		return l.MaxBeamStride
	}
	return l.MaxStride
}

// BufferingStrategy is how a scene proxy holds frame data across updates.
type BufferingStrategy int

const (
	// BufferSingle replaces the current data and releases the old container right away.
	BufferSingle BufferingStrategy = iota
	// BufferDouble keeps the previous container alive until the next swap.
	BufferDouble
)

func (s BufferingStrategy) String() string {
	if s == BufferDouble {
		return "double"
	}
	return "single"
}
