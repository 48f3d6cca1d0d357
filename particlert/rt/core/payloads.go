package core

import "github.com/go-gl/mathgl/mgl32"

// OrbitPayload offsets a particle from its simulated location.
type OrbitPayload struct {
	Offset         mgl32.Vec3
	PreviousOffset mgl32.Vec3
}

// DynamicParameterPayload carries the per-particle material parameter.
type DynamicParameterPayload struct {
	Value [4]float32
}

// SubUVPayload selects a sub-image of an atlas.
// ImageIndex is a fractional frame index into the grid; UVOffset/UVSize are read instead
// when the emitter uses direct UVs.
type SubUVPayload struct {
	ImageIndex float32
	UVOffset   [2]float32
	UVSize     [2]float32
}

// MeshRotationPayload holds Euler rotations in degrees (roll, pitch, yaw).
type MeshRotationPayload struct {
	InitialRotation mgl32.Vec3
	Rotation        mgl32.Vec3
	RotationRate    mgl32.Vec3
}

// Beam lock/noise packing in BeamPayload.LockMaxNumNoisePoints.
const (
	BeamLockedMask     uint32 = 0x80000000
	BeamNoiseMaxMask   uint32 = 0x00fff000
	BeamNoiseMaxShift         = 12
	BeamFrequencyMask  uint32 = 0x00000fff
	BeamFrequencyShift        = 0
)

// BeamPayload is the per-particle beam topology.
type BeamPayload struct {
	SourcePoint    mgl32.Vec3
	SourceTangent  mgl32.Vec3
	SourceStrength float32
	TargetPoint    mgl32.Vec3
	TargetTangent  mgl32.Vec3
	TargetStrength float32

	LockMaxNumNoisePoints uint32
	InterpolationSteps    int32

	// Direction and StepSize walk the straight line between noise points.
	Direction     mgl32.Vec3
	StepSize      float32
	Steps         int32
	TravelRatio   float32
	TriangleCount int32
}

func (b *BeamPayload) Locked() bool { return b.LockMaxNumNoisePoints&BeamLockedMask != 0 }

func (b *BeamPayload) NoiseMax() int {
	return int((b.LockMaxNumNoisePoints & BeamNoiseMaxMask) >> BeamNoiseMaxShift)
}

func (b *BeamPayload) Frequency() int {
	return int((b.LockMaxNumNoisePoints & BeamFrequencyMask) >> BeamFrequencyShift)
}

// PackBeamLock builds LockMaxNumNoisePoints.
func PackBeamLock(locked bool, noiseMax, frequency int) uint32 {
	v := (uint32(noiseMax) << BeamNoiseMaxShift) & BeamNoiseMaxMask
	v |= (uint32(frequency) << BeamFrequencyShift) & BeamFrequencyMask
	if locked {
		v |= BeamLockedMask
	}
	return v
}

// Trail link packing in TrailPayload.Flags: 4 marker bits, 14-bit previous, 14-bit next.
const (
	TrailFlagMask  uint32 = 0xf0000000
	TrailPrevMask  uint32 = 0x0fffc000
	TrailPrevShift        = 14
	TrailNextMask  uint32 = 0x00003fff
	TrailNextShift        = 0
	TrailNullPrev         = int(TrailPrevMask >> TrailPrevShift)
	TrailNullNext         = int(TrailNextMask >> TrailNextShift)

	TrailFlagNone   uint32 = 0x00000000
	TrailFlagStart  uint32 = 0x10000000
	TrailFlagMiddle uint32 = 0x20000000
	TrailFlagEnd    uint32 = 0x40000000
	TrailFlagOnly   uint32 = 0x80000000
)

// TrailPayload links one trail segment to its neighbours.
type TrailPayload struct {
	Flags         uint32
	TriangleCount int32
	Tangent       mgl32.Vec3
	SpawnTime     float32
}

func (t *TrailPayload) Marker() uint32 { return t.Flags & TrailFlagMask }
func (t *TrailPayload) IsStart() bool  { return t.Marker() == TrailFlagStart }
func (t *TrailPayload) IsMiddle() bool { return t.Marker() == TrailFlagMiddle }
func (t *TrailPayload) IsEnd() bool    { return t.Marker() == TrailFlagEnd }
func (t *TrailPayload) IsOnly() bool   { return t.Marker() == TrailFlagOnly }
func (t *TrailPayload) Prev() int      { return int((t.Flags & TrailPrevMask) >> TrailPrevShift) }
func (t *TrailPayload) Next() int      { return int((t.Flags & TrailNextMask) >> TrailNextShift) }

// PackTrailFlags builds TrailPayload.Flags. Use TrailNullPrev/TrailNullNext for missing links.
func PackTrailFlags(marker uint32, prev, next int) uint32 {
	v := marker & TrailFlagMask
	v |= (uint32(prev) << TrailPrevShift) & TrailPrevMask
	v |= (uint32(next) << TrailNextShift) & TrailNextMask
	return v
}
