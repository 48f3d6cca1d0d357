package core

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// EmitterKind is the closed set of emitter variants.
type EmitterKind int

const (
	EmitterSprite EmitterKind = iota
	EmitterSubUV
	EmitterMesh
	EmitterBeam
	EmitterTrail
)

func (k EmitterKind) String() string {
	switch k {
	case EmitterSprite:
		return "Sprite"
	case EmitterSubUV:
		return "SubUV"
	case EmitterMesh:
		return "Mesh"
	case EmitterBeam:
		return "Beam"
	case EmitterTrail:
		return "Trail"
	}
	return fmt.Sprintf("EmitterKind(%d)", int(k))
}

type SortMode int

const (
	SortNone SortMode = iota
	// SortViewProjDepth orders by clip-space depth, farthest first.
	SortViewProjDepth
	// SortDistanceToView orders by squared distance to the view origin, farthest first.
	SortDistanceToView
	SortAgeOldestFirst
	SortAgeNewestFirst
)

type ScreenAlignment int

const (
	AlignSquare ScreenAlignment = iota
	AlignRectangle
	AlignVelocity
	// AlignTypeSpecific hands alignment to the emitter kind (mesh camera facing).
	AlignTypeSpecific
)

// AxisLock constrains sprite facing to an axis, or rotation around it.
type AxisLock int

const (
	AxisLockNone AxisLock = iota
	AxisLockX
	AxisLockY
	AxisLockZ
	AxisLockNegX
	AxisLockNegY
	AxisLockNegZ
	AxisLockRotateX
	AxisLockRotateY
	AxisLockRotateZ
)

// Axis returns the locked axis, false for AxisLockNone.
func (a AxisLock) Axis() (mgl32.Vec3, bool) {
	switch a {
	case AxisLockX, AxisLockRotateX:
		return AxisX, true
	case AxisLockY, AxisLockRotateY:
		return AxisY, true
	case AxisLockZ, AxisLockRotateZ:
		return AxisZ, true
	case AxisLockNegX:
		return AxisX.Mul(-1), true
	case AxisLockNegY:
		return AxisY.Mul(-1), true
	case AxisLockNegZ:
		return AxisZ.Mul(-1), true
	}
	return mgl32.Vec3{}, false
}

func (a AxisLock) IsRotate() bool {
	return a == AxisLockRotateX || a == AxisLockRotateY || a == AxisLockRotateZ
}

// RenderMode selects production quads or a debug stand-in per particle.
type RenderMode int

const (
	RenderNormal RenderMode = iota
	RenderPoint
	RenderCross
	RenderNone
)

type SubUVInterpolation int

const (
	SubUVNone SubUVInterpolation = iota
	SubUVLinear
	SubUVLinearBlend
	SubUVRandom
	SubUVRandomBlend
)

// Blends reports whether the next frame is blended in rather than truncated away.
func (m SubUVInterpolation) Blends() bool {
	return m == SubUVLinearBlend || m == SubUVRandomBlend
}

// MeshAlignment is how mesh particles orient when the emitter uses AlignTypeSpecific.
type MeshAlignment int

const (
	MeshFaceCamera MeshAlignment = iota
	MeshFaceCameraLockedAxis
	MeshFaceCameraSpin
	MeshFaceCameraRoll
)

type TaperMethod int

const (
	TaperNone TaperMethod = iota
	// TaperFull tapers over the whole source to target span.
	TaperFull
	// TaperPartial tapers over the part of the span the beam has travelled.
	TaperPartial
)

// Source is the per-frame immutable snapshot of one emitter.
type Source interface {
	Kind() EmitterKind
	Base() *SourceBase
	SlotValidator
}

// SourceBase is shared by every emitter kind. After Capture the buffers are owned by the
// snapshot and never written again.
type SourceBase struct {
	ActiveParticleCount int
	ParticleStride      int
	ParticleData        []byte
	ParticleIndices     []uint16

	Scale    mgl32.Vec3
	SortMode SortMode
	Material *Material
}

func (b *SourceBase) Base() *SourceBase { return b }

// RecordAt returns the record with the given record index.
func (b *SourceBase) RecordAt(index int) []byte {
	off := index * b.ParticleStride
	return b.ParticleData[off : off+b.ParticleStride : off+b.ParticleStride]
}

// Record returns the record bound to active slot i.
func (b *SourceBase) Record(slot int) []byte {
	return b.RecordAt(int(b.ParticleIndices[slot]))
}

func (b *SourceBase) Particle(slot int) Particle { return ReadParticle(b.Record(slot)) }

type SpriteSource struct {
	SourceBase
	ScreenAlignment ScreenAlignment
	UseLocalSpace   bool
	LockAxis        AxisLock
	// MaxDrawCount limits drawn particles; negative means unlimited.
	MaxDrawCount int
	RenderMode   RenderMode

	Orbit            PayloadSlot[OrbitPayload]
	DynamicParameter PayloadSlot[DynamicParameterPayload]
}

// NewSpriteSource returns a sprite snapshot with unit scale and no draw limit.
func NewSpriteSource(mat *Material) *SpriteSource {
	return &SpriteSource{
		SourceBase:   SourceBase{Scale: mgl32.Vec3{1, 1, 1}, Material: mat},
		MaxDrawCount: -1,
	}
}

func (s *SpriteSource) Kind() EmitterKind { return EmitterSprite }

func (s *SpriteSource) ValidateSlots(stride int) error {
	if err := s.Orbit.Validate("orbit", stride); err != nil {
		return err
	}
	return s.DynamicParameter.Validate("dynamic parameter", stride)
}

type SubUVSource struct {
	SpriteSource
	Interpolation       SubUVInterpolation
	SubImagesHorizontal int
	SubImagesVertical   int
	// DirectUV reads UVOffset/UVSize from the payload instead of a frame index.
	DirectUV bool

	SubUV PayloadSlot[SubUVPayload]
}

func NewSubUVSource(mat *Material, horizontal, vertical int) *SubUVSource {
	return &SubUVSource{
		SpriteSource:        *NewSpriteSource(mat),
		Interpolation:       SubUVLinear,
		SubImagesHorizontal: horizontal,
		SubImagesVertical:   vertical,
	}
}

func (s *SubUVSource) Kind() EmitterKind { return EmitterSubUV }

func (s *SubUVSource) ValidateSlots(stride int) error {
	if err := s.SpriteSource.ValidateSlots(stride); err != nil {
		return err
	}
	return s.SubUV.Validate("sub-uv", stride)
}

type MeshSource struct {
	SpriteSource
	Mesh         *StaticMesh
	Alignment    MeshAlignment
	LockedAxis   mgl32.Vec3
	MeshRotation PayloadSlot[MeshRotationPayload]
	// ModuleMaterials override section materials by section index; nil entries fall through.
	ModuleMaterials []*Material
}

func NewMeshSource(mesh *StaticMesh) *MeshSource {
	return &MeshSource{
		SpriteSource: *NewSpriteSource(nil),
		Mesh:         mesh,
		LockedAxis:   AxisZ,
	}
}

func (s *MeshSource) Kind() EmitterKind { return EmitterMesh }

func (s *MeshSource) ValidateSlots(stride int) error {
	if err := s.SpriteSource.ValidateSlots(stride); err != nil {
		return err
	}
	return s.MeshRotation.Validate("mesh rotation", stride)
}

type BeamSource struct {
	SpriteSource

	Beam               PayloadSlot[BeamPayload]
	InterpolatedPoints PayloadArraySlot[mgl32.Vec3]
	NoiseRate          PayloadSlot[float32]
	NoiseDeltaTime     PayloadSlot[float32]
	TargetNoisePoints  PayloadArraySlot[mgl32.Vec3]
	NextNoisePoints    PayloadArraySlot[mgl32.Vec3]
	TaperValues        PayloadArraySlot[float32]
	NoiseDistanceScale PayloadSlot[float32]

	Sheets              int
	InterpolationPoints int
	// UpVectorStepSize recomputes the camera-facing up every N points; 0 computes it once.
	UpVectorStepSize    int
	TextureTile         int
	TextureTileDistance float32

	TaperMethod TaperMethod
	TaperFactor float32
	TaperScale  float32

	NoiseEnabled         bool
	SmoothNoise          bool
	TargetNoise          bool
	NoiseTessellation    int
	NoiseTangentStrength float32
	NoiseTension         float32
	NoiseSpeed           float32
	NoiseLockRadius      float32
	NoiseRangeScale      float32

	RenderGeometry     bool
	RenderDirectLine   bool
	RenderLines        bool
	RenderTessellation bool
}

func NewBeamSource(mat *Material) *BeamSource {
	return &BeamSource{
		SpriteSource:         *NewSpriteSource(mat),
		Sheets:               1,
		UpVectorStepSize:     1,
		NoiseTessellation:    1,
		NoiseTangentStrength: 1,
		NoiseRangeScale:      1,
		TaperFactor:          1,
		TaperScale:           1,
		RenderGeometry:       true,
	}
}

func (s *BeamSource) Kind() EmitterKind { return EmitterBeam }

func (s *BeamSource) ValidateSlots(stride int) error {
	checks := []error{
		s.SpriteSource.ValidateSlots(stride),
		s.Beam.Validate("beam", stride),
		s.InterpolatedPoints.Validate("beam interpolated points", stride),
		s.NoiseRate.Validate("beam noise rate", stride),
		s.NoiseDeltaTime.Validate("beam noise delta time", stride),
		s.TargetNoisePoints.Validate("beam target noise points", stride),
		s.NextNoisePoints.Validate("beam next noise points", stride),
		s.TaperValues.Validate("beam taper values", stride),
		s.NoiseDistanceScale.Validate("beam noise distance scale", stride),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if !s.Beam.Valid() {
		return fmt.Errorf("beam payload missing: %w", ErrInvalidPayloadOffset)
	}
	return nil
}

type TrailSource struct {
	SpriteSource
	Trail PayloadSlot[TrailPayload]

	Sheets             int
	TessellationFactor int
	TextureTile        int

	RenderGeometry     bool
	RenderSpawnPoints  bool
	RenderTangents     bool
	RenderTessellation bool
}

func NewTrailSource(mat *Material) *TrailSource {
	return &TrailSource{
		SpriteSource:       *NewSpriteSource(mat),
		Sheets:             1,
		TessellationFactor: 1,
		RenderGeometry:     true,
	}
}

func (s *TrailSource) Kind() EmitterKind { return EmitterTrail }

func (s *TrailSource) ValidateSlots(stride int) error {
	if err := s.SpriteSource.ValidateSlots(stride); err != nil {
		return err
	}
	if !s.Trail.Valid() {
		return fmt.Errorf("trail payload missing: %w", ErrInvalidPayloadOffset)
	}
	return s.Trail.Validate("trail", stride)
}

// Capture deep-copies storage into src so later simulation ticks cannot touch what the
// render thread reads. It must run after the simulation update for the frame.
// Violations of limits follow limits.Policy, or panic when limits.Strict is set.
func Capture(storage *ParticleStorage, src Source, limits Limits, log Logger) error {
	log = LoggerOr(log)
	b := src.Base()
	kind := src.Kind()
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}

	b.ParticleData = nil
	b.ParticleIndices = nil
	b.ActiveParticleCount = 0
	if storage == nil {
		return nil
	}
	b.ParticleStride = storage.Stride

	if storage.Stride < BaseParticleSize || storage.Stride > limits.strideCap(kind) {
		err := fmt.Errorf("%s emitter stride %d limit %d: %w", kind, storage.Stride, limits.strideCap(kind), ErrStrideExceeded)
		if limits.Strict {
			panic(err)
		}
		return err
	}
	if storage.Capacity > 0 && len(storage.Data) < storage.Capacity*storage.Stride {
		return fmt.Errorf("%s emitter data %d bytes for %d records: %w", kind, len(storage.Data), storage.Capacity, ErrBufferTooSmall)
	}
	if err := storage.ValidateIndices(); err != nil {
		if limits.Strict {
			panic(err)
		}
		return err
	}
	if err := src.ValidateSlots(storage.Stride); err != nil {
		return fmt.Errorf("%s emitter: %w", kind, err)
	}

	records := storage.Capacity
	indices := storage.Indices[:storage.Active]
	if rc := recordCap(kind); rc > 0 && records > rc {
		err := fmt.Errorf("%s emitter %d records, links address %d: %w", kind, records, rc, ErrCapacityExceeded)
		if limits.Strict {
			panic(err)
		}
		if limits.Policy == CapacityReject {
			return err
		}
		log.Warnf("clamping %s emitter from %d to %d records", kind, records, rc)
		records = rc
		kept := make([]uint16, 0, len(indices))
		for _, idx := range indices {
			if int(idx) < rc {
				kept = append(kept, idx)
			}
		}
		indices = kept
	}

	active := len(indices)
	if limit := limits.particleCap(kind); active > limit {
		err := fmt.Errorf("%s emitter active %d limit %d: %w", kind, active, limit, ErrCapacityExceeded)
		if limits.Strict {
			panic(err)
		}
		if limits.Policy == CapacityReject {
			return err
		}
		log.Warnf("clamping %s emitter from %d to %d particles", kind, active, limit)
		active = limit
	}

	b.ParticleData = bytes.Clone(storage.Data[:records*storage.Stride])
	b.ParticleIndices = slices.Clone(indices[:active])
	b.ActiveParticleCount = active
	return nil
}
