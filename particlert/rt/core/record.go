package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Base record layout. Every particle record starts with these fields, little endian,
// followed by module payloads located through PayloadSlot offsets.
const (
	offOldLocation        = 0
	offRelativeTime       = 12
	offLocation           = 16
	offOneOverMaxLifetime = 28
	offBaseVelocity       = 32
	offRotation           = 44
	offVelocity           = 48
	offBaseRotationRate   = 60
	offBaseSize           = 64
	offRotationRate       = 76
	offSize               = 80
	offFlags              = 92
	offColor              = 96
	offBaseColor          = 112

	// BaseParticleSize is the byte size of the mandatory record head.
	BaseParticleSize = 128
)

// Particle state flags. The low bits are free for module counters.
const (
	ParticleFlagFreeze            uint32 = 0x04000000
	ParticleFlagIgnoreCollisions  uint32 = 0x08000000
	ParticleFlagFreezeTranslation uint32 = 0x10000000
	ParticleFlagFreezeRotation    uint32 = 0x20000000
	ParticleFlagCollisionOccurred uint32 = 0x40000000
	ParticleFlagCounterMask       uint32 = 0x00ffffff
)

// Particle is the decoded head of a particle record.
type Particle struct {
	OldLocation        mgl32.Vec3
	RelativeTime       float32 // 0 at spawn, 1 at death
	Location           mgl32.Vec3
	OneOverMaxLifetime float32
	BaseVelocity       mgl32.Vec3
	Rotation           float32
	Velocity           mgl32.Vec3
	BaseRotationRate   float32
	BaseSize           mgl32.Vec3
	RotationRate       float32
	Size               mgl32.Vec3
	Flags              uint32
	Color              mgl32.Vec4
	BaseColor          mgl32.Vec4
}

func getF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func getVec3(b []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{getF32(b, off), getF32(b, off+4), getF32(b, off+8)}
}

func putVec3(b []byte, off int, v mgl32.Vec3) {
	putF32(b, off, v[0])
	putF32(b, off+4, v[1])
	putF32(b, off+8, v[2])
}

func getVec4(b []byte, off int) mgl32.Vec4 {
	return mgl32.Vec4{getF32(b, off), getF32(b, off+4), getF32(b, off+8), getF32(b, off+12)}
}

func putVec4(b []byte, off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		putF32(b, off+i*4, v[i])
	}
}

// ReadParticle decodes the record head. rec must be at least BaseParticleSize bytes.
func ReadParticle(rec []byte) Particle {
	_ = rec[BaseParticleSize-1]
	return Particle{
		OldLocation:        getVec3(rec, offOldLocation),
		RelativeTime:       getF32(rec, offRelativeTime),
		Location:           getVec3(rec, offLocation),
		OneOverMaxLifetime: getF32(rec, offOneOverMaxLifetime),
		BaseVelocity:       getVec3(rec, offBaseVelocity),
		Rotation:           getF32(rec, offRotation),
		Velocity:           getVec3(rec, offVelocity),
		BaseRotationRate:   getF32(rec, offBaseRotationRate),
		BaseSize:           getVec3(rec, offBaseSize),
		RotationRate:       getF32(rec, offRotationRate),
		Size:               getVec3(rec, offSize),
		Flags:              binary.LittleEndian.Uint32(rec[offFlags:]),
		Color:              getVec4(rec, offColor),
		BaseColor:          getVec4(rec, offBaseColor),
	}
}

// WriteParticle encodes p into the record head.
func WriteParticle(rec []byte, p *Particle) {
	_ = rec[BaseParticleSize-1]
	putVec3(rec, offOldLocation, p.OldLocation)
	putF32(rec, offRelativeTime, p.RelativeTime)
	putVec3(rec, offLocation, p.Location)
	putF32(rec, offOneOverMaxLifetime, p.OneOverMaxLifetime)
	putVec3(rec, offBaseVelocity, p.BaseVelocity)
	putF32(rec, offRotation, p.Rotation)
	putVec3(rec, offVelocity, p.Velocity)
	putF32(rec, offBaseRotationRate, p.BaseRotationRate)
	putVec3(rec, offBaseSize, p.BaseSize)
	putF32(rec, offRotationRate, p.RotationRate)
	putVec3(rec, offSize, p.Size)
	binary.LittleEndian.PutUint32(rec[offFlags:], p.Flags)
	putVec4(rec, offColor, p.Color)
	putVec4(rec, offBaseColor, p.BaseColor)
}

// ParticleLocation reads only the current position, for sort keys.
func ParticleLocation(rec []byte) mgl32.Vec3 { return getVec3(rec, offLocation) }

// ParticleRelativeTime reads only the relative lifetime fraction.
func ParticleRelativeTime(rec []byte) float32 { return getF32(rec, offRelativeTime) }
