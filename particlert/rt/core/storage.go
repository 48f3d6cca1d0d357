package core

import (
	"fmt"
	"math"
)

// MaxIndexableParticles is the largest capacity a 16-bit index permutation can address.
const MaxIndexableParticles = math.MaxUint16 + 1

// ParticleStorage is one emitter's flat particle buffer.
// Indices maps active slot -> record index; the first Active entries are alive.
type ParticleStorage struct {
	Data     []byte
	Indices  []uint16
	Stride   int
	Capacity int
	Active   int
}

// NewParticleStorage allocates capacity records of stride bytes.
func NewParticleStorage(stride, capacity int) (*ParticleStorage, error) {
	if stride < BaseParticleSize {
		return nil, fmt.Errorf("stride %d below record head %d: %w", stride, BaseParticleSize, ErrStrideExceeded)
	}
	if capacity < 0 || capacity > MaxIndexableParticles {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrCapacityExceeded)
	}
	if capacity > 0 && stride > math.MaxInt32/capacity {
		return nil, fmt.Errorf("stride %d x capacity %d overflows: %w", stride, capacity, ErrCapacityExceeded)
	}
	s := &ParticleStorage{
		Data:     make([]byte, stride*capacity),
		Indices:  make([]uint16, capacity),
		Stride:   stride,
		Capacity: capacity,
	}
	for i := range s.Indices {
		s.Indices[i] = uint16(i)
	}
	return s, nil
}

// RecordAt returns the record with the given record index.
func (s *ParticleStorage) RecordAt(index int) []byte {
	off := index * s.Stride
	return s.Data[off : off+s.Stride : off+s.Stride]
}

// Record returns the record bound to active slot i.
func (s *ParticleStorage) Record(slot int) []byte {
	return s.RecordAt(int(s.Indices[slot]))
}

// Spawn claims the next free slot and returns its record index and zeroed record.
func (s *ParticleStorage) Spawn() (int, []byte, bool) {
	if s.Active >= s.Capacity {
		return -1, nil, false
	}
	index := int(s.Indices[s.Active])
	s.Active++
	rec := s.RecordAt(index)
	clear(rec)
	return index, rec, true
}

// Kill frees active slot i by swapping it with the last active slot.
func (s *ParticleStorage) Kill(slot int) {
	if slot < 0 || slot >= s.Active {
		return
	}
	last := s.Active - 1
	s.Indices[slot], s.Indices[last] = s.Indices[last], s.Indices[slot]
	s.Active--
}

// ValidateIndices checks the active prefix for out-of-range and duplicate indices.
func (s *ParticleStorage) ValidateIndices() error {
	return validateIndices(s.Indices, s.Active, s.Capacity)
}

func validateIndices(indices []uint16, active, capacity int) error {
	if active > len(indices) || active > capacity {
		return fmt.Errorf("active %d capacity %d: %w", active, capacity, ErrCapacityExceeded)
	}
	seen := make(map[uint16]struct{}, active)
	for i := 0; i < active; i++ {
		idx := indices[i]
		if int(idx) >= capacity {
			return fmt.Errorf("slot %d index %d capacity %d: %w", i, idx, capacity, ErrCapacityExceeded)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("slot %d index %d: %w", i, idx, ErrDuplicateIndex)
		}
		seen[idx] = struct{}{}
	}
	return nil
}
