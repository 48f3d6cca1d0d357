package core

import (
	"encoding/binary"
	"fmt"
)

// PayloadSlot locates a fixed-size module payload of type T inside a particle record.
// A slot is resolved once per Source snapshot. The zero value is an absent slot, which is
// what an emitter without the module carries. T must be a fixed-size value accepted by
// encoding/binary.
type PayloadSlot[T any] struct {
	pos int // offset+1
}

// NoSlot returns an absent slot.
func NoSlot[T any]() PayloadSlot[T] { return PayloadSlot[T]{} }

// SlotAt returns a slot reading T at the given byte offset. Negative offsets are absent.
func SlotAt[T any](offset int) PayloadSlot[T] {
	if offset < 0 {
		return PayloadSlot[T]{}
	}
	return PayloadSlot[T]{pos: offset + 1}
}

func (s PayloadSlot[T]) Valid() bool { return s.pos > 0 }

// Offset is the byte offset, or -1 when absent.
func (s PayloadSlot[T]) Offset() int { return s.pos - 1 }

// Size is the encoded size of T in bytes.
func (s PayloadSlot[T]) Size() int {
	var zero T
	return binary.Size(zero)
}

// Get decodes the payload from rec. An absent slot yields the zero value.
func (s PayloadSlot[T]) Get(rec []byte) T {
	var v T
	if s.pos == 0 {
		return v
	}
	if _, err := binary.Decode(rec[s.pos-1:], binary.LittleEndian, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// GetOr decodes the payload, or returns def when the slot is absent.
func (s PayloadSlot[T]) GetOr(rec []byte, def T) T {
	if s.pos == 0 {
		return def
	}
	return s.Get(rec)
}

// Set encodes v into rec. Writing through an absent slot is a no-op.
func (s PayloadSlot[T]) Set(rec []byte, v T) {
	if s.pos == 0 {
		return
	}
	_, _ = binary.Encode(rec[s.pos-1:], binary.LittleEndian, v)
}

// Validate checks that the payload fits entirely inside a record of the given stride.
func (s PayloadSlot[T]) Validate(name string, stride int) error {
	if s.pos == 0 {
		return nil
	}
	return validateRange(name, s.pos-1, s.Size(), stride)
}

// PayloadArraySlot locates Len consecutive values of type T inside a particle record.
// The zero value is absent.
type PayloadArraySlot[T any] struct {
	pos int // offset+1
	n   int
}

func NoArraySlot[T any]() PayloadArraySlot[T] { return PayloadArraySlot[T]{} }

func ArraySlotAt[T any](offset, n int) PayloadArraySlot[T] {
	if offset < 0 || n <= 0 {
		return PayloadArraySlot[T]{}
	}
	return PayloadArraySlot[T]{pos: offset + 1, n: n}
}

func (s PayloadArraySlot[T]) Valid() bool { return s.pos > 0 }
func (s PayloadArraySlot[T]) Offset() int { return s.pos - 1 }

func (s PayloadArraySlot[T]) Len() int {
	if s.pos == 0 {
		return 0
	}
	return s.n
}

func (s PayloadArraySlot[T]) elemSize() int {
	var zero T
	return binary.Size(zero)
}

// At decodes element i. Out-of-range or absent reads yield the zero value.
func (s PayloadArraySlot[T]) At(rec []byte, i int) T {
	var v T
	if !s.Valid() || i < 0 || i >= s.n {
		return v
	}
	off := s.pos - 1 + i*s.elemSize()
	if _, err := binary.Decode(rec[off:], binary.LittleEndian, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

func (s PayloadArraySlot[T]) SetAt(rec []byte, i int, v T) {
	if !s.Valid() || i < 0 || i >= s.n {
		return
	}
	off := s.pos - 1 + i*s.elemSize()
	_, _ = binary.Encode(rec[off:], binary.LittleEndian, v)
}

func (s PayloadArraySlot[T]) Validate(name string, stride int) error {
	if s.pos == 0 {
		return nil
	}
	return validateRange(name, s.pos-1, s.n*s.elemSize(), stride)
}

func validateRange(name string, offset, size, stride int) error {
	if size <= 0 {
		return fmt.Errorf("%s: payload type has no fixed size: %w", name, ErrInvalidPayloadOffset)
	}
	if offset >= stride || offset+size > stride {
		return fmt.Errorf("%s: offset %d size %d stride %d: %w", name, offset, size, stride, ErrInvalidPayloadOffset)
	}
	return nil
}

// SlotValidator is implemented by every Source to check its payload slots.
type SlotValidator interface {
	ValidateSlots(stride int) error
}
