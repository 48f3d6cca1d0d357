package core

import "errors"

var (
	// ErrCapacityExceeded reports an active count above the configured capacity.
	ErrCapacityExceeded = errors.New("particle capacity exceeded")
	// ErrStrideExceeded reports a particle stride outside the allowed range.
	ErrStrideExceeded = errors.New("particle stride out of range")
	// ErrInvalidPayloadOffset reports a payload slot that does not fit inside the stride.
	ErrInvalidPayloadOffset = errors.New("payload offset outside particle record")
	// ErrDuplicateIndex reports the same record index twice in the active prefix.
	ErrDuplicateIndex = errors.New("duplicate particle index in active set")
	// ErrMalformedTrail reports a trail chain that never reaches an end marker.
	ErrMalformedTrail = errors.New("malformed trail chain")
	// ErrIndexRangeExceeded reports a vertex count the index stream cannot address.
	ErrIndexRangeExceeded = errors.New("vertex count exceeds index range")
	// ErrBufferTooSmall reports a caller-supplied vertex or index buffer that cannot hold the output.
	ErrBufferTooSmall = errors.New("output buffer too small")
	// ErrProxyReleased reports use of a scene proxy after its release command ran.
	ErrProxyReleased = errors.New("scene proxy released")
	// ErrPoolExhausted reports an instance buffer request with no free buffer left.
	ErrPoolExhausted = errors.New("instance buffer pool exhausted")
)
