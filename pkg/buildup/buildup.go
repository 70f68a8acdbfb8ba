// Package buildup implements the per-session reassembly state machine
// that accumulates a multi-frame UAVCAN transfer's payload, enforcing
// the toggle-bit discipline described in UAVCAN/CAN v1.
package buildup

import (
	"errors"
	"fmt"

	"github.com/fleetwire/uavcan"
)

// Sentinel errors a Buildup can fail with, besides
// uavcan.ErrOutOfMemory from the allocator. All three are terminal:
// once Add returns one, the caller must destroy the session — a
// Buildup is never reused after an error.
var (
	ErrInvalidStart  = errors.New("buildup: first frame of transfer did not have start bit set")
	ErrInvalidToggle = errors.New("buildup: toggle bit did not match expected value")
)

// Error wraps one of the sentinel errors above (or
// uavcan.ErrOutOfMemory) with the TransferId of
// the session that failed, for logging.
type Error struct {
	TransferId uavcan.TransferId
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("buildup: transfer %d: %v", e.TransferId, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Allocator grows a payload buffer by appending add to buf, reporting
// failure instead of panicking. Production code uses DefaultAllocator
// (which never fails short of the Go runtime itself running out of
// memory); tests inject a bounded one to exercise the OutOfMemory
// path deterministically.
type Allocator interface {
	Extend(buf []byte, add []byte) ([]byte, error)
}

// DefaultAllocator extends buffers with append and never fails.
type DefaultAllocator struct{}

func (DefaultAllocator) Extend(buf []byte, add []byte) ([]byte, error) {
	return append(buf, add...), nil
}

// Buildup accumulates the payload of one in-flight multi-frame
// transfer. It is created on the first frame of a transfer and
// discarded on completion or error; the caller (Receiver) owns its
// lifecycle.
type Buildup struct {
	transferId     uavcan.TransferId
	expectedToggle bool
	framesSeen     uint16
	bytes          []byte
	alloc          Allocator
}

// New creates a Buildup for the given TransferId. The first toggle
// bit UAVCAN v1 expects is always true.
func New(tid uavcan.TransferId, alloc Allocator) *Buildup {
	if alloc == nil {
		alloc = DefaultAllocator{}
	}
	return &Buildup{
		transferId:     tid,
		expectedToggle: true,
		alloc:          alloc,
	}
}

// TransferId returns the TransferId this Buildup accepts frames for.
func (b *Buildup) TransferId() uavcan.TransferId {
	return b.transferId
}

// FramesSeen returns how many frames have been folded in so far.
func (b *Buildup) FramesSeen() uint16 {
	return b.framesSeen
}

// Len returns the number of payload bytes accumulated so far
// (excluding tail bytes).
func (b *Buildup) Len() int {
	return len(b.bytes)
}

// Add folds one frame's payload (with the tail byte already stripped
// and passed separately as tail) into the reassembly buffer. It returns (nil, nil) while the
// transfer is still in progress, (buf, nil) with the complete
// reassembled payload when tail.End is set, or a non-nil error if the
// frame violates the toggle/start discipline or the allocator failed.
//
// The caller is responsible for verifying tail.TransferId equals
// b.TransferId() before calling Add; Buildup itself only tracks
// start/toggle/end and the byte count.
func (b *Buildup) Add(tail uavcan.TailByte, payload []byte) ([]byte, error) {
	if b.framesSeen == 0 && !tail.Start {
		return nil, &Error{TransferId: b.transferId, Err: ErrInvalidStart}
	}
	if tail.Toggle != b.expectedToggle {
		return nil, &Error{TransferId: b.transferId, Err: ErrInvalidToggle}
	}
	b.expectedToggle = !b.expectedToggle

	extended, err := b.alloc.Extend(b.bytes, payload)
	if err != nil {
		return nil, &Error{TransferId: b.transferId, Err: uavcan.ErrOutOfMemory}
	}
	b.bytes = extended
	b.framesSeen++

	if tail.End {
		if b.bytes == nil {
			// A zero-length transfer is complete too: report it with a
			// non-nil empty buffer so it is not mistaken for "in progress".
			b.bytes = []byte{}
		}
		return b.bytes, nil
	}
	return nil, nil
}
