package uavcan

import "errors"

// Sentinel errors surfaced synchronously from the public API. Inbound
// malformed frames never surface an error to the caller of Accept
// except ErrOutOfMemory: they are counted and dropped, see Receiver.
var (
	// ErrOutOfMemory is returned when a growable allocation (a
	// reassembly buffer) could not be satisfied. Creating a new
	// Session does not go through the allocator and never fails.
	ErrOutOfMemory = errors.New("uavcan: out of memory")

	// ErrCapacity names the condition of a full bounded map
	// (publishers, requesters). No function in this module returns it:
	// package node reports that condition as *node.CapacityError.
	ErrCapacity = errors.New("uavcan: capacity exceeded")

	// ErrDuplicate names the condition of inserting a key that is
	// already present in a bounded map. No function in this module
	// returns it: package node reports it as node.ErrDuplicateKey.
	ErrDuplicate = errors.New("uavcan: duplicate entry")

	// ErrNotFound names the condition of a token or key that refers to
	// an entry that does not exist. No function in this module returns
	// it: package node panics with node.ErrUnknownPublisher /
	// node.ErrUnknownRequester instead.
	ErrNotFound = errors.New("uavcan: entry not found")

	// ErrPayloadTooLarge names the condition of an anonymous publish
	// that would not fit in a single frame. No function in this module
	// returns it: AnonymousPublisher.Publish returns
	// node.ErrPayloadTooLarge.
	ErrPayloadTooLarge = errors.New("uavcan: payload too large")
)

// CanIDParseError reports a reserved-bit violation found while
// parsing a 29-bit CAN identifier. It is internal to the Receiver's
// sanity check: it drives a silent drop plus an error-count increment,
// never a panic or a propagated error from Accept.
type CanIDParseError struct {
	// Bit is the offending reserved bit index (7 or 23).
	Bit  uint
	CanID uint32
}

func (e *CanIDParseError) Error() string {
	switch e.Bit {
	case 23:
		return "uavcan: reserved bit 23 set in CAN identifier"
	case 7:
		return "uavcan: reserved bit 7 set in message CAN identifier"
	default:
		return "uavcan: invalid CAN identifier"
	}
}

// ErrBit23Set and ErrBit7Set classify CanIDParseError without needing
// a type assertion in the common case of a simple equality check in
// tests.
var (
	ErrBit23Set = errors.New("uavcan: reserved bit 23 set in CAN identifier")
	ErrBit7Set  = errors.New("uavcan: reserved bit 7 set in message CAN identifier")
)

func (e *CanIDParseError) Is(target error) bool {
	switch e.Bit {
	case 23:
		return target == ErrBit23Set
	case 7:
		return target == ErrBit7Set
	}
	return false
}
