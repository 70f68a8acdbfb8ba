// Package filter computes the CAN acceptance-filter mask/match pairs
// for UAVCAN/CAN v1 port classes, for programming hardware filter
// banks that cannot evaluate ParseCanID themselves.
package filter

import "github.com/fleetwire/uavcan"

// MaskMatch is one hardware acceptance-filter entry: a frame's 29-bit
// extended identifier is accepted when (id & Mask) == (Match & Mask).
// Bits of Match outside Mask are don't-care.
type MaskMatch struct {
	Mask  uint32
	Match uint32
}

const (
	subjectMask  = 0b0_0010_1001_1111_1111_1111_1000_0000
	subjectBase  = 0b0_0000_0110_0000_0000_0000_0000_0000
	requestMask  = 0b0_0011_1111_1111_1111_1111_1000_0000
	requestBase  = 0b0_0011_0000_0000_0000_0000_0000_0000
	responseBase = 0b0_0010_0000_0000_0000_0000_0000_0000
)

// Subject returns the acceptance filter for every message on the
// given subject, from any source, anonymous or not.
func Subject(subject uavcan.SubjectId) MaskMatch {
	return MaskMatch{Mask: subjectMask, Match: subjectBase | uint32(subject)<<8}
}

// Request returns the acceptance filter for service requests for the
// given service, addressed to client.
func Request(service uavcan.ServiceId, client uavcan.NodeId) MaskMatch {
	return MaskMatch{Mask: requestMask, Match: requestBase | uint32(service)<<14 | uint32(client)<<7}
}

// Response returns the acceptance filter for service responses for
// the given service, addressed to server.
func Response(service uavcan.ServiceId, server uavcan.NodeId) MaskMatch {
	return MaskMatch{Mask: requestMask, Match: responseBase | uint32(service)<<14 | uint32(server)<<7}
}

// Accepts reports whether id passes mm's mask/match test.
func (mm MaskMatch) Accepts(id uavcan.CanID) bool {
	return uint32(id)&mm.Mask == mm.Match&mm.Mask
}
