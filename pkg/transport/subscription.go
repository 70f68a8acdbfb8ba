// Package transport implements the receive-side reassembly engine
// (subscriptions, sessions, the Receiver) and the transmit-side
// fragmenter (the Transmitter) of UAVCAN/CAN v1.
package transport

import (
	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/buildup"
)

// sessionSlots is the number of source NodeIds a Subscription can hold
// a Session for simultaneously: the whole NodeId space.
const sessionSlots = int(uavcan.MaxNodeId) + 1

// Session is the ephemeral reassembly state for one in-flight inbound
// transfer from one source, on one Subscription.
type Session struct {
	transferTimestamp uavcan.Instant
	buildup           *buildup.Buildup
}

// Subscription is a receiver's registered interest in one (kind,
// port) pair: the size and timeout budget new sessions are held to,
// and the fixed table of per-source sessions.
type Subscription struct {
	Port           uavcan.PortId
	Kind           uavcan.Kind
	PayloadSizeMax int
	Timeout        uavcan.Duration

	sessions [sessionSlots]*Session
}

// NewSubscription creates an empty Subscription. payloadSizeMax must
// include the 2 trailing CRC bytes for any port that can carry
// multi-frame transfers.
func NewSubscription(kind uavcan.Kind, port uavcan.PortId, payloadSizeMax int, timeout uavcan.Duration) *Subscription {
	return &Subscription{Kind: kind, Port: port, PayloadSizeMax: payloadSizeMax, Timeout: timeout}
}

func (s *Subscription) session(source uavcan.NodeId) *Session {
	return s.sessions[source]
}

func (s *Subscription) setSession(source uavcan.NodeId, sess *Session) {
	s.sessions[source] = sess
}

func (s *Subscription) destroySession(source uavcan.NodeId) {
	s.sessions[source] = nil
}

// expire destroys every session whose first-frame timestamp is older
// than now - s.Timeout.
func (s *Subscription) expire(now uavcan.Instant) {
	for i, sess := range s.sessions {
		if sess == nil {
			continue
		}
		if now.Sub(sess.transferTimestamp) > s.Timeout {
			s.sessions[i] = nil
		}
	}
}
