package node

import (
	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/transport"
)

// pseudoIdSeed is the starting accumulator for AnonymousPublisher's
// source-id derivation.
const pseudoIdSeed uavcan.NodeId = 37

// PublishToken identifies a registered publication; it is returned by
// Node.StartPublishingTopic and consumed by Node.PublishToTopic.
type PublishToken struct {
	subject uavcan.SubjectId
}

// Publisher emits Message transfers on one subject, advancing its own
// TransferId by one (mod 32) on every call to Publish.
type Publisher struct {
	source         uavcan.NodeId
	subject        uavcan.SubjectId
	priority       uavcan.Priority
	timeout        uavcan.Duration
	nextTransferId uavcan.TransferId
	tx             *transport.Transmitter
}

func newPublisher(source uavcan.NodeId, subject uavcan.SubjectId, priority uavcan.Priority, timeout uavcan.Duration, tx *transport.Transmitter) *Publisher {
	return &Publisher{source: source, subject: subject, priority: priority, timeout: timeout, tx: tx}
}

// Publish serializes and transmits one Message transfer, then advances
// the TransferId sequence.
func (p *Publisher) Publish(now uavcan.Instant, payload []byte) error {
	header := uavcan.TransferHeader{
		Source:   p.source,
		Priority: p.priority,
		Kind:     uavcan.KindMessage,
		Subject:  p.subject,
	}
	if err := p.tx.Push(now, header, p.nextTransferId, payload); err != nil {
		return err
	}
	p.nextTransferId = p.nextTransferId.Next()
	return nil
}

// pseudoId derives the deterministic, payload-dependent source NodeId
// an AnonymousPublisher emits from: XOR-fold every payload byte into
// the seed, then walk downward (wrapping at 0 back to MaxNodeId) until
// landing on a NodeId that is not diagnostic-reserved.
func pseudoId(payload []byte) uavcan.NodeId {
	acc := pseudoIdSeed
	for _, b := range payload {
		acc ^= uavcan.NodeId(b)
	}
	acc &= uavcan.MaxNodeId
	for uavcan.IsDiagnosticReserved(acc) {
		if acc == 0 {
			acc = uavcan.MaxNodeId
		} else {
			acc--
		}
	}
	return acc
}

// AnonymousPublisher emits single-frame Message transfers with no
// stable NodeId; its source field is recomputed from the payload on
// every call via pseudoId.
type AnonymousPublisher struct {
	subject  uavcan.SubjectId
	priority uavcan.Priority
	tx       *transport.Transmitter
}

// NewAnonymousPublisher creates an AnonymousPublisher for subject. It
// has no NodeId of its own, so it is constructed directly rather than
// registered with a Node's bounded publisher table.
func NewAnonymousPublisher(subject uavcan.SubjectId, priority uavcan.Priority, tx *transport.Transmitter) *AnonymousPublisher {
	return &AnonymousPublisher{subject: subject, priority: priority, tx: tx}
}

// Publish transmits payload as a single-frame anonymous Message. The
// TransferId of an anonymous transfer is always 0: there is no
// session across calls to correlate it with.
func (p *AnonymousPublisher) Publish(now uavcan.Instant, payload []byte) error {
	if len(payload) > transport.MaxSingleFrameDataBytes {
		return ErrPayloadTooLarge
	}
	header := uavcan.TransferHeader{
		Source:    pseudoId(payload),
		Priority:  p.priority,
		Kind:      uavcan.KindMessage,
		Anonymous: true,
		Subject:   p.subject,
	}
	return p.tx.Push(now, header, 0, payload)
}
