package node

import (
	"log/slog"

	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/buildup"
	"github.com/fleetwire/uavcan/pkg/transport"
)

// Handler is the capability set a Node dispatches completed transfers
// to, one method per transfer kind. A Handler implements all three.
type Handler interface {
	HandleMessage(now uavcan.Instant, header uavcan.TransferHeader, payload []byte)
	HandleRequest(now uavcan.Instant, header uavcan.TransferHeader, payload []byte, token ResponseToken, responder *Responder)
	HandleResponse(now uavcan.Instant, header uavcan.TransferHeader, payload []byte)
}

// Observer is optional instrumentation invoked once per Accept
// outcome. A nil Observer is always safe to call through Node — Node
// checks for nil itself, so pkg/metrics.Counters (or any other
// implementation) never needs a no-op guard of its own.
type Observer interface {
	Observe(kind uavcan.Kind, isError bool)
}

// Node ties a Receiver/Transmitter pair to an application Handler,
// adding the bounded publisher/requester tables of spec section 4.8.
type Node struct {
	self uavcan.NodeId

	clock uavcan.Clock
	rx    *transport.Receiver
	tx    *transport.Transmitter

	handler  Handler
	observer Observer

	publishers *boundedMap[uavcan.SubjectId, *Publisher]
	requesters *boundedMap[uavcan.ServiceId, *Requester]
}

// New creates a Node bound to sink for outbound frames, with bounded
// capacity publisherCapacity/requesterCapacity for StartPublishingTopic
// and StartSendingRequests respectively. alloc and log are forwarded
// to the underlying Receiver (see transport.NewReceiver); either may be nil.
func New(self uavcan.NodeId, clock uavcan.Clock, sink transport.Sink, mtu int, alloc buildup.Allocator, log *slog.Logger, handler Handler, publisherCapacity, requesterCapacity int) *Node {
	return &Node{
		self:       self,
		clock:      clock,
		rx:         transport.NewReceiver(self, clock, alloc, log),
		tx:         transport.NewTransmitter(sink, mtu),
		handler:    handler,
		publishers: newBoundedMap[uavcan.SubjectId, *Publisher](publisherCapacity),
		requesters: newBoundedMap[uavcan.ServiceId, *Requester](requesterCapacity),
	}
}

// SetObserver installs (or clears, with nil) the optional metrics
// observer. It is never required for correct operation.
func (n *Node) SetObserver(o Observer) { n.observer = o }

func (n *Node) observe(kind uavcan.Kind, isError bool) {
	if n.observer != nil {
		n.observer.Observe(kind, isError)
	}
}

// AcceptFrame feeds one inbound frame through the Receiver and, on a
// completed transfer, classifies it by kind and dispatches to the
// Handler. Request transfers additionally synthesize a ResponseToken
// and an ephemeral Responder view.
func (n *Node) AcceptFrame(frame uavcan.Frame) error {
	// Errors are attributed to the frame's kind when its identifier
	// parses, and to KindMessage otherwise.
	errKind := uavcan.KindMessage
	if h, perr := uavcan.ParseCanID(uint32(frame.ID)); perr == nil {
		errKind = h.Kind
	}
	before := n.rx.ErrorCount()
	transfer, err := n.rx.Accept(frame)
	if err != nil {
		n.observe(errKind, true)
		return err
	}
	if transfer == nil {
		if n.rx.ErrorCount() != before {
			n.observe(errKind, true)
		}
		return nil
	}

	n.observe(transfer.Header.Kind, false)

	switch transfer.Header.Kind {
	case uavcan.KindMessage:
		n.handler.HandleMessage(transfer.Timestamp, transfer.Header, transfer.Payload)
	case uavcan.KindRequest:
		token := ResponseToken{
			Service:    transfer.Header.Service,
			Client:     transfer.Header.Source,
			TransferId: transfer.TransferId,
			Priority:   transfer.Header.Priority,
		}
		n.handler.HandleRequest(transfer.Timestamp, transfer.Header, transfer.Payload, token, n.Responder())
	case uavcan.KindResponse:
		n.handler.HandleResponse(transfer.Timestamp, transfer.Header, transfer.Payload)
	}
	return nil
}

// StartPublishingTopic registers a new Publisher for subject, failing
// with a *CapacityError if the publisher table is full or
// ErrDuplicateKey if one is already registered for this subject.
func (n *Node) StartPublishingTopic(subject uavcan.SubjectId, priority uavcan.Priority, timeout uavcan.Duration) (PublishToken, error) {
	p := newPublisher(n.self, subject, priority, timeout, n.tx)
	if err := n.publishers.insert(subject, p); err != nil {
		return PublishToken{}, err
	}
	return PublishToken{subject: subject}, nil
}

// PublishToTopic publishes payload through the Publisher token refers
// to. A token for a subject that has since been removed is a
// programmer error.
func (n *Node) PublishToTopic(token PublishToken, payload []byte) error {
	p, ok := n.publishers.get(token.subject)
	if !ok {
		panic(ErrUnknownPublisher)
	}
	return p.Publish(n.clock.Now(), payload)
}

// StartSendingRequests registers a new Requester for service and
// subscribes the Receiver for matching responses on the same service.
// Installing the response subscription cannot fail, so once the
// Requester is inserted the subscription is always in place.
func (n *Node) StartSendingRequests(service uavcan.ServiceId, priority uavcan.Priority, timeout uavcan.Duration, responseMax int) (RequestToken, error) {
	r := newRequester(n.self, service, priority, timeout, responseMax, n.tx)
	if err := n.requesters.insert(service, r); err != nil {
		return RequestToken{}, err
	}
	n.rx.Subscribe(uavcan.KindResponse, uavcan.PortId(service), responseMax, timeout)
	return RequestToken{service: service}, nil
}

// SendRequest sends payload through the Requester token refers to,
// addressed to destination.
func (n *Node) SendRequest(token RequestToken, payload []byte, destination uavcan.NodeId) (uavcan.TransferId, error) {
	r, ok := n.requesters.get(token.service)
	if !ok {
		panic(ErrUnknownRequester)
	}
	return r.Send(n.clock.Now(), payload, destination)
}

// SubscribeMessage is a thin pass-through to the Receiver.
func (n *Node) SubscribeMessage(subject uavcan.SubjectId, payloadSizeMax int, timeout uavcan.Duration) {
	n.rx.Subscribe(uavcan.KindMessage, uavcan.PortId(subject), payloadSizeMax, timeout)
}

// SubscribeRequest is a thin pass-through to the Receiver.
func (n *Node) SubscribeRequest(service uavcan.ServiceId, payloadSizeMax int, timeout uavcan.Duration) {
	n.rx.Subscribe(uavcan.KindRequest, uavcan.PortId(service), payloadSizeMax, timeout)
}

// Responder returns an ephemeral view enabling ad hoc responses
// outside of AcceptFrame's own dispatch (e.g. a deferred answer).
func (n *Node) Responder() *Responder {
	return newResponder(n.self, n.tx)
}

// TransferCount and ErrorCount expose the underlying Receiver's
// monotonic counters.
func (n *Node) TransferCount() uint64 { return n.rx.TransferCount() }
func (n *Node) ErrorCount() uint64    { return n.rx.ErrorCount() }

// Transmitter exposes the underlying Transmitter so an
// AnonymousPublisher (which has no NodeId and so cannot be registered
// in the bounded publisher table) can be built against the same
// outbound path as this Node's registered Publishers.
func (n *Node) Transmitter() *transport.Transmitter { return n.tx }
