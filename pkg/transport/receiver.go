package transport

import (
	"errors"
	"log/slog"

	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/internal/crc"
	"github.com/fleetwire/uavcan/pkg/buildup"
)

// Receiver is the top-level inbound dispatcher: it owns the three
// subscription tables (message, request, response), drives
// reassembly through Buildup, enforces identity filtering and session
// timeouts, and reports completed transfers.
type Receiver struct {
	self  uavcan.NodeId
	clock uavcan.Clock
	alloc buildup.Allocator
	log   *slog.Logger

	message  map[uavcan.PortId]*Subscription
	request  map[uavcan.PortId]*Subscription
	response map[uavcan.PortId]*Subscription

	transferCount uint64
	errorCount    uint64
}

// NewReceiver creates a Receiver for a node with the given own NodeId. alloc
// may be nil, in which case buildup.DefaultAllocator is used.
func NewReceiver(self uavcan.NodeId, clock uavcan.Clock, alloc buildup.Allocator, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{
		self:     self,
		clock:    clock,
		alloc:    alloc,
		log:      log,
		message:  make(map[uavcan.PortId]*Subscription),
		request:  make(map[uavcan.PortId]*Subscription),
		response: make(map[uavcan.PortId]*Subscription),
	}
}

// TransferCount returns the number of transfers successfully
// delivered so far. It wraps around on overflow.
func (r *Receiver) TransferCount() uint64 { return r.transferCount }

// ErrorCount returns the number of malformed or rejected frames seen
// so far. It wraps around on overflow.
func (r *Receiver) ErrorCount() uint64 { return r.errorCount }

func (r *Receiver) table(kind uavcan.Kind) map[uavcan.PortId]*Subscription {
	switch kind {
	case uavcan.KindMessage:
		return r.message
	case uavcan.KindRequest:
		return r.request
	default:
		return r.response
	}
}

// Subscribe registers (or replaces) interest in (kind, port).
// Replacing an existing subscription destroys any sessions it held.
func (r *Receiver) Subscribe(kind uavcan.Kind, port uavcan.PortId, payloadSizeMax int, timeout uavcan.Duration) *Subscription {
	sub := NewSubscription(kind, port, payloadSizeMax, timeout)
	r.table(kind)[port] = sub
	return sub
}

// Unsubscribe removes interest in (kind, port), if present.
func (r *Receiver) Unsubscribe(kind uavcan.Kind, port uavcan.PortId) {
	delete(r.table(kind), port)
}

func (r *Receiver) expireAll(now uavcan.Instant) {
	for _, tbl := range [...]map[uavcan.PortId]*Subscription{r.message, r.request, r.response} {
		for _, sub := range tbl {
			sub.expire(now)
		}
	}
}

// Accept feeds one inbound frame through sanity checks, subscription
// lookup and reassembly. It returns a completed Transfer when the
// frame was the last of one, nil with a nil error on every other
// outcome (malformed, unsubscribed, in-progress, or an accepted but
// silently dropped frame), and a non-nil error only for
// uavcan.ErrOutOfMemory on the allocator path.
func (r *Receiver) Accept(frame uavcan.Frame) (*uavcan.Transfer[[]byte], error) {
	now := frame.Timestamp
	r.expireAll(now)

	if len(frame.Data) == 0 {
		r.errorCount++
		return nil, nil
	}

	header, err := uavcan.ParseCanID(uint32(frame.ID))
	if err != nil {
		r.errorCount++
		r.log.Debug("dropping frame with malformed CAN identifier", "id", frame.ID, "err", err)
		return nil, nil
	}

	tail := frame.TailByte()

	if header.Kind != uavcan.KindMessage && header.Dest != r.self {
		return nil, nil
	}
	if header.Kind == uavcan.KindMessage && header.Anonymous {
		if !(tail.Start && tail.End && tail.Toggle) {
			return nil, nil
		}
	}

	sub, ok := r.table(header.Kind)[header.Port()]
	if !ok {
		return nil, nil
	}

	sess := sub.session(header.Source)
	if sess != nil {
		if tail.TransferId != sess.buildup.TransferId() {
			return nil, nil
		}
	} else {
		if !tail.Start {
			return nil, nil
		}
		sess = &Session{transferTimestamp: now, buildup: buildup.New(tail.TransferId, r.alloc)}
		sub.setSession(header.Source, sess)
	}

	payload := frame.Payload()
	if sess.buildup.Len()+len(payload) > sub.PayloadSizeMax {
		sub.destroySession(header.Source)
		r.errorCount++
		return nil, nil
	}
	if now.Sub(sess.transferTimestamp) > sub.Timeout {
		sub.destroySession(header.Source)
		r.errorCount++
		return nil, nil
	}

	complete, err := sess.buildup.Add(tail, payload)
	if err != nil {
		sub.destroySession(header.Source)
		r.errorCount++
		if errors.Is(err, uavcan.ErrOutOfMemory) {
			return nil, uavcan.ErrOutOfMemory
		}
		r.log.Debug("dropping session after buildup error", "source", header.Source, "err", err)
		return nil, nil
	}
	if complete == nil {
		return nil, nil
	}

	framesSeen := sess.buildup.FramesSeen()
	if framesSeen > 1 {
		if crc.Of(complete) != 0 {
			sub.destroySession(header.Source)
			r.errorCount++
			r.log.Debug("dropping transfer with bad CRC", "source", header.Source, "port", header.Port())
			return nil, nil
		}
		complete = complete[:len(complete)-2]
	}

	transferTimestamp := sess.transferTimestamp
	sub.destroySession(header.Source)
	r.transferCount++

	return &uavcan.Transfer[[]byte]{
		Timestamp:  transferTimestamp,
		Header:     header,
		TransferId: tail.TransferId,
		Payload:    complete,
	}, nil
}
