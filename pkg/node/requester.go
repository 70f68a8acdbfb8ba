package node

import (
	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/transport"
)

// RequestToken identifies a registered request channel; returned by
// Node.StartSendingRequests and consumed by Node.SendRequest.
type RequestToken struct {
	service uavcan.ServiceId
}

// requesterSlots mirrors the 128-slot Session array used on the
// receive side: one next-TransferId counter per possible destination,
// so concurrent outstanding requests to distinct servers never share
// a TransferId sequence.
const requesterSlots = int(uavcan.MaxNodeId) + 1

// Requester sends Request transfers on one service, tracking the next
// TransferId to use per destination server independently.
type Requester struct {
	source      uavcan.NodeId
	service     uavcan.ServiceId
	priority    uavcan.Priority
	timeout     uavcan.Duration
	responseMax int
	nextByDest  [requesterSlots]uavcan.TransferId
	tx          *transport.Transmitter
}

func newRequester(source uavcan.NodeId, service uavcan.ServiceId, priority uavcan.Priority, timeout uavcan.Duration, responseMax int, tx *transport.Transmitter) *Requester {
	return &Requester{source: source, service: service, priority: priority, timeout: timeout, responseMax: responseMax, tx: tx}
}

// Send transmits one Request transfer to destination and returns the
// TransferId it was sent with, so the caller can correlate a later
// response.
func (r *Requester) Send(now uavcan.Instant, payload []byte, destination uavcan.NodeId) (uavcan.TransferId, error) {
	tid := r.nextByDest[destination]
	header := uavcan.TransferHeader{
		Source:   r.source,
		Priority: r.priority,
		Kind:     uavcan.KindRequest,
		Service:  r.service,
		Dest:     destination,
	}
	if err := r.tx.Push(now, header, tid, payload); err != nil {
		return tid, err
	}
	r.nextByDest[destination] = tid.Next()
	return tid, nil
}
