package node

import (
	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/transport"
)

// ResponseToken captures everything needed to answer one inbound
// Request with a matching Response: the service/client addressing and
// the TransferId the response must echo back, pairing it with the
// request that produced it.
type ResponseToken struct {
	Service    uavcan.ServiceId
	Client     uavcan.NodeId
	TransferId uavcan.TransferId
	Priority   uavcan.Priority
}

// Responder is an ephemeral view handed to a request handler; it
// knows this node's own NodeId and can emit a Response for any token
// the Node dispatcher has synthesized from an inbound Request.
type Responder struct {
	self uavcan.NodeId
	tx   *transport.Transmitter
}

func newResponder(self uavcan.NodeId, tx *transport.Transmitter) *Responder {
	return &Responder{self: self, tx: tx}
}

// SendResponse emits a Response transfer whose TransferId equals the
// token's, addressed back to the original requester.
func (r *Responder) SendResponse(now uavcan.Instant, token ResponseToken, payload []byte) error {
	header := uavcan.TransferHeader{
		Source:   r.self,
		Priority: token.Priority,
		Kind:     uavcan.KindResponse,
		Service:  token.Service,
		Dest:     token.Client,
	}
	return r.tx.Push(now, header, token.TransferId, payload)
}
