package transport

import (
	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/internal/crc"
)

// MaxSingleFrameDataBytes is the largest payload that fits in one CAN
// classic frame alongside its tail byte.
const MaxSingleFrameDataBytes = 7

// Sink is the one-way, frame-ordered output a Transmitter pushes onto.
// A Bus (pkg/can) satisfies this with its transmit queue.
type Sink interface {
	Send(frame uavcan.Frame) error
}

// Transmitter fragments outbound transfers into CAN frames and pushes
// them onto a Sink, computing and appending the transfer CRC for any
// payload that does not fit in a single frame.
//
// Per-frame MTU is fixed at construction. This Transmitter never pads
// a fragment to reach one of CAN FD's quantized DLC sizes — the last
// fragment of every transfer is exactly as long as the remaining
// payload (plus its tail byte) requires.
type Transmitter struct {
	sink Sink
	mtu  int
}

// NewTransmitter creates a Transmitter writing frames of at most mtu data bytes
// (tail byte included) onto sink. mtu must be at least 2.
func NewTransmitter(sink Sink, mtu int) *Transmitter {
	return &Transmitter{sink: sink, mtu: mtu}
}

// Push fragments and transmits one transfer. Frames are emitted in
// order; if the Sink rejects a frame partway through a multi-frame
// transfer, Push stops and returns the error immediately, leaving a
// torn transfer on the wire — UAVCAN v1 has no mechanism to retract
// frames already queued, so the caller's only remedy is to let the
// receiver's reassembly timeout discard the partial session.
func (t *Transmitter) Push(now uavcan.Instant, header uavcan.TransferHeader, tid uavcan.TransferId, payload []byte) error {
	canID := uavcan.BuildCanID(header)
	chunk := t.mtu - 1

	if len(payload) <= chunk {
		return t.sink.Send(t.frame(now, canID, payload, uavcan.TailByte{
			Start: true, End: true, Toggle: true, TransferId: tid,
		}))
	}

	framed := make([]byte, len(payload)+2)
	copy(framed, payload)
	sum := crc.Of(payload)
	framed[len(payload)] = byte(sum >> 8)
	framed[len(payload)+1] = byte(sum)

	toggle := true
	for offset := 0; offset < len(framed); offset += chunk {
		end := offset + chunk
		last := end >= len(framed)
		if last {
			end = len(framed)
		}
		tail := uavcan.TailByte{
			Start:      offset == 0,
			End:        last,
			Toggle:     toggle,
			TransferId: tid,
		}
		if err := t.sink.Send(t.frame(now, canID, framed[offset:end], tail)); err != nil {
			return err
		}
		toggle = !toggle
	}
	return nil
}

func (t *Transmitter) frame(now uavcan.Instant, id uavcan.CanID, payload []byte, tail uavcan.TailByte) uavcan.Frame {
	data := make([]byte, len(payload)+1)
	copy(data, payload)
	data[len(payload)] = tail.Pack()
	return uavcan.Frame{Timestamp: now, ID: id, Data: data}
}
