// Package socketcan is a thin wrapper over github.com/brutella/can,
// adapting its classic-CAN Frame type to uavcan.Frame's 29-bit
// extended identifier.
package socketcan

import (
	"time"

	sockcan "github.com/brutella/can"
	"github.com/fleetwire/uavcan"
	can "github.com/fleetwire/uavcan/pkg/can"
)

func init() {
	can.RegisterInterface("socketcan", NewBus)
}

// canEffFlag marks a SocketCAN identifier as 29-bit extended, per the
// Linux can_frame wire format brutella/can mirrors directly.
const canEffFlag uint32 = 0x80000000

// Bus wraps a brutella/can connection, translating every frame
// to/from uavcan.Frame at the boundary.
type Bus struct {
	conn    *sockcan.Bus
	handler can.FrameHandler
	clock   uavcan.Clock
}

// NewBus opens a SocketCAN interface by name (e.g. "can0"). It
// satisfies can.NewInterfaceFunc for registration with can.NewBus.
func NewBus(name string) (can.Bus, error) {
	conn, err := sockcan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: conn, clock: uavcan.SystemClock{}}, nil
}

// Connect starts the driver's own receive loop in a background
// goroutine, as brutella/can requires.
func (b *Bus) Connect(...any) error {
	go b.conn.ConnectAndPublish()
	return nil
}

func (b *Bus) Disconnect() error {
	return b.conn.Disconnect()
}

// Send publishes frame, translating its 29-bit identifier and
// variable-length data into brutella/can's fixed 8-byte Frame.
func (b *Bus) Send(frame uavcan.Frame) error {
	var data [8]byte
	copy(data[:], frame.Data)
	return b.conn.Publish(sockcan.Frame{
		ID:     canEffFlag | uint32(frame.ID),
		Length: uint8(len(frame.Data)),
		Data:   data,
	})
}

// Subscribe registers handler to receive every frame read off the
// bus. Only one handler is supported at a time, matching
// brutella/can's single-callback Subscribe.
func (b *Bus) Subscribe(handler can.FrameHandler) error {
	b.handler = handler
	b.conn.Subscribe(b)
	return nil
}

// Handle implements brutella/can's receive callback interface.
func (b *Bus) Handle(frame sockcan.Frame) {
	if b.handler == nil {
		return
	}
	id := frame.ID &^ (canEffFlag | 0x40000000 | 0x20000000)
	b.handler.Handle(uavcan.Frame{
		Timestamp: uavcan.NewInstant(time.Now()),
		ID:        uavcan.CanID(id),
		Data:      append([]byte(nil), frame.Data[:frame.Length]...),
	})
}
