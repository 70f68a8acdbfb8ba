// Package can defines the driver contract concrete CAN transports
// implement, plus a registry so a channel name can be resolved to a
// Bus without the caller importing a specific driver package.
package can

import (
	"fmt"

	"github.com/fleetwire/uavcan"
)

// FrameHandler receives every frame a Bus reads off the wire. The
// driver's own read loop calls Handle from its own goroutine after
// stamping Frame.Timestamp; the handler (typically a
// transport.Receiver wrapped by a node.Node) must be safe to call
// from that goroutine and must not block it.
type FrameHandler interface {
	Handle(frame uavcan.Frame)
}

// Bus is the driver contract the core's Node/Transmitter ultimately
// sit on top of. It carries the full 29-bit extended identifier and
// up to 64 data bytes, so both classic CAN and CAN FD drivers can
// implement it.
type Bus interface {
	Connect(...any) error
	Disconnect() error
	Send(frame uavcan.Frame) error
	Subscribe(handler FrameHandler) error
}

// NewInterfaceFunc constructs a Bus bound to channel. Concrete driver
// packages register one of these against a name via RegisterInterface
// from an init() function.
type NewInterfaceFunc func(channel string) (Bus, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

// RegisterInterface makes a driver available under interfaceType for
// NewBus to resolve. Call it from the driver package's init().
func RegisterInterface(interfaceType string, newInterface NewInterfaceFunc) {
	interfaceRegistry[interfaceType] = newInterface
}

// NewBus resolves interfaceType (e.g. "socketcan", "socketcanraw",
// "virtual") and constructs a Bus bound to channel. bitrate is
// informational for drivers that need it to configure hardware; it is
// not interpreted here.
func NewBus(interfaceType string, channel string, bitrate int) (Bus, error) {
	createInterface, ok := interfaceRegistry[interfaceType]
	if !ok {
		return nil, fmt.Errorf("can: unsupported interface %q", interfaceType)
	}
	return createInterface(channel)
}
