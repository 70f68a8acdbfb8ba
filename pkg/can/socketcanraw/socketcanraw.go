// Package socketcanraw opens a raw AF_CAN/SOCK_RAW socket directly,
// for environments where pulling in brutella/can's dependency surface
// is undesirable. It speaks classic 8-byte CAN frames only: CAN FD's
// quantized DLC framing is out of scope (see the module's documented
// non-goals).
package socketcanraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/fleetwire/uavcan"
	can "github.com/fleetwire/uavcan/pkg/can"
	"golang.org/x/sys/unix"
)

// classicCANFrameSize is the fixed wire size of Linux's struct
// can_frame: 4-byte id, dlc, 3 pad bytes, 8 data bytes.
const classicCANFrameSize = 16

// canEffFlag marks an identifier as 29-bit extended in the raw
// can_frame wire format.
const canEffFlag uint32 = 0x80000000

type rawFrame struct {
	id   uint32
	dlc  uint8
	pad  uint8
	res0 uint8
	res1 uint8
	data [8]uint8
}

// Bus is a raw SocketCAN binding. It expects the named interface to
// already be up (e.g. "ip link set can0 up type can bitrate 500000").
type Bus struct {
	f       *os.File
	fd      int
	handler can.FrameHandler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func init() {
	can.RegisterInterface("socketcanraw", NewBus)
}

// NewBus opens channel as a raw CAN_RAW socket. It satisfies
// can.NewInterfaceFunc for registration with can.NewBus.
func NewBus(channel string) (can.Bus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcanraw: creating CAN socket: %w", err)
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &defaultTimeVal); err != nil {
		return nil, fmt.Errorf("socketcanraw: setting read timeout: %w", err)
	}
	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		return nil, err
	}
	return &Bus{fd: fd, logger: slog.Default()}, nil
}

// Connect starts the background read loop.
func (b *Bus) Connect(...any) error {
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.f = os.NewFile(uintptr(b.fd), fmt.Sprintf("fd %d", b.fd))
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processIncoming(ctx)
	}()
	return nil
}

// Disconnect stops the read loop and closes the socket.
func (b *Bus) Disconnect() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	b.wg.Wait()
	return b.f.Close()
}

// Send writes frame as a raw can_frame. Payloads longer than 8 bytes
// are rejected: this driver does not speak CAN FD.
func (b *Bus) Send(frame uavcan.Frame) error {
	if len(frame.Data) > 8 {
		return fmt.Errorf("socketcanraw: payload of %d bytes exceeds classic CAN's 8-byte frame", len(frame.Data))
	}
	raw := &rawFrame{id: canEffFlag | uint32(frame.ID), dlc: uint8(len(frame.Data))}
	copy(raw.data[:], frame.Data)

	bytes := (*(*[classicCANFrameSize]byte)(unsafe.Pointer(raw)))[:]
	n, err := b.f.Write(bytes)
	if n != classicCANFrameSize || err != nil {
		return err
	}
	return nil
}

func (b *Bus) processIncoming(ctx context.Context) {
	rx := make([]byte, classicCANFrameSize)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("socketcanraw: receive loop exiting, closed")
			return
		default:
			n, err := b.f.Read(rx)
			if errors.Is(err, syscall.EAGAIN) {
				continue
			}
			if n != classicCANFrameSize || err != nil {
				b.logger.Info("socketcanraw: receive loop exiting", "error", err)
				return
			}
			raw := (*rawFrame)(unsafe.Pointer(&rx[0]))
			if b.handler == nil {
				continue
			}
			id := raw.id &^ (canEffFlag | 0x40000000 | 0x20000000)
			b.handler.Handle(uavcan.Frame{
				Timestamp: uavcan.NewInstant(time.Now()),
				ID:        uavcan.CanID(id),
				Data:      append([]byte(nil), raw.data[:raw.dlc]...),
			})
		}
	}
}

// Subscribe registers handler as the sole receiver of incoming
// frames.
func (b *Bus) Subscribe(handler can.FrameHandler) error {
	b.handler = handler
	return nil
}

// SetReceiveOwn toggles CAN_RAW_RECV_OWN_MSGS, useful for loopback
// testing against a local vcan interface.
func (b *Bus) SetReceiveOwn(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return unix.SetsockoptInt(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, v)
}

// SetFilters installs filters as the socket's CAN_RAW_FILTER
// acceptance table. Entries are unix.CanFilter values; the caller
// converts any pkg/filter.MaskMatch into one.
func (b *Bus) SetFilters(filters []unix.CanFilter) error {
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters)
}
