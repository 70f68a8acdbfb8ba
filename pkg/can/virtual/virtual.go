// Package virtual implements a TCP-framed loopback CAN bus, primarily
// for integration tests and the demo CLI. It dials a broker that
// relays whatever one peer sends to every other connected peer.
package virtual

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fleetwire/uavcan"
	can "github.com/fleetwire/uavcan/pkg/can"
)

func init() {
	can.RegisterInterface("virtual", NewBus)
}

// Bus is a TCP-backed loopback CAN bus. Each frame is serialized as a
// 4-byte big-endian length prefix followed by a 4-byte CAN ID, a
// 1-byte data length, and up to 64 data bytes.
type Bus struct {
	logger     *slog.Logger
	mu         sync.Mutex
	channel    string
	conn       net.Conn
	receiveOwn bool
	handler    can.FrameHandler
	stopChan   chan struct{}
	wg         sync.WaitGroup
	running    bool
}

// NewBus constructs a virtual Bus that will dial channel (e.g.
// "localhost:18000") on Connect. It satisfies can.NewInterfaceFunc for
// registration with can.NewBus.
func NewBus(channel string) (can.Bus, error) {
	return &Bus{channel: channel, stopChan: make(chan struct{}), logger: slog.Default()}, nil
}

func serializeFrame(frame uavcan.Frame) ([]byte, error) {
	if len(frame.Data) > 64 {
		return nil, fmt.Errorf("virtual: frame data of %d bytes exceeds 64-byte maximum", len(frame.Data))
	}
	body := make([]byte, 5+len(frame.Data))
	binary.BigEndian.PutUint32(body[0:4], uint32(frame.ID))
	body[4] = byte(len(frame.Data))
	copy(body[5:], frame.Data)

	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

func deserializeFrame(body []byte) (uavcan.Frame, error) {
	if len(body) < 5 {
		return uavcan.Frame{}, errors.New("virtual: short frame body")
	}
	id := binary.BigEndian.Uint32(body[0:4])
	n := int(body[4])
	if len(body) < 5+n {
		return uavcan.Frame{}, errors.New("virtual: truncated frame data")
	}
	return uavcan.Frame{
		Timestamp: uavcan.NewInstant(time.Now()),
		ID:        uavcan.CanID(id),
		Data:      append([]byte(nil), body[5:5+n]...),
	}, nil
}

// Connect dials the broker address given at construction time.
func (b *Bus) Connect(...any) error {
	conn, err := net.Dial("tcp", b.channel)
	if err != nil {
		return err
	}
	b.conn = conn
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect stops the receive loop, if running, and closes the
// connection.
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		close(b.stopChan)
		b.wg.Wait()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Send transmits frame to the broker. When SetReceiveOwn(true) has
// been called, the handler also sees the frame locally, matching real
// hardware's loopback mode.
func (b *Bus) Send(frame uavcan.Frame) error {
	if b.receiveOwn && b.handler != nil {
		b.handler.Handle(frame)
	}
	if b.conn == nil {
		return errors.New("virtual: no active connection")
	}
	bytes, err := serializeFrame(frame)
	if err != nil {
		return err
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
	_, err = b.conn.Write(bytes)
	return err
}

// Subscribe registers handler and starts the background receive loop
// if it is not already running.
func (b *Bus) Subscribe(handler can.FrameHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	if b.running {
		return nil
	}
	b.running = true
	b.wg.Add(1)
	go b.receiveLoop()
	return nil
}

func (b *Bus) recv() (uavcan.Frame, error) {
	if b.conn == nil {
		return uavcan.Frame{}, errors.New("virtual: no active connection")
	}
	_ = b.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	header := make([]byte, 4)
	n, err := b.conn.Read(header)
	if err != nil {
		return uavcan.Frame{}, err
	}
	if n != 4 {
		return uavcan.Frame{}, fmt.Errorf("virtual: short header read: %d bytes", n)
	}
	length := binary.BigEndian.Uint32(header)
	body := make([]byte, length)
	_ = b.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	n, err = b.conn.Read(body)
	if err != nil {
		return uavcan.Frame{}, err
	}
	if uint32(n) != length {
		return uavcan.Frame{}, fmt.Errorf("virtual: short body read: expected %d, got %d", length, n)
	}
	return deserializeFrame(body)
}

func (b *Bus) receiveLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		default:
			frame, err := b.recv()
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if err != nil {
				b.logger.Error("virtual: receive loop closing", "err", err)
				return
			}
			if b.handler != nil {
				b.handler.Handle(frame)
			}
		}
	}
}

// SetReceiveOwn enables or disables local loopback of frames this Bus
// sends, matching real hardware's CAN_RAW_RECV_OWN_MSGS option.
func (b *Bus) SetReceiveOwn(receiveOwn bool) {
	b.receiveOwn = receiveOwn
}
