package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/fleetwire/uavcan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	frames []uavcan.Frame
	failAt int // -1 disables
}

func newFakeSink() *fakeSink { return &fakeSink{failAt: -1} }

func (f *fakeSink) Send(frame uavcan.Frame) error {
	if f.failAt >= 0 && len(f.frames) == f.failAt {
		return errors.New("sink rejected frame")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func messageHeader(source uavcan.NodeId, subject uavcan.SubjectId) uavcan.TransferHeader {
	return uavcan.TransferHeader{
		Source:   source,
		Priority: uavcan.PriorityNominal,
		Kind:     uavcan.KindMessage,
		Subject:  subject,
	}
}

func TestTransmitterSingleFrame(t *testing.T) {
	sink := newFakeSink()
	tx := NewTransmitter(sink, 8)
	now := uavcan.NewInstant(time.Now())

	err := tx.Push(now, messageHeader(59, 4919), 3, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, sink.frames, 1)

	tail := sink.frames[0].TailByte()
	assert.True(t, tail.Start)
	assert.True(t, tail.End)
	assert.EqualValues(t, 3, tail.TransferId)
	assert.Equal(t, []byte{1, 2, 3}, sink.frames[0].Payload())
}

func TestTransmitterMultiFrameRoundTrip(t *testing.T) {
	sink := newFakeSink()
	tx := NewTransmitter(sink, 8)
	now := uavcan.NewInstant(time.Now())

	payload := make([]byte, 25)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	header := messageHeader(59, 4919)

	err := tx.Push(now, header, 3, payload)
	require.NoError(t, err)
	require.Len(t, sink.frames, 4)

	for i, frame := range sink.frames {
		tail := frame.TailByte()
		assert.Equal(t, i == 0, tail.Start)
		assert.Equal(t, i == len(sink.frames)-1, tail.End)
		assert.EqualValues(t, 3, tail.TransferId)
	}

	rx := NewReceiver(59, uavcan.SystemClock{}, nil, nil)
	rx.Subscribe(uavcan.KindMessage, uavcan.PortId(4919), 64, time.Second)

	var got *uavcan.Transfer[[]byte]
	for _, frame := range sink.frames {
		transfer, err := rx.Accept(frame)
		require.NoError(t, err)
		if transfer != nil {
			got = transfer
		}
	}

	require.NotNil(t, got)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, header.Subject, got.Header.Subject)
	assert.Equal(t, header.Source, got.Header.Source)
}

func TestTransmitterMultiFrameDroppedFrameNeverCompletes(t *testing.T) {
	sink := newFakeSink()
	tx := NewTransmitter(sink, 8)
	now := uavcan.NewInstant(time.Now())

	payload := make([]byte, 25)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	require.NoError(t, tx.Push(now, messageHeader(59, 4919), 3, payload))
	require.Len(t, sink.frames, 4)

	rx := NewReceiver(59, uavcan.SystemClock{}, nil, nil)
	rx.Subscribe(uavcan.KindMessage, uavcan.PortId(4919), 64, 10*time.Millisecond)

	var got *uavcan.Transfer[[]byte]
	for i, frame := range sink.frames {
		if i == 2 {
			continue // drop frame 2
		}
		transfer, err := rx.Accept(frame)
		require.NoError(t, err)
		if transfer != nil {
			got = transfer
		}
	}
	assert.Nil(t, got)
	assert.EqualValues(t, 0, rx.TransferCount())

	// Frame 3 arrived with the wrong toggle bit, so the session is
	// already gone; the dropped 3rd fragment, delivered late and past
	// the timeout, has no start bit and cannot open a new one.
	expiryProbe := uavcan.Frame{
		Timestamp: now.Add(time.Second),
		ID:        sink.frames[2].ID,
		Data:      sink.frames[2].Data,
	}
	_, err := rx.Accept(expiryProbe)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rx.TransferCount())
}

func TestTransmitterSinkErrorStopsMidTransfer(t *testing.T) {
	sink := newFakeSink()
	sink.failAt = 2
	tx := NewTransmitter(sink, 8)
	now := uavcan.NewInstant(time.Now())

	payload := make([]byte, 25)
	err := tx.Push(now, messageHeader(59, 4919), 3, payload)
	require.Error(t, err)
	assert.Len(t, sink.frames, 2)
}
