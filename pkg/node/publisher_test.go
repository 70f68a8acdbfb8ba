package node

import (
	"testing"
	"time"

	"github.com/fleetwire/uavcan"
	"github.com/fleetwire/uavcan/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	frames []uavcan.Frame
}

func (s *recordingSink) Send(frame uavcan.Frame) error {
	s.frames = append(s.frames, frame)
	return nil
}

func TestPublisherAdvancesTransferIdModulo32(t *testing.T) {
	sink := &recordingSink{}
	tx := transport.NewTransmitter(sink, 8)
	p := newPublisher(10, 200, uavcan.PriorityNominal, time.Second, tx)

	now := uavcan.NewInstant(time.Now())
	for i := 0; i < 40; i++ {
		require.NoError(t, p.Publish(now, []byte{1}))
	}

	require.Len(t, sink.frames, 40)
	for i, frame := range sink.frames {
		tail := frame.TailByte()
		assert.EqualValues(t, i%32, tail.TransferId)
	}
}

func TestPseudoIdIsDeterministicAndNeverDiagnosticReserved(t *testing.T) {
	a := pseudoId([]byte{1, 2, 3})
	b := pseudoId([]byte{1, 2, 3})
	assert.Equal(t, a, b)
	assert.False(t, uavcan.IsDiagnosticReserved(a))

	c := pseudoId([]byte{9, 9, 9, 9})
	assert.False(t, uavcan.IsDiagnosticReserved(c))
}

func TestAnonymousPublisherRejectsMultiFrame(t *testing.T) {
	sink := &recordingSink{}
	tx := transport.NewTransmitter(sink, 8)
	pub := NewAnonymousPublisher(4919, uavcan.PriorityNominal, tx)

	now := uavcan.NewInstant(time.Now())
	err := pub.Publish(now, make([]byte, 8))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Empty(t, sink.frames)
}

func TestAnonymousPublisherSingleFrame(t *testing.T) {
	sink := &recordingSink{}
	tx := transport.NewTransmitter(sink, 8)
	pub := NewAnonymousPublisher(4919, uavcan.PriorityNominal, tx)

	now := uavcan.NewInstant(time.Now())
	require.NoError(t, pub.Publish(now, []byte{1, 2, 3}))
	require.Len(t, sink.frames, 1)

	header, err := uavcan.ParseCanID(uint32(sink.frames[0].ID))
	require.NoError(t, err)
	assert.True(t, header.Anonymous)
	assert.Equal(t, pseudoId([]byte{1, 2, 3}), header.Source)
}
