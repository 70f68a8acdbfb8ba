package buildup

import (
	"errors"
	"testing"

	"github.com/fleetwire/uavcan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleFrame(t *testing.T) {
	b := New(3, nil)
	got, err := b.Add(uavcan.SingleFrameTail(3), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.EqualValues(t, 1, b.FramesSeen())
}

func TestMultiFrameToggleDiscipline(t *testing.T) {
	b := New(3, nil)

	got, err := b.Add(uavcan.TailByte{Start: true, End: false, Toggle: true, TransferId: 3}, []byte{1, 2})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = b.Add(uavcan.TailByte{Start: false, End: false, Toggle: false, TransferId: 3}, []byte{3, 4})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = b.Add(uavcan.TailByte{Start: false, End: true, Toggle: true, TransferId: 3}, []byte{5})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
	assert.EqualValues(t, 3, b.FramesSeen())
}

func TestFirstFrameMustHaveStart(t *testing.T) {
	b := New(0, nil)
	_, err := b.Add(uavcan.TailByte{Start: false, End: false, Toggle: true, TransferId: 0}, []byte{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStart))
}

func TestToggleMismatchIsTerminal(t *testing.T) {
	b := New(0, nil)
	_, err := b.Add(uavcan.TailByte{Start: true, End: false, Toggle: true, TransferId: 0}, []byte{1})
	require.NoError(t, err)

	// Same toggle again instead of flipping — out-of-order/duplicate frame.
	_, err = b.Add(uavcan.TailByte{Start: false, End: false, Toggle: true, TransferId: 0}, []byte{2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToggle))
}

type failingAfter struct {
	budget int
}

func (f *failingAfter) Extend(buf []byte, add []byte) ([]byte, error) {
	if len(buf)+len(add) > f.budget {
		return nil, errors.New("boom")
	}
	return append(buf, add...), nil
}

func TestOutOfMemory(t *testing.T) {
	b := New(0, &failingAfter{budget: 3})
	_, err := b.Add(uavcan.TailByte{Start: true, End: false, Toggle: true, TransferId: 0}, []byte{1, 2, 3, 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, uavcan.ErrOutOfMemory))
}
