package uavcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanID_Heartbeat(t *testing.T) {
	// S1 — heartbeat-like message.
	h, err := ParseCanID(0x107d552a)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, h.Kind)
	assert.EqualValues(t, 42, h.Source)
	assert.Equal(t, PriorityNominal, h.Priority)
	assert.EqualValues(t, 7509, h.Subject)
	assert.False(t, h.Anonymous)
}

func TestParseCanID_AnonymousMessage(t *testing.T) {
	// S2 — anonymous string publication.
	h, err := ParseCanID(0x11733775)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, h.Kind)
	assert.EqualValues(t, 0x75, h.Source)
	assert.True(t, h.Anonymous)
	assert.EqualValues(t, 4919, h.Subject)
}

func TestParseCanID_Request(t *testing.T) {
	// S3 — node-info request.
	h, err := ParseCanID(0x136b957b)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, h.Kind)
	assert.EqualValues(t, 123, h.Source)
	assert.EqualValues(t, 430, h.Service)
	assert.EqualValues(t, 42, h.Dest)
}

func TestParseCanID_Response(t *testing.T) {
	// S4 — node-info response.
	h, err := ParseCanID(0x126bbdaa)
	require.NoError(t, err)
	assert.Equal(t, KindResponse, h.Kind)
	assert.EqualValues(t, 42, h.Source)
	assert.EqualValues(t, 430, h.Service)
	assert.EqualValues(t, 123, h.Dest)
}

func TestParseCanID_Bit23Set(t *testing.T) {
	_, err := ParseCanID(0x107d552a | canIDBit23)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBit23Set)
}

func TestParseCanID_Bit7SetOnMessage(t *testing.T) {
	_, err := ParseCanID(0x107d552a | canIDBit7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBit7Set)
}

func TestCanIDRoundTrip(t *testing.T) {
	cases := []TransferHeader{
		{Source: 42, Priority: PriorityNominal, Kind: KindMessage, Subject: 7509},
		{Source: 0x75, Priority: PriorityNominal, Kind: KindMessage, Anonymous: true, Subject: 4919},
		{Source: 123, Priority: PriorityNominal, Kind: KindRequest, Service: 430, Dest: 42},
		{Source: 42, Priority: PriorityNominal, Kind: KindResponse, Service: 430, Dest: 123},
		{Source: 0, Priority: PriorityExceptional, Kind: KindMessage, Subject: 0},
		{Source: 127, Priority: PriorityOptional, Kind: KindMessage, Subject: 8191},
		{Source: 127, Priority: PriorityOptional, Kind: KindRequest, Service: 511, Dest: 127},
	}
	for _, h := range cases {
		raw := BuildCanID(h)
		parsed, err := ParseCanID(uint32(raw))
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	}
}

func TestCanIDLiteralValues(t *testing.T) {
	raw := BuildCanID(TransferHeader{
		Source: 42, Priority: PriorityNominal, Kind: KindMessage, Subject: 7509,
	})
	assert.EqualValues(t, 0x107d552a, raw)

	raw = BuildCanID(TransferHeader{
		Source: 123, Priority: PriorityNominal, Kind: KindRequest, Service: 430, Dest: 42,
	})
	assert.EqualValues(t, 0x136b957b, raw)

	raw = BuildCanID(TransferHeader{
		Source: 42, Priority: PriorityNominal, Kind: KindResponse, Service: 430, Dest: 123,
	})
	assert.EqualValues(t, 0x126bbdaa, raw)
}
