package maap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	cases := []PDU{
		{
			DestMAC: DestMAC, SrcMAC: 0x001122334455,
			Type: MsgProbe, StreamID: 0,
			RequestedStart: 0x91E0F0000010, RequestedCount: 8,
		},
		{
			DestMAC: DestMAC, SrcMAC: 0xFFFFFFFFFFFF,
			Type: MsgAnnounce, StreamID: 0x0102030405060708,
			RequestedStart: 0x91E0F0000020, RequestedCount: 1,
		},
		{
			DestMAC: DestMAC, SrcMAC: 0x001122334455,
			Type: MsgDefend, StreamID: 0,
			RequestedStart: 0x91E0F0000010, RequestedCount: 8,
			ConflictStart: 0x91E0F0000012, ConflictCount: 2,
		},
	}

	for _, want := range cases {
		buf, err := Encode(want)
		require.NoError(t, err)
		assert.Len(t, buf, PacketSize)

		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, 41))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeRejectsWrongEtherType(t *testing.T) {
	buf, err := Encode(PDU{DestMAC: DestMAC, SrcMAC: 1, Type: MsgProbe, RequestedCount: 1})
	require.NoError(t, err)
	buf[12] = 0x08
	buf[13] = 0x00
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeRejectsWrongSubtype(t *testing.T) {
	buf, err := Encode(PDU{DestMAC: DestMAC, SrcMAC: 1, Type: MsgProbe, RequestedCount: 1})
	require.NoError(t, err)
	buf[14] = 0x00
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeRejectsBadMsgType(t *testing.T) {
	buf, err := Encode(PDU{DestMAC: DestMAC, SrcMAC: 1, Type: MsgProbe, RequestedCount: 1})
	require.NoError(t, err)
	buf[15] = 0x00
	_, err = Decode(buf)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestEncodeRejectsBadMsgType(t *testing.T) {
	_, err := Encode(PDU{Type: 9})
	assert.Error(t, err)
}

func TestDestMACWireConstant(t *testing.T) {
	assert.Equal(t, "91:e0:f0:00:ff:00", DestMAC.String())
}
