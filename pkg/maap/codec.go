package maap

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MsgType identifies the three MAAP PDU types (IEEE 1722-2016 Table B.6).
type MsgType uint8

const (
	MsgProbe    MsgType = 1
	MsgDefend   MsgType = 2
	MsgAnnounce MsgType = 3
)

func (t MsgType) String() string {
	switch t {
	case MsgProbe:
		return "Probe"
	case MsgDefend:
		return "Defend"
	case MsgAnnounce:
		return "Announce"
	default:
		return "Unknown"
	}
}

// PacketSize is the fixed size, in bytes, of a MAAP Ethernet frame.
const PacketSize = 42

const (
	maapEtherType  = 0x22F0
	maapSubtype    = 0xFE
	maapVersion    = 0 // MAAP_version field, 5 bits
	maapDataLength = 16
)

// ErrMalformedFrame is returned by Decode when the buffer fails structural
// validation: wrong length, wrong EtherType or subtype, or an unknown
// msg_type.
var ErrMalformedFrame = errors.New("maap: malformed frame")

// PDU is the decoded content of a MAAP Ethernet frame.
type PDU struct {
	DestMAC  Address
	SrcMAC   Address
	Type     MsgType
	StreamID uint64

	RequestedStart Address
	RequestedCount uint16

	ConflictStart Address
	ConflictCount uint16
}

// Encode renders pdu as a 42-byte MAAP Ethernet frame. Encode is total for
// any PDU whose Type is one of MsgProbe/MsgDefend/MsgAnnounce.
func Encode(pdu PDU) ([]byte, error) {
	switch pdu.Type {
	case MsgProbe, MsgDefend, MsgAnnounce:
	default:
		return nil, errors.Errorf("maap: invalid msg_type %d", pdu.Type)
	}

	buf := make([]byte, PacketSize)
	destB := pdu.DestMAC.Bytes()
	srcB := pdu.SrcMAC.Bytes()
	copy(buf[0:6], destB[:])
	copy(buf[6:12], srcB[:])
	binary.BigEndian.PutUint16(buf[12:14], maapEtherType)
	buf[14] = maapSubtype
	buf[15] = byte(pdu.Type & 0x0F) // SV=0, version=0
	binary.BigEndian.PutUint16(buf[16:18], uint16(maapVersion)<<11|maapDataLength)
	binary.BigEndian.PutUint64(buf[18:26], pdu.StreamID)
	startB := pdu.RequestedStart.Bytes()
	copy(buf[26:32], startB[:])
	binary.BigEndian.PutUint16(buf[32:34], pdu.RequestedCount)
	conflictB := pdu.ConflictStart.Bytes()
	copy(buf[34:40], conflictB[:])
	binary.BigEndian.PutUint16(buf[40:42], pdu.ConflictCount)
	return buf, nil
}

// Decode parses buf as a MAAP Ethernet frame. It fails with
// ErrMalformedFrame when the length, EtherType, subtype, or msg_type
// fields are invalid.
func Decode(buf []byte) (PDU, error) {
	if len(buf) != PacketSize {
		return PDU{}, ErrMalformedFrame
	}
	if binary.BigEndian.Uint16(buf[12:14]) != maapEtherType {
		return PDU{}, ErrMalformedFrame
	}
	if buf[14] != maapSubtype {
		return PDU{}, ErrMalformedFrame
	}
	msgType := MsgType(buf[15] & 0x0F)
	switch msgType {
	case MsgProbe, MsgDefend, MsgAnnounce:
	default:
		return PDU{}, ErrMalformedFrame
	}

	return PDU{
		DestMAC:        AddressFromBytes(buf[0:6]),
		SrcMAC:         AddressFromBytes(buf[6:12]),
		Type:           msgType,
		StreamID:       binary.BigEndian.Uint64(buf[18:26]),
		RequestedStart: AddressFromBytes(buf[26:32]),
		RequestedCount: binary.BigEndian.Uint16(buf[32:34]),
		ConflictStart:  AddressFromBytes(buf[34:40]),
		ConflictCount:  binary.BigEndian.Uint16(buf[40:42]),
	}, nil
}
