package transport

import (
	"errors"
	"fmt"
)

// PDUKind identifies an attribute operation carried in one WebSocket message.
type PDUKind uint8

const (
	PDUWrite       PDUKind = 0x01 // peer to device
	PDUNotify      PDUKind = 0x02 // device to peer
	PDUSubscribe   PDUKind = 0x03 // peer to device
	PDUUnsubscribe PDUKind = 0x04 // peer to device
	PDUReadReq     PDUKind = 0x05 // peer to device
	PDUReadResp    PDUKind = 0x06 // device to peer
	PDUWriteResp   PDUKind = 0x07 // device to peer, data is one AttStatus byte
)

// String returns the PDU kind name.
func (k PDUKind) String() string {
	switch k {
	case PDUWrite:
		return "WRITE"
	case PDUNotify:
		return "NOTIFY"
	case PDUSubscribe:
		return "SUBSCRIBE"
	case PDUUnsubscribe:
		return "UNSUBSCRIBE"
	case PDUReadReq:
		return "READ_REQ"
	case PDUReadResp:
		return "READ_RESP"
	case PDUWriteResp:
		return "WRITE_RESP"
	default:
		return fmt.Sprintf("PDU(0x%02X)", uint8(k))
	}
}

// ErrShortPDU is returned for messages shorter than the PDU header.
var ErrShortPDU = errors.New("pdu shorter than header")

// PDU is one emulated attribute operation: [kind:1][char:1][data].
type PDU struct {
	Kind PDUKind
	Char Characteristic
	Data []byte
}

// EncodePDU serializes p.
func EncodePDU(p PDU) []byte {
	out := make([]byte, 2+len(p.Data))
	out[0] = byte(p.Kind)
	out[1] = byte(p.Char)
	copy(out[2:], p.Data)
	return out
}

// DecodePDU parses one message. Data aliases msg.
func DecodePDU(msg []byte) (PDU, error) {
	if len(msg) < 2 {
		return PDU{}, ErrShortPDU
	}
	return PDU{Kind: PDUKind(msg[0]), Char: Characteristic(msg[1]), Data: msg[2:]}, nil
}
