package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// DeviceIDLength is the fixed size of the SysInfo device id.
const DeviceIDLength = 12

// Message is a device-to-peer response. The concrete type is one of
// SysInfo, APDetails or IPConfig.
type Message interface {
	Opcode() Opcode
	isMessage()
}

// SysInfo identifies the device.
type SysInfo struct {
	DeviceID [DeviceIDLength]byte
	Versions [4]uint16
	Release  string
}

// APDetails describes one scanned access point.
type APDetails struct {
	State    APState
	RSSI     int16
	Channel  uint8
	BSSID    net.HardwareAddr
	Security uint32
	SSID     string
}

// IPConfig reports the network configuration obtained by a join.
type IPConfig struct {
	StationIP  net.IP
	GatewayIP  net.IP
	GatewayMAC net.HardwareAddr
	SSID       string
}

func (SysInfo) Opcode() Opcode   { return OpNotifySysInfo }
func (APDetails) Opcode() Opcode { return OpNotifyAP }
func (IPConfig) Opcode() Opcode  { return OpNotifyIPConfig }

func (SysInfo) isMessage()   {}
func (APDetails) isMessage() {}
func (IPConfig) isMessage()  {}

// DecodeMessage decodes a reassembled response body (type byte followed by
// the message body, without the length byte).
func DecodeMessage(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	op := Opcode(frame[0])
	r := reader{b: frame[1:]}

	switch op {
	case OpNotifySysInfo:
		var m SysInfo
		copy(m.DeviceID[:], r.bytes(DeviceIDLength))
		for i := range m.Versions {
			m.Versions[i] = r.uint16()
		}
		m.Release = string(r.bytes(int(r.byte())))
		if r.err != nil {
			return nil, fmt.Errorf("decode %s: %w", op, r.err)
		}
		return m, nil

	case OpNotifyAP:
		var m APDetails
		m.State = APState(r.byte())
		m.RSSI = int16(r.uint16())
		m.Channel = r.byte()
		m.BSSID = net.HardwareAddr(r.clone(6))
		m.Security = r.uint32()
		m.SSID = string(r.bytes(int(r.byte())))
		if r.err != nil {
			return nil, fmt.Errorf("decode %s: %w", op, r.err)
		}
		return m, nil

	case OpNotifyIPConfig:
		var m IPConfig
		m.StationIP = r.ip()
		m.GatewayIP = r.ip()
		m.GatewayMAC = net.HardwareAddr(r.clone(6))
		m.SSID = string(r.bytes(int(r.byte())))
		if r.err != nil {
			return nil, fmt.Errorf("decode %s: %w", op, r.err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, op)
	}
}

// reader is a positional decoder that records the first error and returns
// zero values after it.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.b) {
		r.err = ErrShortPayload
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) clone(n int) []byte {
	b := r.bytes(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) byte() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) ip() net.IP {
	switch ver := r.byte(); ver {
	case 4:
		return net.IP(r.clone(net.IPv4len))
	case 6:
		return net.IP(r.clone(net.IPv6len))
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: ip version %d", ErrInvalidField, ver)
		}
		return nil
	}
}
