package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// Builder errors.
var (
	ErrMessageTooLarge = errors.New("message exceeds scratch buffer")
	ErrInvalidField    = errors.New("invalid field")
	ErrUnknownMessage  = errors.New("unknown message type")
)

// Builder serializes responses into a single scratch buffer. The slice
// returned by a Build call aliases that buffer and is only valid until the
// next call. A Builder is not safe for concurrent use.
type Builder struct {
	buf [ScratchSize]byte
	n   int
	err error
}

// Build serializes any Message.
func (b *Builder) Build(m Message) ([]byte, error) {
	switch v := m.(type) {
	case SysInfo:
		return b.BuildSysInfo(v)
	case APDetails:
		return b.BuildAPDetails(v)
	case IPConfig:
		return b.BuildIPConfig(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
}

// BuildSysInfo writes [id:12][version:2 LE x4][release_len:1][release].
func (b *Builder) BuildSysInfo(m SysInfo) ([]byte, error) {
	b.begin(OpNotifySysInfo)
	b.put(m.DeviceID[:]...)
	for _, v := range m.Versions {
		b.put16(v)
	}
	b.putString(m.Release)
	return b.finish()
}

// BuildAPDetails writes [state:1][rssi:2 LE][channel:1][bssid:6][security:4 LE][ssid_len:1][ssid].
func (b *Builder) BuildAPDetails(m APDetails) ([]byte, error) {
	b.begin(OpNotifyAP)
	if len(m.BSSID) != 6 {
		b.fail(fmt.Errorf("%w: bssid length %d", ErrInvalidField, len(m.BSSID)))
	}
	b.put(byte(m.State))
	b.put16(uint16(m.RSSI))
	b.put(m.Channel)
	b.put(m.BSSID...)
	b.put32(m.Security)
	b.putString(m.SSID)
	return b.finish()
}

// BuildIPConfig writes [ver:1][addr] for station and gateway, then
// [gateway_mac:6][ssid_len:1][ssid].
func (b *Builder) BuildIPConfig(m IPConfig) ([]byte, error) {
	b.begin(OpNotifyIPConfig)
	b.putIP(m.StationIP)
	b.putIP(m.GatewayIP)
	if len(m.GatewayMAC) != 6 {
		b.fail(fmt.Errorf("%w: gateway mac length %d", ErrInvalidField, len(m.GatewayMAC)))
	}
	b.put(m.GatewayMAC...)
	b.putString(m.SSID)
	return b.finish()
}

func (b *Builder) begin(op Opcode) {
	b.n = 2
	b.err = nil
	b.buf[1] = byte(op)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) put(p ...byte) {
	if b.err != nil {
		return
	}
	if b.n+len(p) > ScratchSize {
		b.fail(fmt.Errorf("%w: need %d bytes", ErrMessageTooLarge, b.n+len(p)))
		return
	}
	b.n += copy(b.buf[b.n:], p)
}

func (b *Builder) put16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.put(tmp[:]...)
}

func (b *Builder) put32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.put(tmp[:]...)
}

func (b *Builder) putString(s string) {
	if len(s) > 0xFF {
		b.fail(fmt.Errorf("%w: string length %d", ErrMessageTooLarge, len(s)))
		return
	}
	b.put(byte(len(s)))
	b.put([]byte(s)...)
}

func (b *Builder) putIP(ip net.IP) {
	if v4 := ip.To4(); v4 != nil {
		b.put(4)
		b.put(v4...)
		return
	}
	if v6 := ip.To16(); v6 != nil {
		b.put(6)
		b.put(v6...)
		return
	}
	b.fail(fmt.Errorf("%w: ip %v", ErrInvalidField, ip))
}

func (b *Builder) finish() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.buf[0] = byte(b.n - 1)
	return b.buf[:b.n], nil
}
