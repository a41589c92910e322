package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ScratchSize bounds every frame, length byte included.
const ScratchSize = 128

// MinFrameLength is the smallest declared length a frame may carry.
const MinFrameLength = 2

// MaxFrameLength is the largest declared length a frame may carry. The
// length byte takes the remaining byte of ScratchSize.
const MaxFrameLength = ScratchSize - 1

// Field limits for CONFIG_AP_ENTRY.
const (
	MaxSSIDLength    = 32
	MaxKeyLength     = 64
	MinConfigPayload = 9
)

// Decoding errors.
var (
	ErrEmptyFrame     = errors.New("empty frame")
	ErrShortPayload   = errors.New("payload too short")
	ErrFieldTooLong   = errors.New("field exceeds limit")
	ErrInconsistent   = errors.New("length field exceeds payload")
	ErrFrameTooLong   = errors.New("frame exceeds scratch buffer")
	ErrUnknownCommand = errors.New("unknown command type")
	ErrInvalidLength  = errors.New("invalid declared length")
)

// Command is a decoded inbound command. The concrete type is one of
// ScanRequest, ConfigAPEntry, ConnectAP, NotifySysInfo or UnknownCommand.
type Command interface {
	Opcode() Opcode
	isCommand()
}

// ScanRequest asks the device to start an access point scan.
type ScanRequest struct{}

// ConfigAPEntry carries the credentials of one access point.
type ConfigAPEntry struct {
	Channel  uint8
	Security uint32
	SSID     string
	Key      string
}

// ConnectAP asks the device to join the configured network.
type ConnectAP struct{}

// NotifySysInfo asks the device to send its SysInfo message.
type NotifySysInfo struct{}

// UnknownCommand is any frame whose opcode is not an accepted command,
// including the device-to-peer message types.
type UnknownCommand struct {
	Op      Opcode
	Payload []byte
}

func (ScanRequest) Opcode() Opcode      { return OpScanRequest }
func (ConfigAPEntry) Opcode() Opcode    { return OpConfigAPEntry }
func (ConnectAP) Opcode() Opcode        { return OpConnectAP }
func (NotifySysInfo) Opcode() Opcode    { return OpNotifySysInfo }
func (c UnknownCommand) Opcode() Opcode { return c.Op }

func (ScanRequest) isCommand()    {}
func (ConfigAPEntry) isCommand()  {}
func (ConnectAP) isCommand()      {}
func (NotifySysInfo) isCommand()  {}
func (UnknownCommand) isCommand() {}

// String hides the key.
func (e ConfigAPEntry) String() string {
	return fmt.Sprintf("ConfigAPEntry{channel=%d security=0x%08X ssid=%q key=%d bytes}",
		e.Channel, e.Security, e.SSID, len(e.Key))
}

// DecodeCommand decodes a reassembled frame body (opcode followed by payload,
// without the length byte). Opcodes that are not commands decode to
// UnknownCommand without error. Pad bytes after argument-less commands are
// ignored.
func DecodeCommand(frame []byte) (Command, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	op := Opcode(frame[0])
	payload := frame[1:]

	switch op {
	case OpScanRequest:
		return ScanRequest{}, nil
	case OpConnectAP:
		return ConnectAP{}, nil
	case OpNotifySysInfo:
		return NotifySysInfo{}, nil
	case OpConfigAPEntry:
		entry, err := decodeConfigAPEntry(payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", op, err)
		}
		return entry, nil
	default:
		p := make([]byte, len(payload))
		copy(p, payload)
		return UnknownCommand{Op: op, Payload: p}, nil
	}
}

// decodeConfigAPEntry parses [channel:1][security:4 LE][ssid_len:1][ssid][key_len:1][key].
func decodeConfigAPEntry(p []byte) (ConfigAPEntry, error) {
	var e ConfigAPEntry
	if len(p) < MinConfigPayload {
		return e, fmt.Errorf("%w: %d < %d", ErrShortPayload, len(p), MinConfigPayload)
	}

	e.Channel = p[0]
	e.Security = binary.LittleEndian.Uint32(p[1:5])

	off := 5
	ssidLen := int(p[off])
	off++
	if ssidLen > MaxSSIDLength {
		return e, fmt.Errorf("%w: ssid %d > %d", ErrFieldTooLong, ssidLen, MaxSSIDLength)
	}
	if off+ssidLen+1 > len(p) {
		return e, fmt.Errorf("%w: ssid", ErrInconsistent)
	}
	e.SSID = string(p[off : off+ssidLen])
	off += ssidLen

	keyLen := int(p[off])
	off++
	if keyLen > MaxKeyLength {
		return e, fmt.Errorf("%w: key %d > %d", ErrFieldTooLong, keyLen, MaxKeyLength)
	}
	if off+keyLen > len(p) {
		return e, fmt.Errorf("%w: key", ErrInconsistent)
	}
	e.Key = string(p[off : off+keyLen])
	return e, nil
}

// EncodeCommand serializes a command into a complete frame including the
// length byte. Argument-less commands get one pad byte so the declared
// length never drops below MinFrameLength.
func EncodeCommand(cmd Command) ([]byte, error) {
	var payload []byte
	switch c := cmd.(type) {
	case ScanRequest, ConnectAP, NotifySysInfo:
		payload = []byte{0x00}
	case ConfigAPEntry:
		if len(c.SSID) > MaxSSIDLength {
			return nil, fmt.Errorf("%w: ssid %d > %d", ErrFieldTooLong, len(c.SSID), MaxSSIDLength)
		}
		if len(c.Key) > MaxKeyLength {
			return nil, fmt.Errorf("%w: key %d > %d", ErrFieldTooLong, len(c.Key), MaxKeyLength)
		}
		payload = make([]byte, 0, 7+len(c.SSID)+len(c.Key))
		payload = append(payload, c.Channel)
		payload = binary.LittleEndian.AppendUint32(payload, c.Security)
		payload = append(payload, byte(len(c.SSID)))
		payload = append(payload, c.SSID...)
		payload = append(payload, byte(len(c.Key)))
		payload = append(payload, c.Key...)
	case UnknownCommand:
		payload = c.Payload
		if len(payload) == 0 {
			payload = []byte{0x00}
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return Frame(cmd.Opcode(), payload)
}

// Frame prefixes opcode and payload with the declared length.
func Frame(op Opcode, payload []byte) ([]byte, error) {
	n := 1 + len(payload)
	if n < MinFrameLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if n > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLong, n, MaxFrameLength)
	}
	out := make([]byte, 0, n+1)
	out = append(out, byte(n), byte(op))
	out = append(out, payload...)
	return out, nil
}
