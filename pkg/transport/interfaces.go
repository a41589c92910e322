package transport

import (
	"context"
	"fmt"
)

// Handle identifies a connected peer.
type Handle uint16

// Characteristic identifies a GATT characteristic of the provisioning service.
type Characteristic uint8

const (
	// CharCommand carries commands in and chunked responses out.
	CharCommand Characteristic = 1

	// CharStatus carries the one-byte provisioning state.
	CharStatus Characteristic = 2
)

// String returns the characteristic name.
func (c Characteristic) String() string {
	switch c {
	case CharCommand:
		return "COMMAND"
	case CharStatus:
		return "STATUS"
	default:
		return fmt.Sprintf("CHAR(%d)", uint8(c))
	}
}

// AttStatus is the ATT result of an attribute write.
type AttStatus uint8

const (
	AttSuccess                AttStatus = 0x00
	AttWriteNotPermitted      AttStatus = 0x03
	AttInvalidAttributeLength AttStatus = 0x0D
	AttUnlikelyError          AttStatus = 0x0E
)

// String returns the status name.
func (s AttStatus) String() string {
	switch s {
	case AttSuccess:
		return "SUCCESS"
	case AttWriteNotPermitted:
		return "WRITE_NOT_PERMITTED"
	case AttInvalidAttributeLength:
		return "INVALID_ATTRIBUTE_LENGTH"
	case AttUnlikelyError:
		return "UNLIKELY_ERROR"
	default:
		return fmt.Sprintf("ATT(0x%02X)", uint8(s))
	}
}

// Peripheral is the GATT server side of the link as seen by the engine.
// Implemented by Emulator and by the BlueZ peripheral in package ble.
type Peripheral interface {
	// Notify sends one notification. Data must fit one chunk.
	Notify(ctx context.Context, h Handle, char Characteristic, data []byte) error

	// Subscribed reports whether the peer enabled notifications on char.
	Subscribed(h Handle, char Characteristic) bool

	// Disconnect drops the connection to h.
	Disconnect(h Handle) error

	// StartAdvertising makes the device discoverable.
	StartAdvertising() error

	// StopAdvertising stops advertising.
	StopAdvertising() error
}

// Handler receives link events. Implemented by service.Service.
// Callbacks may be invoked from any goroutine.
type Handler interface {
	OnConnected(h Handle)
	OnDisconnected(h Handle)
	OnCharacteristicWrite(h Handle, char Characteristic, data []byte) AttStatus
	OnCharacteristicRead(h Handle, char Characteristic) []byte
}

var (
	_ Peripheral = (*Emulator)(nil)
	_ Handler    = (*HandlerFuncs)(nil)
)

// HandlerFuncs adapts functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Connected    func(h Handle)
	Disconnected func(h Handle)
	Write        func(h Handle, char Characteristic, data []byte) AttStatus
	Read         func(h Handle, char Characteristic) []byte
}

func (f *HandlerFuncs) OnConnected(h Handle) {
	if f.Connected != nil {
		f.Connected(h)
	}
}

func (f *HandlerFuncs) OnDisconnected(h Handle) {
	if f.Disconnected != nil {
		f.Disconnected(h)
	}
}

func (f *HandlerFuncs) OnCharacteristicWrite(h Handle, char Characteristic, data []byte) AttStatus {
	if f.Write != nil {
		return f.Write(h, char, data)
	}
	return AttSuccess
}

func (f *HandlerFuncs) OnCharacteristicRead(h Handle, char Characteristic) []byte {
	if f.Read != nil {
		return f.Read(h, char)
	}
	return nil
}
