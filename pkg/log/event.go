package log

import (
	"time"
)

// Event is one protocol capture record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the BLE connection (UUID), empty outside a connection.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the device.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Handle is the transport connection handle.
	Handle uint16 `cbor:"6,keyasint,omitempty"`

	// DeviceID is the provisioning device identifier.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Chunk       *ChunkEvent       `cbor:"10,keyasint,omitempty"` // Link layer
	Frame       *FrameEvent       `cbor:"11,keyasint,omitempty"` // Frame layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session layer
	Drop        *DropEvent        `cbor:"13,keyasint,omitempty"` // Any layer
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn is peer to device.
	DirectionIn Direction = 0
	// DirectionOut is device to peer.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerLink is the attribute write/notify layer.
	LayerLink Layer = 0
	// LayerFrame is the length-prefixed frame layer.
	LayerFrame Layer = 1
	// LayerSession is the provisioning session layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerLink:
		return "LINK"
	case LayerFrame:
		return "FRAME"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData is a chunk or frame.
	CategoryData Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryDrop is discarded input or output.
	CategoryDrop Category = 2
	// CategoryError is a collaborator or transport failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryDrop:
		return "DROP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ChunkEvent captures one attribute write or notification.
type ChunkEvent struct {
	// Characteristic is the target characteristic.
	Characteristic uint8 `cbor:"1,keyasint"`

	// Size in bytes.
	Size int `cbor:"2,keyasint"`

	// Data is the raw chunk.
	Data []byte `cbor:"3,keyasint,omitempty"`
}

// FrameEvent captures a complete command or response.
type FrameEvent struct {
	// Opcode is the command or message type byte.
	Opcode uint8 `cbor:"1,keyasint"`

	// Size is the frame size including the length byte.
	Size int `cbor:"2,keyasint"`

	// Data is the frame body (opcode and payload).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Summary is a human readable rendering of the decoded frame.
	Summary string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection is the BLE connection.
	StateEntityConnection StateEntity = 0
	// StateEntityProvisioning is the provisioning state machine.
	StateEntityProvisioning StateEntity = 1
	// StateEntityPipe is the single-frame pipe.
	StateEntityPipe StateEntity = 2
	// StateEntityAdvertising is the advertising window.
	StateEntityAdvertising StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityProvisioning:
		return "PROVISIONING"
	case StateEntityPipe:
		return "PIPE"
	case StateEntityAdvertising:
		return "ADVERTISING"
	default:
		return "UNKNOWN"
	}
}

// DropEvent records input or output that was discarded.
type DropEvent struct {
	// Reason for the drop.
	Reason DropReason `cbor:"1,keyasint"`

	// Size of the discarded data in bytes.
	Size int `cbor:"2,keyasint,omitempty"`

	// Detail adds free-form context.
	Detail string `cbor:"3,keyasint,omitempty"`
}

// DropReason classifies a drop.
type DropReason uint8

const (
	// DropMalformedLength is a first chunk declaring fewer than two bytes.
	DropMalformedLength DropReason = 0
	// DropOversize is a first chunk declaring more than the scratch buffer.
	DropOversize DropReason = 1
	// DropChunkTooLarge is a write larger than the chunk size.
	DropChunkTooLarge DropReason = 2
	// DropOverflow is trailing bytes past the declared frame length.
	DropOverflow DropReason = 3
	// DropUnknownOpcode is a frame with an opcode that is not a command.
	DropUnknownOpcode DropReason = 4
	// DropInvalidCommand is a command whose payload failed to decode.
	DropInvalidCommand DropReason = 5
	// DropQueueFull is a scan result rejected by the full relay queue.
	DropQueueFull DropReason = 6
	// DropNotSubscribed is a notification suppressed because the peer has
	// not enabled notifications.
	DropNotSubscribed DropReason = 7
	// DropIgnored is a valid command with no effect in the current state.
	DropIgnored DropReason = 8
)

// String returns the drop reason name.
func (r DropReason) String() string {
	switch r {
	case DropMalformedLength:
		return "MALFORMED_LENGTH"
	case DropOversize:
		return "OVERSIZE"
	case DropChunkTooLarge:
		return "CHUNK_TOO_LARGE"
	case DropOverflow:
		return "OVERFLOW"
	case DropUnknownOpcode:
		return "UNKNOWN_OPCODE"
	case DropInvalidCommand:
		return "INVALID_COMMAND"
	case DropQueueFull:
		return "QUEUE_FULL"
	case DropNotSubscribed:
		return "NOT_SUBSCRIBED"
	case DropIgnored:
		return "IGNORED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
