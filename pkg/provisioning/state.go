// Package provisioning holds the provisioning state machine and the
// per-connection session.
package provisioning

import "github.com/wifiprov/wifiprov-go/pkg/wire"

// State is the provisioning state mirrored to the peer as a status byte.
type State uint8

const (
	StateIdle State = iota
	StateScanning
	StateScanComplete
	StateConfigAP
	StateConnecting
	StateConnected
	StateConnectFailed
)

// String returns the state name.
func (s State) String() string {
	return s.StatusCode().String()
}

// StatusCode returns the wire status byte for s.
func (s State) StatusCode() wire.StatusCode {
	switch s {
	case StateIdle:
		return wire.StatusIdle
	case StateScanning:
		return wire.StatusScanning
	case StateScanComplete:
		return wire.StatusScanComplete
	case StateConfigAP:
		return wire.StatusConfigAP
	case StateConnecting:
		return wire.StatusConnecting
	case StateConnected:
		return wire.StatusConnected
	case StateConnectFailed:
		return wire.StatusConnectFailed
	default:
		return 0
	}
}

// StateFromStatus maps a status byte back to a State.
func StateFromStatus(code wire.StatusCode) (State, bool) {
	for s := StateIdle; s <= StateConnectFailed; s++ {
		if s.StatusCode() == code {
			return s, true
		}
	}
	return 0, false
}

// Terminal reports whether s ends a provisioning attempt.
func (s State) Terminal() bool {
	return s == StateConnected || s == StateConnectFailed
}
