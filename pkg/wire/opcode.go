package wire

import "fmt"

// Opcode identifies a command or message type.
type Opcode uint8

const (
	// OpScanRequest asks the device to scan for access points.
	OpScanRequest Opcode = 0xA0

	// OpConfigAPEntry delivers the credentials of one access point.
	OpConfigAPEntry Opcode = 0xA1

	// OpConnectAP asks the device to join the configured access point.
	OpConnectAP Opcode = 0xA2

	// OpNotifyAP carries one scan result. Device to peer only.
	OpNotifyAP Opcode = 0xA3

	// OpNotifySysInfo requests (peer to device) or carries (device to peer)
	// the device identity.
	OpNotifySysInfo Opcode = 0xA4

	// OpNotifyIPConfig carries the network configuration after a join.
	// Device to peer only.
	OpNotifyIPConfig Opcode = 0xA5
)

// Bare reports whether the command carries no arguments. A peer may send
// such a command as the two bytes [0x02, opcode] without the pad byte.
func (o Opcode) Bare() bool {
	switch o {
	case OpScanRequest, OpConnectAP, OpNotifySysInfo:
		return true
	default:
		return false
	}
}

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpScanRequest:
		return "SCAN_REQUEST"
	case OpConfigAPEntry:
		return "CONFIG_AP_ENTRY"
	case OpConnectAP:
		return "CONNECT_AP"
	case OpNotifyAP:
		return "NOTIFY_AP"
	case OpNotifySysInfo:
		return "NOTIFY_SYS_INFO"
	case OpNotifyIPConfig:
		return "NOTIFY_IP_CONFIG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(o))
	}
}

// StatusCode is the one-byte value exposed on the status characteristic.
type StatusCode uint8

const (
	StatusIdle          StatusCode = 0xB0
	StatusScanning      StatusCode = 0xB1
	StatusScanComplete  StatusCode = 0xB2
	StatusConfigAP      StatusCode = 0xB3
	StatusConnecting    StatusCode = 0xB4
	StatusConnected     StatusCode = 0xB5
	StatusConnectFailed StatusCode = 0xB6
)

// String returns the status name.
func (s StatusCode) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusScanning:
		return "SCANNING"
	case StatusScanComplete:
		return "SCAN_COMPLETE"
	case StatusConfigAP:
		return "CONFIG_AP"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusConnectFailed:
		return "CONNECT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// APState tags a scanned access point. The range is disjoint from StatusCode.
type APState uint8

const (
	// APStateScanned marks an access point seen during the scan.
	APStateScanned APState = 0xD0

	// APStateConfigured marks the access point whose BSSID matches the
	// stored credential.
	APStateConfigured APState = 0xD1
)

// String returns the AP state name.
func (s APState) String() string {
	switch s {
	case APStateScanned:
		return "SCANNED"
	case APStateConfigured:
		return "CONFIGURED"
	default:
		return "UNKNOWN"
	}
}
