// Package wire defines the binary wire format of the Wi-Fi provisioning protocol.
//
// The protocol runs over two GATT characteristics. The peer writes commands to
// the command characteristic and receives responses as notifications on the
// same characteristic. The status characteristic carries a single byte that
// mirrors the provisioning state.
//
// # Frames
//
// Commands and responses share one framing:
//
//	┌──────────┬──────────┬─────────────────────────┐
//	│ len (1B) │ type (1B)│ body (len-1 bytes)      │
//	└──────────┴──────────┴─────────────────────────┘
//
// The length counts the type byte and the body, never itself. A frame must
// declare at least two bytes, so commands without arguments carry a single
// reserved pad byte. Receivers also accept the unpadded form [0x02, type]
// for those commands. Frames never exceed ScratchSize bytes, so the largest
// declared length is MaxFrameLength.
//
// Frames are split into attribute-sized chunks (20 bytes by default) on the
// way out and reassembled by the transport package on the way in.
//
// # Commands (peer to device)
//
//	0xA0 SCAN_REQUEST      no arguments
//	0xA1 CONFIG_AP_ENTRY   [channel:1][security:4 LE][ssid_len:1][ssid][key_len:1][key]
//	0xA2 CONNECT_AP        no arguments
//	0xA4 NOTIFY_SYS_INFO   no arguments
//
// # Messages (device to peer)
//
//	0xA3 NOTIFY_AP         one scanned access point
//	0xA4 NOTIFY_SYS_INFO   device identity and firmware versions
//	0xA5 NOTIFY_IP_CONFIG  addresses obtained after a successful join
//
// Multi-byte integers are little-endian.
package wire
