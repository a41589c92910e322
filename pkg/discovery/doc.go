// Package discovery advertises and finds GATT emulators on the local network
// with mDNS/DNS-SD.
//
// A device daemon that runs the WebSocket emulator instead of a BLE radio
// registers one _wifiprov._tcp instance. The instance name is
// "wifiprov-<device id>" and the TXT records carry:
//
//	id    device id (24 hex digits)
//	fw    firmware version
//	rel   release name
//	path  WebSocket path of the emulator
//	pv    protocol version
//
// The peer console browses for the service and dials the first match, so
// the emulator plays the part BLE advertising plays on real hardware.
package discovery
