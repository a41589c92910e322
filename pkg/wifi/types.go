package wifi

import (
	"context"
	"net"
)

// AccessPoint is one scan result.
type AccessPoint struct {
	SSID     string
	BSSID    net.HardwareAddr
	RSSI     int16
	Channel  uint8
	Security Security
}

// ScanHandler receives scan results. Callbacks may arrive on any goroutine.
// OnScanComplete is called exactly once, after the last OnScanResult.
type ScanHandler interface {
	OnScanResult(ap AccessPoint)
	OnScanComplete()
}

// Credential is what a backend needs to join a network. Key holds the
// 64-hex-digit PSK for WPA modes, the raw key for WEP and is empty for open
// networks.
type Credential struct {
	SSID     string
	Security Security
	Channel  uint8
	Key      string
}

// JoinResult is the outcome of a join attempt.
type JoinResult struct {
	Success bool

	// Set on success.
	SSID       string
	BSSID      net.HardwareAddr
	StationIP  net.IP
	GatewayIP  net.IP
	GatewayMAC net.HardwareAddr

	// Set on failure.
	Err error
}

// Backend is a Wi-Fi radio that can scan and join.
type Backend interface {
	// StartScan begins an asynchronous scan reporting to h. It returns
	// once the scan is running.
	StartScan(ctx context.Context, h ScanHandler) error

	// Join blocks until the network is joined or the attempt fails.
	Join(ctx context.Context, cred Credential) (JoinResult, error)
}

// ChannelFromFrequency converts a center frequency in MHz to a channel number.
// Unknown frequencies map to 0.
func ChannelFromFrequency(mhz uint32) uint8 {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return uint8((mhz - 2407) / 5)
	case mhz >= 5160 && mhz <= 5885:
		return uint8((mhz - 5000) / 5)
	case mhz >= 5955 && mhz <= 7115:
		return uint8((mhz - 5950) / 5)
	default:
		return 0
	}
}
