// Package ble exposes the provisioning GATT service on a BlueZ adapter.
//
// The service has two characteristics. The command characteristic accepts
// writes and carries chunked responses as notifications; the status
// characteristic holds the one-byte provisioning state. Writes, connects and
// disconnects are forwarded to a transport.Handler, and Peripheral implements
// transport.Peripheral so the engine can notify and drop the peer.
//
// BlueZ does not tell GATT applications which device wrote a value, so
// Peripheral serves one peer at a time. Connection state comes from
// org.bluez.Device1 property changes on the system bus.
//
// Peripheral is only functional on Linux; elsewhere New returns
// ErrUnsupportedPlatform.
package ble
