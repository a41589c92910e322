package service

import (
	"context"
	"net"

	"github.com/wifiprov/wifiprov-go/pkg/credstore"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wifi/sim"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// CredentialStore accepts credentials delivered by the peer. It is
// satisfied by the credstore backends.
type CredentialStore interface {
	AddCredentials(ctx context.Context, entry wire.ConfigAPEntry) error

	// ConfiguredBSSID returns the access point joined with the stored
	// credential. Scan results with this BSSID are marked configured.
	ConfiguredBSSID(ctx context.Context) (net.HardwareAddr, bool)
}

// Scanner starts Wi-Fi scans. Results arrive on h from any goroutine.
type Scanner interface {
	StartScan(ctx context.Context, h wifi.ScanHandler) error
}

// Provisioner starts the join with the stored credential. The outcome is
// reported later through Service.OnJoinResult.
type Provisioner interface {
	ProvisioningDone(ctx context.Context) error
}

// Resetter restarts the device after it was provisioned.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func(ctx context.Context) error

// Reset calls f.
func (f ResetFunc) Reset(ctx context.Context) error {
	return f(ctx)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Peripheral  transport.Peripheral
	Store       CredentialStore
	Scanner     Scanner
	Provisioner Provisioner

	// Resetter is optional.
	Resetter Resetter
}

// Compile-time interface satisfaction checks.
var (
	_ CredentialStore   = (*credstore.Memory)(nil)
	_ CredentialStore   = (*credstore.SQLite)(nil)
	_ Scanner           = (*sim.Radio)(nil)
	_ Provisioner       = (*wifi.Provisioner)(nil)
	_ transport.Handler = (*Service)(nil)
	_ wifi.ScanHandler  = (*scanRelay)(nil)
)
