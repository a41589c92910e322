package credstore

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Memory is a volatile Store.
type Memory struct {
	mu    sync.RWMutex
	cred  *wifi.Credential
	bssid net.HardwareAddr
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// AddCredentials replaces the stored credential. The joined BSSID is
// forgotten when the SSID changes.
func (m *Memory) AddCredentials(_ context.Context, entry wire.ConfigAPEntry) error {
	cred, err := Derive(entry)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil || m.cred.SSID != cred.SSID {
		m.bssid = nil
	}
	m.cred = &cred
	return nil
}

// ConfiguredBSSID returns the BSSID last joined with the stored credential.
func (m *Memory) ConfiguredBSSID(context.Context) (net.HardwareAddr, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bssid == nil {
		return nil, false
	}
	return append(net.HardwareAddr(nil), m.bssid...), true
}

// Credential returns the stored credential.
func (m *Memory) Credential(context.Context) (wifi.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return wifi.Credential{}, wifi.ErrNoCredential
	}
	return *m.cred, nil
}

// RecordJoin remembers bssid for the stored credential.
func (m *Memory) RecordJoin(_ context.Context, ssid string, bssid net.HardwareAddr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil || m.cred.SSID != ssid {
		return fmt.Errorf("%w: %q", ErrSSIDMismatch, ssid)
	}
	m.bssid = append(net.HardwareAddr(nil), bssid...)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
